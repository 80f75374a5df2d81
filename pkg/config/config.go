package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for tarif-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Engine behavior
	Engine EngineConfig `yaml:"engine"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"tarif"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"tarif_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"./migrations"`
}

// EngineConfig holds resolution and curation tunables.
type EngineConfig struct {
	// CandidateMinConfidence is the default floor for multi-candidate
	// resolution. Candidates below it are not returned.
	CandidateMinConfidence int `yaml:"candidate_min_confidence" env:"ENGINE_CANDIDATE_MIN_CONFIDENCE" env-default:"20"`

	// AutoSelectConfidence is the threshold at or above which a candidate is
	// pre-selected for the curator.
	AutoSelectConfidence int `yaml:"auto_select_confidence" env:"ENGINE_AUTO_SELECT_CONFIDENCE" env-default:"80"`

	// DefaultListLimit and MaxListLimit bound the mapping listing window.
	DefaultListLimit int `yaml:"default_list_limit" env:"ENGINE_DEFAULT_LIST_LIMIT" env-default:"50"`
	MaxListLimit     int `yaml:"max_list_limit" env:"ENGINE_MAX_LIST_LIMIT" env-default:"200"`

	// RepositoryTimeoutSeconds bounds every repository call so a store outage
	// surfaces as a timeout error instead of a hang.
	RepositoryTimeoutSeconds int `yaml:"repository_timeout_seconds" env:"ENGINE_REPOSITORY_TIMEOUT_SECONDS" env-default:"10"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Engine.CandidateMinConfidence < 0 || c.Engine.CandidateMinConfidence > 100 {
		return fmt.Errorf("candidate_min_confidence must be within 0-100, got %d", c.Engine.CandidateMinConfidence)
	}
	if c.Engine.AutoSelectConfidence < 0 || c.Engine.AutoSelectConfidence > 100 {
		return fmt.Errorf("auto_select_confidence must be within 0-100, got %d", c.Engine.AutoSelectConfidence)
	}
	if c.Engine.DefaultListLimit <= 0 || c.Engine.MaxListLimit < c.Engine.DefaultListLimit {
		return fmt.Errorf("list limits misconfigured: default=%d max=%d", c.Engine.DefaultListLimit, c.Engine.MaxListLimit)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
