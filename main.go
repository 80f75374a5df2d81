package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/tarifbridge/tarif-engine/pkg/config"
	"github.com/tarifbridge/tarif-engine/pkg/database"
	"github.com/tarifbridge/tarif-engine/pkg/handlers"
	enginemcp "github.com/tarifbridge/tarif-engine/pkg/mcp"
	mcptools "github.com/tarifbridge/tarif-engine/pkg/mcp/tools"
	"github.com/tarifbridge/tarif-engine/pkg/middleware"
	"github.com/tarifbridge/tarif-engine/pkg/repositories"
	"github.com/tarifbridge/tarif-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck // flush on exit is best-effort

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", cfg.Database.Database),
		zap.String("database_host", cfg.Database.Host),
	)

	// Run migrations over database/sql before opening the pgx pool.
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open database for migrations", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("Failed to close migration connection", zap.Error(err))
	}

	ctx := context.Background()
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	legacyRepo := repositories.NewLegacyCodeRepository(db)
	mappingRepo := repositories.NewMappingRepository(db)
	correctionRepo := repositories.NewCorrectionEventRepository(db)

	// Services
	resolutionService := services.NewResolutionService(&services.ResolutionServiceDeps{
		LegacyRepo:  legacyRepo,
		MappingRepo: mappingRepo,
		EngineCfg:   cfg.Engine,
		Logger:      logger,
	})
	curationService := services.NewCurationService(&services.CurationServiceDeps{
		MappingRepo: mappingRepo,
		EngineCfg:   cfg.Engine,
		Logger:      logger,
	})
	aggregationService := services.NewAggregationService(&services.AggregationServiceDeps{
		MappingRepo:    mappingRepo,
		CorrectionRepo: correctionRepo,
		EngineCfg:      cfg.Engine,
		Logger:         logger,
	})

	mux := http.NewServeMux()

	// HTTP host
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewResolutionHandler(resolutionService, logger).RegisterRoutes(mux)
	handlers.NewMappingHandler(curationService, aggregationService, logger).RegisterRoutes(mux)

	// MCP host, same services over a second transport
	mcpServer := enginemcp.NewServer("tarif-engine", cfg.Version, logger)
	mcptools.RegisterResolutionTools(mcpServer.MCP(), &mcptools.ResolutionToolDeps{
		ResolutionService: resolutionService,
		Logger:            logger,
	})
	mcptools.RegisterCurationTools(mcpServer.MCP(), &mcptools.CurationToolDeps{
		CurationService: curationService,
		Logger:          logger,
	})
	mcptools.RegisterAggregationTools(mcpServer.MCP(), &mcptools.AggregationToolDeps{
		AggregationService: aggregationService,
		Logger:             logger,
	})
	mux.Handle("/mcp", mcpServer.NewStreamableHTTPServer())

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting tarif-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
