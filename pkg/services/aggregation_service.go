package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tarifbridge/tarif-engine/pkg/apperrors"
	"github.com/tarifbridge/tarif-engine/pkg/config"
	"github.com/tarifbridge/tarif-engine/pkg/models"
	"github.com/tarifbridge/tarif-engine/pkg/repositories"
)

// AggregationService computes summary statistics and filtered listings over
// the mapping population. All operations are read-only.
type AggregationService interface {
	// List returns a page of mappings matching the filter, weakest confidence
	// first, plus the total filtered count independent of the window.
	List(ctx context.Context, filter models.MappingFilter, offset, limit int) ([]*models.Mapping, int, error)

	// Stats returns exact counts over the full mapping population.
	Stats(ctx context.Context) (*models.MappingStats, error)

	// RecentCorrections returns the newest audit events, each enriched with
	// the legacy code of its parent mapping.
	RecentCorrections(ctx context.Context, limit int) ([]*models.CorrectionEvent, error)
}

type aggregationService struct {
	mappingRepo    repositories.MappingRepository
	correctionRepo repositories.CorrectionEventRepository
	engineCfg      config.EngineConfig
	logger         *zap.Logger
}

// AggregationServiceDeps contains dependencies for AggregationService.
type AggregationServiceDeps struct {
	MappingRepo    repositories.MappingRepository
	CorrectionRepo repositories.CorrectionEventRepository
	EngineCfg      config.EngineConfig
	Logger         *zap.Logger
}

// NewAggregationService creates a new AggregationService.
func NewAggregationService(deps *AggregationServiceDeps) AggregationService {
	return &aggregationService{
		mappingRepo:    deps.MappingRepo,
		correctionRepo: deps.CorrectionRepo,
		engineCfg:      deps.EngineCfg,
		logger:         deps.Logger,
	}
}

func (s *aggregationService) List(ctx context.Context, filter models.MappingFilter, offset, limit int) ([]*models.Mapping, int, error) {
	if filter.Band != "" && !models.IsValidConfidenceBand(filter.Band) {
		return nil, 0, fmt.Errorf("unknown confidence band %q: %w", filter.Band, apperrors.ErrValidation)
	}
	if filter.Status != "" && filter.Status != "all" && !models.IsValidMappingStatus(filter.Status) {
		return nil, 0, fmt.Errorf("unknown status %q: %w", filter.Status, apperrors.ErrValidation)
	}
	if offset < 0 {
		return nil, 0, fmt.Errorf("offset must not be negative: %w", apperrors.ErrValidation)
	}

	if limit <= 0 {
		limit = s.engineCfg.DefaultListLimit
	}
	if limit > s.engineCfg.MaxListLimit {
		limit = s.engineCfg.MaxListLimit
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.mappingRepo.List(ctx, filter, offset, limit)
}

func (s *aggregationService) Stats(ctx context.Context) (*models.MappingStats, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.mappingRepo.Stats(ctx)
}

func (s *aggregationService) RecentCorrections(ctx context.Context, limit int) ([]*models.CorrectionEvent, error) {
	if limit <= 0 {
		limit = s.engineCfg.DefaultListLimit
	}
	if limit > s.engineCfg.MaxListLimit {
		limit = s.engineCfg.MaxListLimit
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.correctionRepo.ListRecent(ctx, limit)
}

func (s *aggregationService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(s.engineCfg.RepositoryTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
