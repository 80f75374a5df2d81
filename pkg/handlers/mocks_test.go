package handlers

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tarifbridge/tarif-engine/pkg/models"
	"github.com/tarifbridge/tarif-engine/pkg/services"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// mockResolutionServiceForHandler implements services.ResolutionService for handler tests.
type mockResolutionServiceForHandler struct {
	items      []services.ResolvedItem
	positions  []services.PositionCandidates
	totals     services.ResolutionTotals
	legacy     *models.LegacyCode
	resolveErr error

	lastMinConfidence int
}

func (m *mockResolutionServiceForHandler) ResolveBest(ctx context.Context, reqs []services.ResolveRequest) ([]services.ResolvedItem, error) {
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	return m.items, nil
}

func (m *mockResolutionServiceForHandler) ResolveCandidates(ctx context.Context, reqs []services.ResolveRequest, minConfidence int) ([]services.PositionCandidates, error) {
	m.lastMinConfidence = minConfidence
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	return m.positions, nil
}

func (m *mockResolutionServiceForHandler) Totals(items []services.PositionCandidates) services.ResolutionTotals {
	return m.totals
}

func (m *mockResolutionServiceForHandler) LookupCode(ctx context.Context, code string) (*models.LegacyCode, error) {
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	return m.legacy, nil
}

// mockCurationServiceForHandler implements services.CurationService for handler tests.
type mockCurationServiceForHandler struct {
	mapping    *models.Mapping
	curateErr  error
	lastCurate services.CurateRequest
}

func (m *mockCurationServiceForHandler) Curate(ctx context.Context, req services.CurateRequest) (*models.Mapping, error) {
	m.lastCurate = req
	if m.curateErr != nil {
		return nil, m.curateErr
	}
	return m.mapping, nil
}

// mockAggregationServiceForHandler implements services.AggregationService for handler tests.
type mockAggregationServiceForHandler struct {
	mappings []*models.Mapping
	total    int
	stats    *models.MappingStats
	events   []*models.CorrectionEvent
	err      error

	lastFilter models.MappingFilter
	lastOffset int
	lastLimit  int
}

func (m *mockAggregationServiceForHandler) List(ctx context.Context, filter models.MappingFilter, offset, limit int) ([]*models.Mapping, int, error) {
	m.lastFilter = filter
	m.lastOffset = offset
	m.lastLimit = limit
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.mappings, m.total, nil
}

func (m *mockAggregationServiceForHandler) Stats(ctx context.Context) (*models.MappingStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.stats, nil
}

func (m *mockAggregationServiceForHandler) RecentCorrections(ctx context.Context, limit int) ([]*models.CorrectionEvent, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.events, nil
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
