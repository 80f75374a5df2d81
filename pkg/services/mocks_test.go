package services

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/tarifbridge/tarif-engine/pkg/apperrors"
	"github.com/tarifbridge/tarif-engine/pkg/config"
	"github.com/tarifbridge/tarif-engine/pkg/models"
)

// testEngineConfig mirrors the shipped defaults.
func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		CandidateMinConfidence:   20,
		AutoSelectConfidence:     80,
		DefaultListLimit:         50,
		MaxListLimit:             200,
		RepositoryTimeoutSeconds: 5,
	}
}

// mockLegacyCodeRepository is an in-memory LegacyCodeRepository for testing.
type mockLegacyCodeRepository struct {
	codes map[string]*models.LegacyCode
	err   error
}

func (m *mockLegacyCodeRepository) FindByCodes(ctx context.Context, codes []string) ([]*models.LegacyCode, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []*models.LegacyCode
	for _, c := range codes {
		if lc, ok := m.codes[c]; ok {
			result = append(result, lc)
		}
	}
	return result, nil
}

func (m *mockLegacyCodeRepository) GetByCode(ctx context.Context, code string) (*models.LegacyCode, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.codes[code], nil
}

// mockMappingRepository is an in-memory MappingRepository for testing. It
// reproduces the repository's deterministic ordering so service tests can
// assert on candidate ranking.
type mockMappingRepository struct {
	mappings []*models.Mapping
	stats    *models.MappingStats
	err      error

	// curations records every ApplyCuration call.
	curations []appliedCuration
}

type appliedCuration struct {
	mapping *models.Mapping
	event   *models.CorrectionEvent
}

func (m *mockMappingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Mapping, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, mp := range m.mappings {
		if mp.ID == id {
			copied := *mp
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockMappingRepository) FindForLegacyIDs(ctx context.Context, legacyIDs []uuid.UUID, minConfidence int) ([]*models.Mapping, error) {
	if m.err != nil {
		return nil, m.err
	}

	wanted := make(map[uuid.UUID]bool, len(legacyIDs))
	for _, id := range legacyIDs {
		wanted[id] = true
	}

	var result []*models.Mapping
	for _, mp := range m.mappings {
		if wanted[mp.LegacyCodeID] && mp.Confidence >= minConfidence {
			result = append(result, mp)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Confidence != result[j].Confidence {
			return result[i].Confidence > result[j].Confidence
		}
		a, b := result[i].SuccessorCode, result[j].SuccessorCode
		switch {
		case a == nil && b == nil:
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		case a == nil:
			return false // NULLS LAST
		case b == nil:
			return true
		case *a != *b:
			return *a < *b
		}
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	return result, nil
}

func (m *mockMappingRepository) List(ctx context.Context, filter models.MappingFilter, offset, limit int) ([]*models.Mapping, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}

	var filtered []*models.Mapping
	for _, mp := range m.mappings {
		if filter.Band != "" && !filter.Band.Matches(mp.Confidence) {
			continue
		}
		if filter.Status != "" && filter.Status != "all" && mp.Status != filter.Status {
			continue
		}
		filtered = append(filtered, mp)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Confidence < filtered[j].Confidence
	})

	total := len(filtered)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}

func (m *mockMappingRepository) Stats(ctx context.Context) (*models.MappingStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.stats, nil
}

func (m *mockMappingRepository) ApplyCuration(ctx context.Context, mapping *models.Mapping, event *models.CorrectionEvent) error {
	if m.err != nil {
		return m.err
	}

	for _, mp := range m.mappings {
		if mp.ID == mapping.ID {
			if mp.Version != mapping.Version {
				return apperrors.ErrConflict
			}
			m.curations = append(m.curations, appliedCuration{mapping: mapping, event: event})
			mapping.Version++
			*mp = *mapping
			return nil
		}
	}
	return apperrors.ErrNotFound
}

// mockCorrectionEventRepository is an in-memory CorrectionEventRepository.
type mockCorrectionEventRepository struct {
	events []*models.CorrectionEvent
	err    error

	lastLimit int
}

func (m *mockCorrectionEventRepository) ListRecent(ctx context.Context, limit int) ([]*models.CorrectionEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastLimit = limit
	if limit < len(m.events) {
		return m.events[:limit], nil
	}
	return m.events, nil
}
