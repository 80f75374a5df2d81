package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tarifbridge/tarif-engine/pkg/apperrors"
	"github.com/tarifbridge/tarif-engine/pkg/config"
	"github.com/tarifbridge/tarif-engine/pkg/fees"
	"github.com/tarifbridge/tarif-engine/pkg/models"
	"github.com/tarifbridge/tarif-engine/pkg/repositories"
)

// noMappingReasoning is the synthetic note attached when a legacy code exists
// but has no mapping rows at all.
const noMappingReasoning = "no mapping available"

// ResolveRequest is one billing position to translate: a legacy code with an
// optional quantity and multiplier factor.
type ResolveRequest struct {
	Code     string           `json:"code"`
	Quantity int              `json:"quantity,omitempty"`
	Factor   *decimal.Decimal `json:"factor,omitempty"`
}

// ResolvedItem is the single-best translation of one position. There is
// always exactly one item per requested position, in request order, even for
// unknown codes and duplicates.
type ResolvedItem struct {
	Code  string `json:"code"`
	Found bool   `json:"found"`

	Description string `json:"description,omitempty"`
	Quantity    int    `json:"quantity"`

	Factor decimal.Decimal `json:"factor"`
	// FactorOutOfBounds flags a caller-supplied factor outside the legacy
	// code's [factor_min, factor_max]. Advisory only, the amount is still
	// computed with the requested factor.
	FactorOutOfBounds bool `json:"factor_out_of_bounds,omitempty"`

	LegacyAmount decimal.Decimal `json:"legacy_amount"`

	MappingID       *uuid.UUID       `json:"mapping_id,omitempty"`
	SuccessorCode   *string          `json:"successor_code,omitempty"`
	SuccessorTitle  *string          `json:"successor_title,omitempty"`
	SuccessorValue  *decimal.Decimal `json:"successor_value,omitempty"`
	SuccessorAmount *decimal.Decimal `json:"successor_amount,omitempty"`

	// Diff is successor amount − legacy amount; PercentChange is nil when the
	// legacy amount is not positive.
	Diff          *decimal.Decimal `json:"diff,omitempty"`
	PercentChange *decimal.Decimal `json:"percent_change,omitempty"`

	Confidence int                  `json:"confidence"`
	Status     models.MappingStatus `json:"status,omitempty"`
	Reasoning  *string              `json:"reasoning,omitempty"`
}

// MappingCandidate is one qualifying mapping in multi-candidate resolution.
type MappingCandidate struct {
	MappingID       uuid.UUID            `json:"mapping_id"`
	SuccessorCode   *string              `json:"successor_code,omitempty"`
	SuccessorTitle  *string              `json:"successor_title,omitempty"`
	SuccessorValue  *decimal.Decimal     `json:"successor_value,omitempty"`
	SuccessorAmount *decimal.Decimal     `json:"successor_amount,omitempty"`
	Confidence      int                  `json:"confidence"`
	Status          models.MappingStatus `json:"status"`
	Reasoning       *string              `json:"reasoning,omitempty"`
	Version         int64                `json:"version"`

	// Selected defaults to true for candidates at or above the auto-select
	// threshold; the curator toggles it in the host UI.
	Selected bool `json:"selected"`
}

// PositionCandidates holds every qualifying candidate for one position.
type PositionCandidates struct {
	Code  string `json:"code"`
	Found bool   `json:"found"`

	Description       string          `json:"description,omitempty"`
	Quantity          int             `json:"quantity"`
	Factor            decimal.Decimal `json:"factor"`
	FactorOutOfBounds bool            `json:"factor_out_of_bounds,omitempty"`
	LegacyAmount      decimal.Decimal `json:"legacy_amount"`

	Candidates []MappingCandidate `json:"candidates"`
}

// ResolutionTotals summarizes a candidate result set: the legacy sum over all
// resolved positions and the successor sum over selected candidates only.
type ResolutionTotals struct {
	Positions     int             `json:"positions"`
	LegacyTotal   decimal.Decimal `json:"legacy_total"`
	SelectedTotal decimal.Decimal `json:"selected_total"`
}

// ResolutionService translates legacy billing positions into successor
// mappings. Resolution is stateless and read-only: identical inputs against
// an unchanged store produce identical outputs.
type ResolutionService interface {
	// ResolveBest picks the highest-confidence mapping per position.
	ResolveBest(ctx context.Context, reqs []ResolveRequest) ([]ResolvedItem, error)

	// ResolveCandidates returns every mapping with confidence >= minConfidence
	// per position, descending by confidence. minConfidence < 0 selects the
	// configured default.
	ResolveCandidates(ctx context.Context, reqs []ResolveRequest, minConfidence int) ([]PositionCandidates, error)

	// Totals computes summary amounts over a candidate result set.
	Totals(items []PositionCandidates) ResolutionTotals

	// LookupCode returns the schedule entry for one legacy code, with its
	// base fee and factor bounds. Unknown codes return ErrNotFound.
	LookupCode(ctx context.Context, code string) (*models.LegacyCode, error)
}

type resolutionService struct {
	legacyRepo  repositories.LegacyCodeRepository
	mappingRepo repositories.MappingRepository
	engineCfg   config.EngineConfig
	logger      *zap.Logger
}

// ResolutionServiceDeps contains dependencies for ResolutionService.
type ResolutionServiceDeps struct {
	LegacyRepo  repositories.LegacyCodeRepository
	MappingRepo repositories.MappingRepository
	EngineCfg   config.EngineConfig
	Logger      *zap.Logger
}

// NewResolutionService creates a new ResolutionService.
func NewResolutionService(deps *ResolutionServiceDeps) ResolutionService {
	return &resolutionService{
		legacyRepo:  deps.LegacyRepo,
		mappingRepo: deps.MappingRepo,
		engineCfg:   deps.EngineCfg,
		logger:      deps.Logger,
	}
}

func (s *resolutionService) ResolveBest(ctx context.Context, reqs []ResolveRequest) ([]ResolvedItem, error) {
	if err := validateRequests(reqs); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	legacyByCode, mappingsByLegacyID, err := s.fetch(ctx, reqs, 0)
	if err != nil {
		return nil, err
	}

	items := make([]ResolvedItem, 0, len(reqs))
	for _, req := range reqs {
		legacy := legacyByCode[req.Code]
		if legacy == nil {
			items = append(items, ResolvedItem{
				Code:     req.Code,
				Quantity: fees.NormalizeQuantity(req.Quantity),
			})
			continue
		}

		item := s.baseItem(req, legacy)

		// Candidates arrive pre-sorted by the repository: confidence
		// descending, then successor code, then recency. The first row is the
		// best mapping.
		candidates := mappingsByLegacyID[legacy.ID]
		if len(candidates) == 0 {
			reasoning := noMappingReasoning
			item.Reasoning = &reasoning
			items = append(items, item)
			continue
		}

		best := candidates[0]
		item.MappingID = &best.ID
		item.Confidence = best.Confidence
		item.Status = best.Status
		item.Reasoning = best.Reasoning
		item.SuccessorCode = best.SuccessorCode
		item.SuccessorTitle = best.SuccessorTitle
		item.SuccessorValue = best.SuccessorValue

		if best.SuccessorValue != nil {
			amount := fees.Amount(*best.SuccessorValue, item.Quantity, item.Factor)
			diff := fees.Diff(amount, item.LegacyAmount)
			item.SuccessorAmount = &amount
			item.Diff = &diff
			item.PercentChange = fees.PercentChange(diff, item.LegacyAmount)
		}

		items = append(items, item)
	}

	return items, nil
}

func (s *resolutionService) ResolveCandidates(ctx context.Context, reqs []ResolveRequest, minConfidence int) ([]PositionCandidates, error) {
	if err := validateRequests(reqs); err != nil {
		return nil, err
	}
	if minConfidence < 0 {
		minConfidence = s.engineCfg.CandidateMinConfidence
	}
	if minConfidence > 100 {
		return nil, fmt.Errorf("min_confidence %d out of range: %w", minConfidence, apperrors.ErrValidation)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	legacyByCode, mappingsByLegacyID, err := s.fetch(ctx, reqs, minConfidence)
	if err != nil {
		return nil, err
	}

	results := make([]PositionCandidates, 0, len(reqs))
	for _, req := range reqs {
		legacy := legacyByCode[req.Code]
		if legacy == nil {
			results = append(results, PositionCandidates{
				Code:       req.Code,
				Quantity:   fees.NormalizeQuantity(req.Quantity),
				Candidates: []MappingCandidate{},
			})
			continue
		}

		base := s.baseItem(req, legacy)
		pos := PositionCandidates{
			Code:              base.Code,
			Found:             true,
			Description:       base.Description,
			Quantity:          base.Quantity,
			Factor:            base.Factor,
			FactorOutOfBounds: base.FactorOutOfBounds,
			LegacyAmount:      base.LegacyAmount,
			Candidates:        []MappingCandidate{},
		}

		for _, m := range mappingsByLegacyID[legacy.ID] {
			candidate := MappingCandidate{
				MappingID:      m.ID,
				SuccessorCode:  m.SuccessorCode,
				SuccessorTitle: m.SuccessorTitle,
				SuccessorValue: m.SuccessorValue,
				Confidence:     m.Confidence,
				Status:         m.Status,
				Reasoning:      m.Reasoning,
				Version:        m.Version,
				Selected:       m.Confidence >= s.engineCfg.AutoSelectConfidence,
			}
			if m.SuccessorValue != nil {
				amount := fees.Amount(*m.SuccessorValue, pos.Quantity, pos.Factor)
				candidate.SuccessorAmount = &amount
			}
			pos.Candidates = append(pos.Candidates, candidate)
		}

		results = append(results, pos)
	}

	return results, nil
}

func (s *resolutionService) Totals(items []PositionCandidates) ResolutionTotals {
	totals := ResolutionTotals{Positions: len(items)}
	for _, item := range items {
		totals.LegacyTotal = totals.LegacyTotal.Add(item.LegacyAmount)
		for _, c := range item.Candidates {
			if c.Selected && c.SuccessorAmount != nil {
				totals.SelectedTotal = totals.SelectedTotal.Add(*c.SuccessorAmount)
			}
		}
	}
	return totals
}

func (s *resolutionService) LookupCode(ctx context.Context, code string) (*models.LegacyCode, error) {
	if code == "" {
		return nil, fmt.Errorf("code is required: %w", apperrors.ErrValidation)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	legacy, err := s.legacyRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch legacy code: %w", err)
	}
	if legacy == nil {
		return nil, fmt.Errorf("legacy code %q: %w", code, apperrors.ErrNotFound)
	}

	return legacy, nil
}

// fetch loads the legacy codes for the requested positions and all their
// qualifying mappings, grouped for per-position assembly.
func (s *resolutionService) fetch(ctx context.Context, reqs []ResolveRequest, minConfidence int) (map[string]*models.LegacyCode, map[uuid.UUID][]*models.Mapping, error) {
	codes := make([]string, 0, len(reqs))
	seen := make(map[string]bool, len(reqs))
	for _, req := range reqs {
		if !seen[req.Code] {
			seen[req.Code] = true
			codes = append(codes, req.Code)
		}
	}

	legacyCodes, err := s.legacyRepo.FindByCodes(ctx, codes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch legacy codes: %w", err)
	}

	legacyByCode := make(map[string]*models.LegacyCode, len(legacyCodes))
	legacyIDs := make([]uuid.UUID, 0, len(legacyCodes))
	for _, lc := range legacyCodes {
		legacyByCode[lc.Code] = lc
		legacyIDs = append(legacyIDs, lc.ID)
	}

	mappings, err := s.mappingRepo.FindForLegacyIDs(ctx, legacyIDs, minConfidence)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch mappings: %w", err)
	}

	mappingsByLegacyID := make(map[uuid.UUID][]*models.Mapping)
	for _, m := range mappings {
		mappingsByLegacyID[m.LegacyCodeID] = append(mappingsByLegacyID[m.LegacyCodeID], m)
	}

	return legacyByCode, mappingsByLegacyID, nil
}

// baseItem assembles the legacy-side fields of a resolved position.
func (s *resolutionService) baseItem(req ResolveRequest, legacy *models.LegacyCode) ResolvedItem {
	quantity := fees.NormalizeQuantity(req.Quantity)
	factor := fees.EffectiveFactor(req.Factor, legacy)

	return ResolvedItem{
		Code:              legacy.Code,
		Found:             true,
		Description:       legacy.Description,
		Quantity:          quantity,
		Factor:            factor,
		FactorOutOfBounds: !fees.FactorInBounds(factor, legacy.FactorMin, legacy.FactorMax),
		LegacyAmount:      fees.Amount(legacy.BaseFee, quantity, factor),
	}
}

func (s *resolutionService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(s.engineCfg.RepositoryTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func validateRequests(reqs []ResolveRequest) error {
	for i, req := range reqs {
		if req.Code == "" {
			return fmt.Errorf("position %d: code is required: %w", i, apperrors.ErrValidation)
		}
		if req.Quantity < 0 {
			return fmt.Errorf("position %d: quantity must not be negative: %w", i, apperrors.ErrValidation)
		}
		if req.Factor != nil && req.Factor.IsNegative() {
			return fmt.Errorf("position %d: factor must not be negative: %w", i, apperrors.ErrValidation)
		}
	}
	return nil
}
