package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tarifbridge/tarif-engine/pkg/apperrors"
	"github.com/tarifbridge/tarif-engine/pkg/config"
	"github.com/tarifbridge/tarif-engine/pkg/models"
	"github.com/tarifbridge/tarif-engine/pkg/repositories"
)

// CurateRequest is one human correction to a mapping.
type CurateRequest struct {
	MappingID uuid.UUID `json:"mapping_id"`

	// ExpectedVersion must be the mapping version the curator read. A stale
	// version is rejected with a conflict instead of silently overwriting a
	// concurrent curator's work.
	ExpectedVersion int64 `json:"expected_version"`

	Status     models.MappingStatus `json:"status"`
	Confidence int                  `json:"confidence"`
	Note       string               `json:"note"`
	Actor      string               `json:"actor"`
}

// CurationService applies human-reviewed status/confidence/note changes to
// mappings. Every successful call writes exactly one correction event in the
// same transaction as the mapping update.
type CurationService interface {
	Curate(ctx context.Context, req CurateRequest) (*models.Mapping, error)
}

type curationService struct {
	mappingRepo repositories.MappingRepository
	engineCfg   config.EngineConfig
	logger      *zap.Logger
}

// CurationServiceDeps contains dependencies for CurationService.
type CurationServiceDeps struct {
	MappingRepo repositories.MappingRepository
	EngineCfg   config.EngineConfig
	Logger      *zap.Logger
}

// NewCurationService creates a new CurationService.
func NewCurationService(deps *CurationServiceDeps) CurationService {
	return &curationService{
		mappingRepo: deps.MappingRepo,
		engineCfg:   deps.EngineCfg,
		logger:      deps.Logger,
	}
}

func (s *curationService) Curate(ctx context.Context, req CurateRequest) (*models.Mapping, error) {
	if err := validateCurateRequest(req); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	mapping, err := s.mappingRepo.GetByID(ctx, req.MappingID)
	if err != nil {
		return nil, err
	}

	note := models.NormalizeNote(req.Note)

	// No-op guard: refuse to write a vacuous audit entry when nothing
	// actually changed.
	if mapping.Status == req.Status &&
		mapping.Confidence == req.Confidence &&
		equalNotes(mapping.UserNote, note) {
		return nil, fmt.Errorf("mapping %s: %w", req.MappingID, apperrors.ErrNoChange)
	}

	event := &models.CorrectionEvent{
		MappingID:     mapping.ID,
		Action:        models.AuditActionForStatus(req.Status),
		OldStatus:     mapping.Status,
		NewStatus:     req.Status,
		OldConfidence: mapping.Confidence,
		NewConfidence: req.Confidence,
		Note:          note,
		Actor:         req.Actor,
	}

	mapping.Status = req.Status
	mapping.Confidence = req.Confidence
	mapping.UserNote = note
	mapping.Version = req.ExpectedVersion

	if req.Status.RequiresVerifiedAt() {
		now := time.Now()
		mapping.VerifiedAt = &now
	} else {
		mapping.VerifiedAt = nil
	}

	if err := s.mappingRepo.ApplyCuration(ctx, mapping, event); err != nil {
		return nil, err
	}

	s.logger.Info("mapping curated",
		zap.String("mapping_id", mapping.ID.String()),
		zap.String("old_status", string(event.OldStatus)),
		zap.String("new_status", string(event.NewStatus)),
		zap.Int("old_confidence", event.OldConfidence),
		zap.Int("new_confidence", event.NewConfidence),
		zap.String("actor", req.Actor),
	)

	return mapping, nil
}

func (s *curationService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(s.engineCfg.RepositoryTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func validateCurateRequest(req CurateRequest) error {
	if req.MappingID == uuid.Nil {
		return fmt.Errorf("mapping_id is required: %w", apperrors.ErrValidation)
	}
	if !models.IsValidMappingStatus(req.Status) {
		return fmt.Errorf("unknown status %q: %w", req.Status, apperrors.ErrValidation)
	}
	if !models.IsValidConfidence(req.Confidence) {
		return fmt.Errorf("confidence %d out of range 0-100: %w", req.Confidence, apperrors.ErrValidation)
	}
	if req.Actor == "" {
		return fmt.Errorf("actor is required: %w", apperrors.ErrValidation)
	}
	return nil
}

func equalNotes(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
