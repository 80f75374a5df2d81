package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tarifbridge/tarif-engine/pkg/apperrors"
	"github.com/tarifbridge/tarif-engine/pkg/database"
	"github.com/tarifbridge/tarif-engine/pkg/models"
)

// MappingRepository provides data access for legacy→successor mappings.
type MappingRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Mapping, error)

	// FindForLegacyIDs returns all mappings for the given legacy code ids with
	// confidence >= minConfidence, joined successor fields included. Ordering
	// is deterministic: confidence descending, then successor code ascending
	// (obsolete mappings last), then most recent update first.
	FindForLegacyIDs(ctx context.Context, legacyIDs []uuid.UUID, minConfidence int) ([]*models.Mapping, error)

	// List returns a filtered page of mappings ordered ascending by confidence
	// so the weakest mappings surface first, plus the total filtered count
	// independent of the pagination window.
	List(ctx context.Context, filter models.MappingFilter, offset, limit int) ([]*models.Mapping, int, error)

	Stats(ctx context.Context) (*models.MappingStats, error)

	// ApplyCuration atomically applies a curated mapping update and appends its
	// correction event in a single transaction. The mapping's Version field
	// must hold the version the caller read; a mismatch returns
	// apperrors.ErrConflict, an unknown id apperrors.ErrNotFound. On success
	// the mapping's Version and UpdatedAt reflect the written row.
	ApplyCuration(ctx context.Context, mapping *models.Mapping, event *models.CorrectionEvent) error
}

type mappingRepository struct {
	db *database.DB
}

// NewMappingRepository creates a new MappingRepository.
func NewMappingRepository(db *database.DB) MappingRepository {
	return &mappingRepository{db: db}
}

var _ MappingRepository = (*mappingRepository)(nil)

const mappingSelectColumns = `
	m.id, m.legacy_code_id, m.successor_code_id,
	m.confidence, m.ai_confidence, m.status, m.reasoning, m.user_note,
	m.verified_at, m.version, m.created_at, m.updated_at,
	s.code, s.title, s.base_value`

func (r *mappingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Mapping, error) {
	query := `
		SELECT ` + mappingSelectColumns + `
		FROM mappings m
		LEFT JOIN successor_codes s ON s.id = m.successor_code_id
		WHERE m.id = $1`

	row := r.db.QueryRow(ctx, query, id)
	mapping, err := scanMappingRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("mapping %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}

	return mapping, nil
}

func (r *mappingRepository) FindForLegacyIDs(ctx context.Context, legacyIDs []uuid.UUID, minConfidence int) ([]*models.Mapping, error) {
	if len(legacyIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + mappingSelectColumns + `
		FROM mappings m
		LEFT JOIN successor_codes s ON s.id = m.successor_code_id
		WHERE m.legacy_code_id = ANY($1) AND m.confidence >= $2
		ORDER BY m.confidence DESC, s.code ASC NULLS LAST, m.updated_at DESC`

	rows, err := r.db.Query(ctx, query, legacyIDs, minConfidence)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer rows.Close()

	return scanMappingRows(rows)
}

func (r *mappingRepository) List(ctx context.Context, filter models.MappingFilter, offset, limit int) ([]*models.Mapping, int, error) {
	where, args := buildMappingFilter(filter)

	countQuery := `SELECT COUNT(*) FROM mappings m` + where

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count mappings: %w", err)
	}

	query := `
		SELECT ` + mappingSelectColumns + `
		FROM mappings m
		LEFT JOIN successor_codes s ON s.id = m.successor_code_id` + where + `
		ORDER BY m.confidence ASC, m.updated_at DESC, m.id ASC
		OFFSET $` + fmt.Sprint(len(args)+1) + ` LIMIT $` + fmt.Sprint(len(args)+2)

	args = append(args, offset, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list mappings: %w", err)
	}
	defer rows.Close()

	mappings, err := scanMappingRows(rows)
	if err != nil {
		return nil, 0, err
	}

	return mappings, total, nil
}

func (r *mappingRepository) Stats(ctx context.Context) (*models.MappingStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE confidence >= 60),
		       COUNT(*) FILTER (WHERE confidence >= 80),
		       COUNT(*) FILTER (WHERE status = 'verified'),
		       COUNT(*) FILTER (WHERE confidence < 40)
		FROM mappings`

	var stats models.MappingStats
	err := r.db.QueryRow(ctx, query).Scan(
		&stats.Total, &stats.GE60, &stats.GE80, &stats.Verified, &stats.LT40,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute mapping stats: %w", err)
	}

	return &stats, nil
}

func (r *mappingRepository) ApplyCuration(ctx context.Context, mapping *models.Mapping, event *models.CorrectionEvent) error {
	now := time.Now()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	updateQuery := `
		UPDATE mappings
		SET status = $2,
		    confidence = $3,
		    user_note = $4,
		    verified_at = $5,
		    updated_at = $6,
		    version = version + 1
		WHERE id = $1 AND version = $7`

	result, err := tx.Exec(ctx, updateQuery,
		mapping.ID, mapping.Status, mapping.Confidence, mapping.UserNote,
		mapping.VerifiedAt, now, mapping.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update mapping: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish a stale version from a missing row.
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM mappings WHERE id = $1)`, mapping.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check mapping existence: %w", err)
		}
		if exists {
			return fmt.Errorf("mapping %s was modified concurrently: %w", mapping.ID, apperrors.ErrConflict)
		}
		return fmt.Errorf("mapping %s: %w", mapping.ID, apperrors.ErrNotFound)
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = now

	insertQuery := `
		INSERT INTO correction_events (
			id, mapping_id, action, old_status, new_status,
			old_confidence, new_confidence, note, actor, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = tx.Exec(ctx, insertQuery,
		event.ID, event.MappingID, event.Action, event.OldStatus, event.NewStatus,
		event.OldConfidence, event.NewConfidence, event.Note, event.Actor, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert correction event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit curation transaction: %w", err)
	}

	mapping.Version++
	mapping.UpdatedAt = now

	return nil
}

// ============================================================================
// Helper Functions - Filter & Scan
// ============================================================================

func buildMappingFilter(filter models.MappingFilter) (string, []any) {
	var clauses []string
	var args []any

	switch filter.Band {
	case models.BandHigh:
		clauses = append(clauses, "m.confidence >= 80")
	case models.BandMedium:
		clauses = append(clauses, "m.confidence >= 60 AND m.confidence < 80")
	case models.BandLow:
		clauses = append(clauses, "m.confidence < 60")
	}

	if filter.Status != "" && filter.Status != "all" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("m.status = $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}

	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

func scanMappingRow(row pgx.Row) (*models.Mapping, error) {
	var m models.Mapping

	err := row.Scan(
		&m.ID, &m.LegacyCodeID, &m.SuccessorCodeID,
		&m.Confidence, &m.AIConfidence, &m.Status, &m.Reasoning, &m.UserNote,
		&m.VerifiedAt, &m.Version, &m.CreatedAt, &m.UpdatedAt,
		&m.SuccessorCode, &m.SuccessorTitle, &m.SuccessorValue,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan mapping: %w", err)
	}

	return &m, nil
}

func scanMappingRows(rows pgx.Rows) ([]*models.Mapping, error) {
	var mappings []*models.Mapping

	for rows.Next() {
		var m models.Mapping

		err := rows.Scan(
			&m.ID, &m.LegacyCodeID, &m.SuccessorCodeID,
			&m.Confidence, &m.AIConfidence, &m.Status, &m.Reasoning, &m.UserNote,
			&m.VerifiedAt, &m.Version, &m.CreatedAt, &m.UpdatedAt,
			&m.SuccessorCode, &m.SuccessorTitle, &m.SuccessorValue,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping row: %w", err)
		}

		mappings = append(mappings, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mapping rows: %w", err)
	}

	return mappings, nil
}
