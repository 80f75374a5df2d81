package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tarifbridge/tarif-engine/pkg/database"
	"github.com/tarifbridge/tarif-engine/pkg/models"
)

// CorrectionEventRepository provides read access to the append-only audit
// trail. Events are written only through MappingRepository.ApplyCuration so
// the mapping update and its event share one transaction.
type CorrectionEventRepository interface {
	// ListRecent returns the newest events first, each enriched with the
	// legacy code of its parent mapping for display.
	ListRecent(ctx context.Context, limit int) ([]*models.CorrectionEvent, error)
}

type correctionEventRepository struct {
	db *database.DB
}

// NewCorrectionEventRepository creates a new CorrectionEventRepository.
func NewCorrectionEventRepository(db *database.DB) CorrectionEventRepository {
	return &correctionEventRepository{db: db}
}

var _ CorrectionEventRepository = (*correctionEventRepository)(nil)

func (r *correctionEventRepository) ListRecent(ctx context.Context, limit int) ([]*models.CorrectionEvent, error) {
	query := `
		SELECT e.id, e.mapping_id, e.action, e.old_status, e.new_status,
		       e.old_confidence, e.new_confidence, e.note, e.actor, e.created_at,
		       l.code
		FROM correction_events e
		JOIN mappings m ON m.id = e.mapping_id
		JOIN legacy_codes l ON l.id = m.legacy_code_id
		ORDER BY e.created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent corrections: %w", err)
	}
	defer rows.Close()

	return scanCorrectionEventRows(rows)
}

// ============================================================================
// Helper Functions - Scan
// ============================================================================

func scanCorrectionEventRows(rows pgx.Rows) ([]*models.CorrectionEvent, error) {
	var events []*models.CorrectionEvent

	for rows.Next() {
		var e models.CorrectionEvent

		err := rows.Scan(
			&e.ID, &e.MappingID, &e.Action, &e.OldStatus, &e.NewStatus,
			&e.OldConfidence, &e.NewConfidence, &e.Note, &e.Actor, &e.CreatedAt,
			&e.LegacyCode,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan correction event row: %w", err)
		}

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating correction event rows: %w", err)
	}

	return events, nil
}
