package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tarifbridge/tarif-engine/pkg/database"
	"github.com/tarifbridge/tarif-engine/pkg/models"
)

// LegacyCodeRepository provides read access to legacy fee schedule codes.
// Legacy codes are reference data maintained by external imports; the engine
// never writes them.
type LegacyCodeRepository interface {
	FindByCodes(ctx context.Context, codes []string) ([]*models.LegacyCode, error)
	GetByCode(ctx context.Context, code string) (*models.LegacyCode, error)
}

type legacyCodeRepository struct {
	db *database.DB
}

// NewLegacyCodeRepository creates a new LegacyCodeRepository.
func NewLegacyCodeRepository(db *database.DB) LegacyCodeRepository {
	return &legacyCodeRepository{db: db}
}

var _ LegacyCodeRepository = (*legacyCodeRepository)(nil)

func (r *legacyCodeRepository) FindByCodes(ctx context.Context, codes []string) ([]*models.LegacyCode, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, code, description, base_fee,
		       factor_min, factor_regular, factor_max,
		       created_at, updated_at
		FROM legacy_codes
		WHERE code = ANY($1)`

	rows, err := r.db.Query(ctx, query, codes)
	if err != nil {
		return nil, fmt.Errorf("failed to query legacy codes: %w", err)
	}
	defer rows.Close()

	return scanLegacyCodeRows(rows)
}

func (r *legacyCodeRepository) GetByCode(ctx context.Context, code string) (*models.LegacyCode, error) {
	query := `
		SELECT id, code, description, base_fee,
		       factor_min, factor_regular, factor_max,
		       created_at, updated_at
		FROM legacy_codes
		WHERE code = $1`

	row := r.db.QueryRow(ctx, query, code)

	var lc models.LegacyCode
	err := row.Scan(
		&lc.ID, &lc.Code, &lc.Description, &lc.BaseFee,
		&lc.FactorMin, &lc.FactorRegular, &lc.FactorMax,
		&lc.CreatedAt, &lc.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Unknown code is a normal result, not an error
		}
		return nil, fmt.Errorf("failed to scan legacy code: %w", err)
	}

	return &lc, nil
}

// ============================================================================
// Helper Functions - Scan
// ============================================================================

func scanLegacyCodeRows(rows pgx.Rows) ([]*models.LegacyCode, error) {
	var codes []*models.LegacyCode

	for rows.Next() {
		var lc models.LegacyCode

		err := rows.Scan(
			&lc.ID, &lc.Code, &lc.Description, &lc.BaseFee,
			&lc.FactorMin, &lc.FactorRegular, &lc.FactorMax,
			&lc.CreatedAt, &lc.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan legacy code row: %w", err)
		}

		codes = append(codes, &lc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating legacy code rows: %w", err)
	}

	return codes, nil
}
