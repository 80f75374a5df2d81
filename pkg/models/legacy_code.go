package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LegacyCode is a billable item under the old fee schedule.
// Reference data: rows are created and updated only by external schedule
// imports, never by this engine.
type LegacyCode struct {
	ID          uuid.UUID       `json:"id"`
	Code        string          `json:"code"` // unique business key
	Description string          `json:"description"`
	BaseFee     decimal.Decimal `json:"base_fee"`

	// Schedule-defined multiplier bounds. FactorRegular is the default
	// factor applied when the caller does not supply one.
	FactorMin     decimal.Decimal `json:"factor_min"`
	FactorRegular decimal.Decimal `json:"factor_regular"`
	FactorMax     decimal.Decimal `json:"factor_max"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
