package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SuccessorCode is a billable item under the new fee schedule.
// Same lifecycle as LegacyCode: external import only, read-only here.
type SuccessorCode struct {
	ID        uuid.UUID       `json:"id"`
	Code      string          `json:"code"`
	Title     string          `json:"title"`
	BaseValue decimal.Decimal `json:"base_value"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
