// Package fees implements the monetary arithmetic of the fee schedules.
// All computation uses decimal arithmetic at full precision; rounding to two
// fraction digits happens only at presentation time so rounding error never
// compounds across sums.
package fees

import (
	"github.com/shopspring/decimal"

	"github.com/tarifbridge/tarif-engine/pkg/models"
)

// DefaultFactor is the schedule-wide fallback multiplier, applied when
// neither the caller nor the legacy code supplies one.
var DefaultFactor = decimal.NewFromFloat(2.3)

// Amount computes base × quantity × factor.
func Amount(base decimal.Decimal, quantity int, factor decimal.Decimal) decimal.Decimal {
	return base.Mul(decimal.NewFromInt(int64(quantity))).Mul(factor)
}

// NormalizeQuantity maps absent or non-positive quantities to 1. Callers must
// reject negative quantities at their boundary before resolution; this is the
// default for the zero value, not a sanitizer.
func NormalizeQuantity(quantity int) int {
	if quantity <= 0 {
		return 1
	}
	return quantity
}

// EffectiveFactor picks the multiplier for a position: the caller-supplied
// factor if present and positive, else the legacy code's regular factor,
// else DefaultFactor.
func EffectiveFactor(requested *decimal.Decimal, legacy *models.LegacyCode) decimal.Decimal {
	if requested != nil && requested.IsPositive() {
		return *requested
	}
	if legacy != nil && legacy.FactorRegular.IsPositive() {
		return legacy.FactorRegular
	}
	return DefaultFactor
}

// FactorInBounds reports whether factor lies within [min, max]. Bounds are
// advisory: out-of-bounds factors are flagged for display, never rejected.
// A non-positive bound is treated as unset and does not constrain.
func FactorInBounds(factor, min, max decimal.Decimal) bool {
	if min.IsPositive() && factor.LessThan(min) {
		return false
	}
	if max.IsPositive() && factor.GreaterThan(max) {
		return false
	}
	return true
}

// Diff returns successor − legacy.
func Diff(successor, legacy decimal.Decimal) decimal.Decimal {
	return successor.Sub(legacy)
}

// PercentChange returns diff / legacy × 100, or nil when the legacy amount is
// not positive and the percentage is undefined.
func PercentChange(diff, legacy decimal.Decimal) *decimal.Decimal {
	if !legacy.IsPositive() {
		return nil
	}
	pct := diff.Div(legacy).Mul(decimal.NewFromInt(100))
	return &pct
}

// RoundAmount rounds to two fraction digits for presentation.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
