package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================================
// Mapping Status
// ============================================================================

// MappingStatus represents the review state of a legacy→successor mapping.
type MappingStatus string

const (
	MappingStatusSuggested MappingStatus = "suggested"
	MappingStatusAccepted  MappingStatus = "accepted"
	MappingStatusVerified  MappingStatus = "verified"
	MappingStatusRejected  MappingStatus = "rejected"
	MappingStatusDisputed  MappingStatus = "disputed"
)

// ValidMappingStatuses contains all valid status values.
var ValidMappingStatuses = []MappingStatus{
	MappingStatusSuggested,
	MappingStatusAccepted,
	MappingStatusVerified,
	MappingStatusRejected,
	MappingStatusDisputed,
}

// IsValidMappingStatus checks if the given status is valid.
func IsValidMappingStatus(s MappingStatus) bool {
	for _, v := range ValidMappingStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// RequiresVerifiedAt reports whether a mapping in this status must carry a
// verified_at timestamp. verified_at is non-null iff the status is verified
// or accepted at the time of the last curation write.
func (s MappingStatus) RequiresVerifiedAt() bool {
	return s == MappingStatusVerified || s == MappingStatusAccepted
}

// ============================================================================
// Confidence Bands
// ============================================================================

// ConfidenceBand groups mappings by confidence for filtering and display.
type ConfidenceBand string

const (
	BandAll    ConfidenceBand = "all"
	BandHigh   ConfidenceBand = "high"   // confidence >= 80
	BandMedium ConfidenceBand = "medium" // 60 <= confidence < 80
	BandLow    ConfidenceBand = "low"    // confidence < 60
)

// IsValidConfidenceBand checks if the given band is valid.
func IsValidConfidenceBand(b ConfidenceBand) bool {
	switch b {
	case BandAll, BandHigh, BandMedium, BandLow:
		return true
	}
	return false
}

// Matches reports whether a confidence value falls into this band.
func (b ConfidenceBand) Matches(confidence int) bool {
	switch b {
	case BandHigh:
		return confidence >= 80
	case BandMedium:
		return confidence >= 60 && confidence < 80
	case BandLow:
		return confidence < 60
	default:
		return true
	}
}

// ============================================================================
// Mapping
// ============================================================================

// Mapping is a scored, human-curatable link from one legacy code to one
// successor code. A nil SuccessorCodeID means the legacy code is obsolete
// and has no successor; that is distinct from no Mapping row existing.
type Mapping struct {
	ID              uuid.UUID  `json:"id"`
	LegacyCodeID    uuid.UUID  `json:"legacy_code_id"`
	SuccessorCodeID *uuid.UUID `json:"successor_code_id,omitempty"`

	Confidence   int  `json:"confidence"`              // 0-100
	AIConfidence *int `json:"ai_confidence,omitempty"` // set once externally, never mutated here

	Status    MappingStatus `json:"status"`
	Reasoning *string       `json:"reasoning,omitempty"` // external origin, read-only
	UserNote  *string       `json:"user_note,omitempty"`

	VerifiedAt *time.Time `json:"verified_at,omitempty"`

	// Version is a monotonic sequence incremented on every curation write.
	// Curation callers must supply the version they read; a mismatch is
	// rejected as a conflict instead of silently overwriting.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Joined successor fields, populated by resolution reads. Nil/empty when
	// the mapping has no successor code.
	SuccessorCode  *string          `json:"successor_code,omitempty"`
	SuccessorTitle *string          `json:"successor_title,omitempty"`
	SuccessorValue *decimal.Decimal `json:"successor_value,omitempty"`
}

// IsValidConfidence checks that a confidence value is within 0-100.
func IsValidConfidence(confidence int) bool {
	return confidence >= 0 && confidence <= 100
}

// NormalizeNote converts an empty or whitespace-free empty note to nil so the
// store never holds empty strings.
func NormalizeNote(note string) *string {
	if note == "" {
		return nil
	}
	return &note
}

// ============================================================================
// Listing & Statistics
// ============================================================================

// MappingFilter narrows a mapping listing. Zero values mean "all".
type MappingFilter struct {
	Band   ConfidenceBand `json:"band,omitempty"`
	Status MappingStatus  `json:"status,omitempty"`
}

// MappingStats holds exact counts over the full mapping population.
type MappingStats struct {
	Total    int `json:"total"`
	GE60     int `json:"ge60"`
	GE80     int `json:"ge80"`
	Verified int `json:"verified"`
	LT40     int `json:"lt40"`
}
