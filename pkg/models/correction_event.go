package models

import (
	"time"

	"github.com/google/uuid"
)

// CorrectionAction labels a correction event in the audit trail.
type CorrectionAction string

const (
	CorrectionActionAccepted  CorrectionAction = "accepted"
	CorrectionActionRejected  CorrectionAction = "rejected"
	CorrectionActionCorrected CorrectionAction = "corrected"
	CorrectionActionNoted     CorrectionAction = "noted"
)

// AuditActionForStatus derives the audit action recorded for a curation that
// moves a mapping into the given status. The mapping is lossy on purpose:
// both verified and accepted record action "accepted". External consumers of
// the audit trail rely on this exact behavior.
func AuditActionForStatus(s MappingStatus) CorrectionAction {
	switch s {
	case MappingStatusVerified, MappingStatusAccepted:
		return CorrectionActionAccepted
	case MappingStatusRejected:
		return CorrectionActionRejected
	default:
		return CorrectionActionNoted
	}
}

// CorrectionEvent is one immutable audit record of a curation act. Events are
// append-only: never updated, never deleted. Exactly one event is written per
// successful curation call, in the same transaction as the mapping update.
type CorrectionEvent struct {
	ID        uuid.UUID        `json:"id"`
	MappingID uuid.UUID        `json:"mapping_id"`
	Action    CorrectionAction `json:"action"`

	// Pre-image and post-image of the curated fields.
	OldStatus     MappingStatus `json:"old_status"`
	NewStatus     MappingStatus `json:"new_status"`
	OldConfidence int           `json:"old_confidence"`
	NewConfidence int           `json:"new_confidence"`

	Note  *string `json:"note,omitempty"`
	Actor string  `json:"actor"` // free-text curator label, identity is external

	CreatedAt time.Time `json:"created_at"`

	// LegacyCode is the business key of the parent mapping's legacy code,
	// joined in for display on recent-activity reads. Not a stored column.
	LegacyCode string `json:"legacy_code,omitempty"`
}
