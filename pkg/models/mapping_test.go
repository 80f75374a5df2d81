package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidMappingStatus(t *testing.T) {
	for _, s := range ValidMappingStatuses {
		assert.True(t, IsValidMappingStatus(s), "expected %s to be valid", s)
	}

	assert.False(t, IsValidMappingStatus("pending"))
	assert.False(t, IsValidMappingStatus(""))
	assert.False(t, IsValidMappingStatus("VERIFIED"))
}

func TestMappingStatus_RequiresVerifiedAt(t *testing.T) {
	assert.True(t, MappingStatusVerified.RequiresVerifiedAt())
	assert.True(t, MappingStatusAccepted.RequiresVerifiedAt())
	assert.False(t, MappingStatusSuggested.RequiresVerifiedAt())
	assert.False(t, MappingStatusRejected.RequiresVerifiedAt())
	assert.False(t, MappingStatusDisputed.RequiresVerifiedAt())
}

func TestAuditActionForStatus(t *testing.T) {
	// verified and accepted both record "accepted" - the audit trail does not
	// distinguish them. Downstream consumers depend on this.
	assert.Equal(t, CorrectionActionAccepted, AuditActionForStatus(MappingStatusVerified))
	assert.Equal(t, CorrectionActionAccepted, AuditActionForStatus(MappingStatusAccepted))
	assert.Equal(t, CorrectionActionRejected, AuditActionForStatus(MappingStatusRejected))
	assert.Equal(t, CorrectionActionNoted, AuditActionForStatus(MappingStatusSuggested))
	assert.Equal(t, CorrectionActionNoted, AuditActionForStatus(MappingStatusDisputed))
}

func TestConfidenceBand_Matches(t *testing.T) {
	tests := []struct {
		band       ConfidenceBand
		confidence int
		want       bool
	}{
		{BandHigh, 80, true},
		{BandHigh, 100, true},
		{BandHigh, 79, false},
		{BandMedium, 60, true},
		{BandMedium, 79, true},
		{BandMedium, 80, false},
		{BandMedium, 59, false},
		{BandLow, 59, true},
		{BandLow, 0, true},
		{BandLow, 60, false},
		{BandAll, 0, true},
		{BandAll, 100, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.band.Matches(tt.confidence),
			"band %s confidence %d", tt.band, tt.confidence)
	}
}

func TestIsValidConfidence(t *testing.T) {
	assert.True(t, IsValidConfidence(0))
	assert.True(t, IsValidConfidence(100))
	assert.True(t, IsValidConfidence(50))
	assert.False(t, IsValidConfidence(-1))
	assert.False(t, IsValidConfidence(101))
}

func TestNormalizeNote(t *testing.T) {
	assert.Nil(t, NormalizeNote(""))

	note := NormalizeNote("checked against schedule")
	assert.NotNil(t, note)
	assert.Equal(t, "checked against schedule", *note)
}
