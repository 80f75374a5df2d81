package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tarifbridge/tarif-engine/pkg/apperrors"
	"github.com/tarifbridge/tarif-engine/pkg/models"
)

// ============================================================================
// List Handler Tests
// ============================================================================

func TestMappingHandler_List_Success(t *testing.T) {
	mockAggregation := &mockAggregationServiceForHandler{
		mappings: []*models.Mapping{
			{ID: uuid.New(), Confidence: 85, Status: models.MappingStatusSuggested, Version: 1},
		},
		total: 12,
	}
	handler := NewMappingHandler(&mockCurationServiceForHandler{}, mockAggregation, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/mappings?band=high&status=suggested&offset=10&limit=5", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.BandHigh, mockAggregation.lastFilter.Band)
	assert.Equal(t, models.MappingStatusSuggested, mockAggregation.lastFilter.Status)
	assert.Equal(t, 10, mockAggregation.lastOffset)
	assert.Equal(t, 5, mockAggregation.lastLimit)

	var response ApiResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.True(t, response.Success)

	dataBytes, err := json.Marshal(response.Data)
	require.NoError(t, err)

	var listResponse MappingListResponse
	require.NoError(t, json.Unmarshal(dataBytes, &listResponse))

	assert.Equal(t, 12, listResponse.Total)
	require.Len(t, listResponse.Mappings, 1)
	assert.Equal(t, 85, listResponse.Mappings[0].Confidence)
}

func TestMappingHandler_List_EmptyResultIsArray(t *testing.T) {
	handler := NewMappingHandler(&mockCurationServiceForHandler{}, &mockAggregationServiceForHandler{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/mappings", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mappings":[]`)
}

func TestMappingHandler_List_RejectsNonNumericPaging(t *testing.T) {
	mockAggregation := &mockAggregationServiceForHandler{}
	handler := NewMappingHandler(&mockCurationServiceForHandler{}, mockAggregation, zap.NewNop())

	for _, target := range []string{"/api/mappings?offset=abc", "/api/mappings?limit=abc"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "target %s", target)

		var errResp map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
		assert.Equal(t, "invalid_parameters", errResp["error"])
	}
}

func TestMappingHandler_List_ValidationError(t *testing.T) {
	mockAggregation := &mockAggregationServiceForHandler{
		err: fmt.Errorf("unknown confidence band %q: %w", "extreme", apperrors.ErrValidation),
	}
	handler := NewMappingHandler(&mockCurationServiceForHandler{}, mockAggregation, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/mappings?band=extreme", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(t, "validation_error", errResp["error"])
}

// ============================================================================
// Curate Handler Tests
// ============================================================================

func TestMappingHandler_Curate_Success(t *testing.T) {
	mappingID := uuid.New()
	now := time.Now()
	mockCuration := &mockCurationServiceForHandler{
		mapping: &models.Mapping{
			ID:         mappingID,
			Confidence: 90,
			Status:     models.MappingStatusVerified,
			Version:    2,
			VerifiedAt: &now,
		},
	}
	handler := NewMappingHandler(mockCuration, &mockAggregationServiceForHandler{}, zap.NewNop())

	body := bytes.NewBufferString(`{"status":"verified","confidence":90,"note":"checked","actor":"reviewer","expected_version":1}`)
	req := httptest.NewRequest(http.MethodPost, "/api/mappings/"+mappingID.String()+"/curate", body)
	req.SetPathValue("id", mappingID.String())
	rec := httptest.NewRecorder()

	handler.Curate(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, mappingID, mockCuration.lastCurate.MappingID)
	assert.Equal(t, int64(1), mockCuration.lastCurate.ExpectedVersion)
	assert.Equal(t, models.MappingStatusVerified, mockCuration.lastCurate.Status)
	assert.Equal(t, 90, mockCuration.lastCurate.Confidence)
	assert.Equal(t, "checked", mockCuration.lastCurate.Note)
	assert.Equal(t, "reviewer", mockCuration.lastCurate.Actor)

	var response ApiResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.True(t, response.Success)

	dataBytes, err := json.Marshal(response.Data)
	require.NoError(t, err)

	var updated models.Mapping
	require.NoError(t, json.Unmarshal(dataBytes, &updated))
	assert.Equal(t, int64(2), updated.Version)
	assert.NotNil(t, updated.VerifiedAt)
}

func TestMappingHandler_Curate_InvalidID(t *testing.T) {
	handler := NewMappingHandler(&mockCurationServiceForHandler{}, &mockAggregationServiceForHandler{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/mappings/not-a-uuid/curate", bytes.NewBufferString(`{}`))
	req.SetPathValue("id", "not-a-uuid")
	rec := httptest.NewRecorder()

	handler.Curate(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(t, "invalid_mapping_id", errResp["error"])
}

func TestMappingHandler_Curate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{"not found", apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
		{"no change", apperrors.ErrNoChange, http.StatusConflict, "no_change"},
		{"version conflict", apperrors.ErrConflict, http.StatusConflict, "version_conflict"},
		{"validation", apperrors.ErrValidation, http.StatusBadRequest, "validation_error"},
		{"internal", fmt.Errorf("connection refused"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mappingID := uuid.New()
			mockCuration := &mockCurationServiceForHandler{curateErr: tt.serviceErr}
			handler := NewMappingHandler(mockCuration, &mockAggregationServiceForHandler{}, zap.NewNop())

			body := bytes.NewBufferString(`{"status":"verified","confidence":90,"actor":"reviewer","expected_version":1}`)
			req := httptest.NewRequest(http.MethodPost, "/api/mappings/"+mappingID.String()+"/curate", body)
			req.SetPathValue("id", mappingID.String())
			rec := httptest.NewRecorder()

			handler.Curate(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var errResp map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
			assert.Equal(t, tt.wantCode, errResp["error"])
		})
	}
}

// ============================================================================
// Stats Handler Tests
// ============================================================================

func TestMappingHandler_Stats_Success(t *testing.T) {
	mockAggregation := &mockAggregationServiceForHandler{
		stats: &models.MappingStats{Total: 42, GE60: 20, GE80: 9, Verified: 5, LT40: 11},
	}
	handler := NewMappingHandler(&mockCurationServiceForHandler{}, mockAggregation, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()

	handler.Stats(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response ApiResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.True(t, response.Success)

	dataBytes, err := json.Marshal(response.Data)
	require.NoError(t, err)

	var stats models.MappingStats
	require.NoError(t, json.Unmarshal(dataBytes, &stats))
	assert.Equal(t, 42, stats.Total)
	assert.Equal(t, 9, stats.GE80)
	assert.Equal(t, 11, stats.LT40)
}

// ============================================================================
// RecentCorrections Handler Tests
// ============================================================================

func TestMappingHandler_RecentCorrections_Success(t *testing.T) {
	mockAggregation := &mockAggregationServiceForHandler{
		events: []*models.CorrectionEvent{
			{ID: uuid.New(), Action: models.CorrectionActionAccepted, Actor: "reviewer", LegacyCode: "1"},
		},
	}
	handler := NewMappingHandler(&mockCurationServiceForHandler{}, mockAggregation, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/corrections/recent?limit=10", nil)
	rec := httptest.NewRecorder()

	handler.RecentCorrections(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, mockAggregation.lastLimit)

	var response ApiResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))

	dataBytes, err := json.Marshal(response.Data)
	require.NoError(t, err)

	var recent RecentCorrectionsResponse
	require.NoError(t, json.Unmarshal(dataBytes, &recent))

	assert.Equal(t, 1, recent.Total)
	require.Len(t, recent.Corrections, 1)
	assert.Equal(t, "1", recent.Corrections[0].LegacyCode)
}

func TestMappingHandler_RecentCorrections_RejectsNonNumericLimit(t *testing.T) {
	handler := NewMappingHandler(&mockCurationServiceForHandler{}, &mockAggregationServiceForHandler{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/corrections/recent?limit=abc", nil)
	rec := httptest.NewRecorder()

	handler.RecentCorrections(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(t, "invalid_parameters", errResp["error"])
}

func TestMappingHandler_RecentCorrections_EmptyResultIsArray(t *testing.T) {
	handler := NewMappingHandler(&mockCurationServiceForHandler{}, &mockAggregationServiceForHandler{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/corrections/recent", nil)
	rec := httptest.NewRecorder()

	handler.RecentCorrections(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"corrections":[]`)
}
