package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tarifbridge/tarif-engine/pkg/models"
	"github.com/tarifbridge/tarif-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// CurateMappingRequest for POST /api/mappings/{id}/curate.
type CurateMappingRequest struct {
	Status          models.MappingStatus `json:"status"`
	Confidence      int                  `json:"confidence"`
	Note            string               `json:"note,omitempty"`
	Actor           string               `json:"actor"`
	ExpectedVersion int64                `json:"expected_version"`
}

// MappingListResponse for GET /api/mappings.
type MappingListResponse struct {
	Mappings []*models.Mapping `json:"mappings"`
	Total    int               `json:"total"`
	Offset   int               `json:"offset"`
	Limit    int               `json:"limit"`
}

// RecentCorrectionsResponse for GET /api/corrections/recent.
type RecentCorrectionsResponse struct {
	Corrections []*models.CorrectionEvent `json:"corrections"`
	Total       int                       `json:"total"`
}

// ============================================================================
// Handler
// ============================================================================

// MappingHandler handles mapping curation and aggregation HTTP requests.
type MappingHandler struct {
	curationService    services.CurationService
	aggregationService services.AggregationService
	logger             *zap.Logger
}

// NewMappingHandler creates a new mapping handler.
func NewMappingHandler(
	curationService services.CurationService,
	aggregationService services.AggregationService,
	logger *zap.Logger,
) *MappingHandler {
	return &MappingHandler{
		curationService:    curationService,
		aggregationService: aggregationService,
		logger:             logger,
	}
}

// RegisterRoutes registers the mapping handler's routes on the given mux.
func (h *MappingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/mappings", h.List)
	mux.HandleFunc("POST /api/mappings/{id}/curate", h.Curate)
	mux.HandleFunc("GET /api/stats", h.Stats)
	mux.HandleFunc("GET /api/corrections/recent", h.RecentCorrections)
}

// List handles GET /api/mappings
func (h *MappingHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := models.MappingFilter{
		Band:   models.ConfidenceBand(query.Get("band")),
		Status: models.MappingStatus(query.Get("status")),
	}
	offset, err := parseQueryInt(query.Get("offset"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_parameters", "offset must be an integer"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	limit, err := parseQueryInt(query.Get("limit"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_parameters", "limit must be an integer"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	mappings, total, err := h.aggregationService.List(r.Context(), filter, offset, limit)
	if err != nil {
		h.logger.Error("Failed to list mappings",
			zap.String("band", string(filter.Band)),
			zap.String("status", string(filter.Status)),
			zap.Error(err))
		status, code := statusAndCode(err)
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if mappings == nil {
		mappings = []*models.Mapping{}
	}

	response := MappingListResponse{
		Mappings: mappings,
		Total:    total,
		Offset:   offset,
		Limit:    limit,
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// parseQueryInt parses an optional integer query parameter; absent means 0.
func parseQueryInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// Curate handles POST /api/mappings/{id}/curate
func (h *MappingHandler) Curate(w http.ResponseWriter, r *http.Request) {
	mappingID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_mapping_id", "Invalid mapping id"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var req CurateMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	mapping, err := h.curationService.Curate(r.Context(), services.CurateRequest{
		MappingID:       mappingID,
		ExpectedVersion: req.ExpectedVersion,
		Status:          req.Status,
		Confidence:      req.Confidence,
		Note:            req.Note,
		Actor:           req.Actor,
	})
	if err != nil {
		h.logger.Error("Failed to curate mapping",
			zap.String("mapping_id", mappingID.String()),
			zap.String("actor", req.Actor),
			zap.Error(err))
		status, code := statusAndCode(err)
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: mapping}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Stats handles GET /api/stats
func (h *MappingHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.aggregationService.Stats(r.Context())
	if err != nil {
		h.logger.Error("Failed to compute mapping stats", zap.Error(err))
		status, code := statusAndCode(err)
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: stats}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// RecentCorrections handles GET /api/corrections/recent
func (h *MappingHandler) RecentCorrections(w http.ResponseWriter, r *http.Request) {
	limit, err := parseQueryInt(r.URL.Query().Get("limit"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_parameters", "limit must be an integer"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	corrections, err := h.aggregationService.RecentCorrections(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list recent corrections", zap.Error(err))
		status, code := statusAndCode(err)
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if corrections == nil {
		corrections = []*models.CorrectionEvent{}
	}

	response := RecentCorrectionsResponse{
		Corrections: corrections,
		Total:       len(corrections),
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
