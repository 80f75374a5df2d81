package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/tarifbridge/tarif-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// ResolveRequestBody for POST /api/resolve and /api/resolve/candidates.
type ResolveRequestBody struct {
	Positions []services.ResolveRequest `json:"positions"`

	// MinConfidence applies to candidate resolution only. Omitted or negative
	// means the configured default.
	MinConfidence *int `json:"min_confidence,omitempty"`
}

// ResolveBestResponse for POST /api/resolve.
type ResolveBestResponse struct {
	Items []services.ResolvedItem `json:"items"`
	Total int                     `json:"total"`
}

// ResolveCandidatesResponse for POST /api/resolve/candidates.
type ResolveCandidatesResponse struct {
	Positions []services.PositionCandidates `json:"positions"`
	Totals    services.ResolutionTotals     `json:"totals"`
}

// ============================================================================
// Handler
// ============================================================================

// ResolutionHandler handles translation HTTP requests.
type ResolutionHandler struct {
	resolutionService services.ResolutionService
	logger            *zap.Logger
}

// NewResolutionHandler creates a new resolution handler.
func NewResolutionHandler(resolutionService services.ResolutionService, logger *zap.Logger) *ResolutionHandler {
	return &ResolutionHandler{
		resolutionService: resolutionService,
		logger:            logger,
	}
}

// RegisterRoutes registers the resolution handler's routes on the given mux.
func (h *ResolutionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/resolve", h.ResolveBest)
	mux.HandleFunc("POST /api/resolve/candidates", h.ResolveCandidates)
	mux.HandleFunc("GET /api/codes/{code}", h.LookupCode)
}

// ResolveBest handles POST /api/resolve
func (h *ResolutionHandler) ResolveBest(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	items, err := h.resolutionService.ResolveBest(r.Context(), req.Positions)
	if err != nil {
		h.logger.Error("Failed to resolve positions",
			zap.Int("positions", len(req.Positions)),
			zap.Error(err))
		status, code := statusAndCode(err)
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ResolveBestResponse{
		Items: items,
		Total: len(items),
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// LookupCode handles GET /api/codes/{code}
func (h *ResolutionHandler) LookupCode(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	legacy, err := h.resolutionService.LookupCode(r.Context(), code)
	if err != nil {
		h.logger.Error("Failed to look up legacy code",
			zap.String("code", code),
			zap.Error(err))
		status, errCode := statusAndCode(err)
		if err := ErrorResponse(w, status, errCode, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: legacy}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ResolveCandidates handles POST /api/resolve/candidates
func (h *ResolutionHandler) ResolveCandidates(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	minConfidence := -1
	if req.MinConfidence != nil {
		minConfidence = *req.MinConfidence
	}

	positions, err := h.resolutionService.ResolveCandidates(r.Context(), req.Positions, minConfidence)
	if err != nil {
		h.logger.Error("Failed to resolve candidates",
			zap.Int("positions", len(req.Positions)),
			zap.Error(err))
		status, code := statusAndCode(err)
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ResolveCandidatesResponse{
		Positions: positions,
		Totals:    h.resolutionService.Totals(positions),
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
