package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tarifbridge/tarif-engine/pkg/apperrors"
)

// ApiResponse wraps data in the format expected by hosts of the engine.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// statusAndCode maps an engine error to an HTTP status and a stable error code.
func statusAndCode(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrNoChange):
		return http.StatusConflict, "no_change"
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, "version_conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
