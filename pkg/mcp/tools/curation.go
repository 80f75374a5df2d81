package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/tarifbridge/tarif-engine/pkg/apperrors"
	"github.com/tarifbridge/tarif-engine/pkg/models"
	"github.com/tarifbridge/tarif-engine/pkg/services"
)

// CurationToolDeps contains dependencies for curation tools.
type CurationToolDeps struct {
	CurationService services.CurationService
	Logger          *zap.Logger
}

// RegisterCurationTools registers curation-related MCP tools.
func RegisterCurationTools(s *server.MCPServer, deps *CurationToolDeps) {
	registerCurateMappingTool(s, deps)
}

func registerCurateMappingTool(s *server.MCPServer, deps *CurationToolDeps) {
	tool := mcp.NewTool(
		"curate_mapping",
		mcp.WithDescription(
			"Apply a human-reviewed correction to a mapping: set its status, "+
				"confidence, and note. Writes exactly one audit event per call. "+
				"Requires the mapping version previously read; a stale version is "+
				"rejected as a conflict. A call that changes nothing is rejected.",
		),
		mcp.WithString(
			"mapping_id",
			mcp.Required(),
			mcp.Description("UUID of the mapping to curate"),
		),
		mcp.WithString(
			"status",
			mcp.Required(),
			mcp.Description("New status: suggested, accepted, verified, rejected, or disputed"),
		),
		mcp.WithNumber(
			"confidence",
			mcp.Required(),
			mcp.Description("New confidence (0-100)"),
		),
		mcp.WithNumber(
			"expected_version",
			mcp.Required(),
			mcp.Description("Mapping version the caller read"),
		),
		mcp.WithString(
			"note",
			mcp.Description("Optional curator note"),
		),
		mcp.WithString(
			"actor",
			mcp.Required(),
			mcp.Description("Free-text label of the curator"),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		idStr, err := req.RequireString("mapping_id")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		mappingID, err := uuid.Parse(idStr)
		if err != nil {
			return NewErrorResult("invalid_parameters", fmt.Sprintf("invalid mapping_id: %v", err)), nil
		}

		status, err := req.RequireString("status")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		actor, err := req.RequireString("actor")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		curateReq := services.CurateRequest{
			MappingID:       mappingID,
			ExpectedVersion: int64(req.GetInt("expected_version", 0)),
			Status:          models.MappingStatus(status),
			Confidence:      req.GetInt("confidence", -1),
			Note:            req.GetString("note", ""),
			Actor:           actor,
		}

		mapping, err := deps.CurationService.Curate(ctx, curateReq)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrValidation):
				return NewErrorResult("validation_error", err.Error()), nil
			case errors.Is(err, apperrors.ErrNotFound):
				return NewErrorResult("not_found", err.Error()), nil
			case errors.Is(err, apperrors.ErrNoChange):
				return NewErrorResult("no_change", err.Error()), nil
			case errors.Is(err, apperrors.ErrConflict):
				return NewErrorResult("version_conflict", err.Error()), nil
			}
			deps.Logger.Error("curate_mapping tool failed",
				zap.String("mapping_id", mappingID.String()),
				zap.Error(err))
			return nil, fmt.Errorf("failed to curate mapping: %w", err)
		}

		result, err := json.Marshal(mapping)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal curated mapping: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}
