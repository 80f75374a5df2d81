package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/tarifbridge/tarif-engine/pkg/apperrors"
	"github.com/tarifbridge/tarif-engine/pkg/models"
	"github.com/tarifbridge/tarif-engine/pkg/services"
)

// AggregationToolDeps contains dependencies for aggregation tools.
type AggregationToolDeps struct {
	AggregationService services.AggregationService
	Logger             *zap.Logger
}

// RegisterAggregationTools registers listing and statistics MCP tools.
func RegisterAggregationTools(s *server.MCPServer, deps *AggregationToolDeps) {
	registerListMappingsTool(s, deps)
	registerMappingStatsTool(s, deps)
	registerRecentCorrectionsTool(s, deps)
}

func registerListMappingsTool(s *server.MCPServer, deps *AggregationToolDeps) {
	tool := mcp.NewTool(
		"list_mappings",
		mcp.WithDescription(
			"List mappings filtered by confidence band and status, weakest "+
				"confidence first so the mappings most in need of review surface at "+
				"the top. Returns the page plus the total filtered count.",
		),
		mcp.WithString("band",
			mcp.Description("Confidence band: all, high (>=80), medium (60-79), low (<60)"),
		),
		mcp.WithString("status",
			mcp.Description("Status filter: all, suggested, accepted, verified, rejected"),
		),
		mcp.WithNumber("offset", mcp.Description("Pagination offset")),
		mcp.WithNumber("limit", mcp.Description("Page size")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter := models.MappingFilter{
			Band:   models.ConfidenceBand(req.GetString("band", "")),
			Status: models.MappingStatus(req.GetString("status", "")),
		}

		mappings, total, err := deps.AggregationService.List(ctx,
			filter, req.GetInt("offset", 0), req.GetInt("limit", 0))
		if err != nil {
			if errors.Is(err, apperrors.ErrValidation) {
				return NewErrorResult("validation_error", err.Error()), nil
			}
			deps.Logger.Error("list_mappings tool failed", zap.Error(err))
			return nil, fmt.Errorf("failed to list mappings: %w", err)
		}

		result, err := json.Marshal(map[string]any{"mappings": mappings, "total": total})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal mapping list: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}

func registerMappingStatsTool(s *server.MCPServer, deps *AggregationToolDeps) {
	tool := mcp.NewTool(
		"mapping_stats",
		mcp.WithDescription(
			"Exact counts over the full mapping population: total, confidence >= 60, "+
				"confidence >= 80, verified, and confidence < 40.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := deps.AggregationService.Stats(ctx)
		if err != nil {
			deps.Logger.Error("mapping_stats tool failed", zap.Error(err))
			return nil, fmt.Errorf("failed to compute mapping stats: %w", err)
		}

		result, err := json.Marshal(stats)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stats: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}

func registerRecentCorrectionsTool(s *server.MCPServer, deps *AggregationToolDeps) {
	tool := mcp.NewTool(
		"recent_corrections",
		mcp.WithDescription(
			"Most recent audit events from the correction trail, newest first, "+
				"each with the legacy code of its parent mapping.",
		),
		mcp.WithNumber("limit", mcp.Description("Maximum number of events to return")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		corrections, err := deps.AggregationService.RecentCorrections(ctx, req.GetInt("limit", 0))
		if err != nil {
			deps.Logger.Error("recent_corrections tool failed", zap.Error(err))
			return nil, fmt.Errorf("failed to list recent corrections: %w", err)
		}

		result, err := json.Marshal(map[string]any{"corrections": corrections, "total": len(corrections)})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal corrections: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}
