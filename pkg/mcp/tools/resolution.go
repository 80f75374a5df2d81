// Package tools provides MCP tool implementations for tarif-engine.
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
	"github.com/tarifbridge/tarif-engine/pkg/services"
)

// ResolutionToolDeps contains dependencies for resolution tools.
type ResolutionToolDeps struct {
	ResolutionService services.ResolutionService
	Logger            *zap.Logger
}

// RegisterResolutionTools registers translation-related MCP tools.
func RegisterResolutionTools(s *server.MCPServer, deps *ResolutionToolDeps) {
	registerResolveCodesTool(s, deps)
	registerResolveCandidatesTool(s, deps)
	registerLookupCodeTool(s, deps)
}

var positionItemsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"code":     map[string]any{"type": "string", "description": "Legacy fee schedule code"},
		"quantity": map[string]any{"type": "integer", "description": "Billed quantity, defaults to 1"},
		"factor":   map[string]any{"type": "number", "description": "Multiplier factor, defaults to the code's regular factor"},
	},
	"required": []string{"code"},
}

// registerResolveCodesTool adds the resolve_codes tool: single-best
// translation of legacy billing positions.
func registerResolveCodesTool(s *server.MCPServer, deps *ResolutionToolDeps) {
	tool := mcp.NewTool(
		"resolve_codes",
		mcp.WithDescription(
			"Translate legacy fee schedule positions to their best successor mapping. "+
				"Returns one item per position in input order, with legacy and successor "+
				"amounts, diff, and the mapping's confidence and status. Unknown codes "+
				"come back marked not found instead of failing the batch.",
		),
		mcp.WithArray(
			"positions",
			mcp.Required(),
			mcp.Description("Billing positions to translate"),
			mcp.Items(positionItemsSchema),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		positions, err := parsePositions(req)
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		items, err := deps.ResolutionService.ResolveBest(ctx, positions)
		if err != nil {
			deps.Logger.Error("resolve_codes tool failed",
				zap.Int("positions", len(positions)),
				zap.Error(err))
			return nil, fmt.Errorf("failed to resolve positions: %w", err)
		}

		result, err := json.Marshal(map[string]any{"items": items, "total": len(items)})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal resolve result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}

// registerResolveCandidatesTool adds the resolve_candidates tool: every
// qualifying mapping per position so a curator can pick among them.
func registerResolveCandidatesTool(s *server.MCPServer, deps *ResolutionToolDeps) {
	tool := mcp.NewTool(
		"resolve_candidates",
		mcp.WithDescription(
			"List all plausible successor mappings per legacy position, sorted by "+
				"confidence descending. Candidates at or above the auto-select threshold "+
				"are pre-selected. Use this instead of resolve_codes when a human should "+
				"choose among several plausible mappings.",
		),
		mcp.WithArray(
			"positions",
			mcp.Required(),
			mcp.Description("Billing positions to translate"),
			mcp.Items(positionItemsSchema),
		),
		mcp.WithNumber(
			"min_confidence",
			mcp.Description("Confidence floor for candidates (0-100). Omit for the configured default."),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		positions, err := parsePositions(req)
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		minConfidence := req.GetInt("min_confidence", -1)

		candidates, err := deps.ResolutionService.ResolveCandidates(ctx, positions, minConfidence)
		if err != nil {
			deps.Logger.Error("resolve_candidates tool failed",
				zap.Int("positions", len(positions)),
				zap.Error(err))
			return nil, fmt.Errorf("failed to resolve candidates: %w", err)
		}

		result, err := json.Marshal(map[string]any{
			"positions": candidates,
			"totals":    deps.ResolutionService.Totals(candidates),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal candidates result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}

// registerLookupCodeTool adds the lookup_code tool: schedule details for a
// single legacy code.
func registerLookupCodeTool(s *server.MCPServer, deps *ResolutionToolDeps) {
	tool := mcp.NewTool(
		"lookup_code",
		mcp.WithDescription(
			"Look up one legacy fee schedule code: description, base fee, and "+
				"factor bounds. Use before resolving when the caller needs the "+
				"schedule entry itself rather than a translation.",
		),
		mcp.WithString(
			"code",
			mcp.Required(),
			mcp.Description("Legacy fee schedule code"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code, err := req.RequireString("code")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		legacy, err := deps.ResolutionService.LookupCode(ctx, code)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrValidation):
				return NewErrorResult("validation_error", err.Error()), nil
			case errors.Is(err, apperrors.ErrNotFound):
				return NewErrorResult("not_found", err.Error()), nil
			}
			deps.Logger.Error("lookup_code tool failed",
				zap.String("code", code),
				zap.Error(err))
			return nil, fmt.Errorf("failed to look up code: %w", err)
		}

		result, err := json.Marshal(legacy)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal legacy code: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}

// parsePositions parses the positions array from a tool request.
func parsePositions(req mcp.CallToolRequest) ([]services.ResolveRequest, error) {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid request arguments")
	}

	raw, ok := args["positions"]
	if !ok {
		return nil, fmt.Errorf("'positions' is required")
	}

	// Round-trip through JSON to get typed positions out of the generic map.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid 'positions' value: %w", err)
	}

	var positions []services.ResolveRequest
	if err := json.Unmarshal(encoded, &positions); err != nil {
		return nil, fmt.Errorf("'positions' must be an array of {code, quantity, factor}: %w", err)
	}
	if len(positions) == 0 {
		return nil, fmt.Errorf("'positions' must not be empty")
	}

	return positions, nil
}
