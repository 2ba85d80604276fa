package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/huangsam/sca/core"
	"github.com/huangsam/sca/internal/contract"
	"github.com/huangsam/sca/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	backend contract.Backend
}

func (h *toolHandler) handleGetPolicies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.requestConfig(request, contract.PolicyFilterFields)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, cancel := cfg.RequestContext(ctx)
	defer cancel()

	result, err := core.NewService(h.backend).GetPolicies(ctx, cfg.Agents, core.QueryFromConfig(cfg))
	if err != nil {
		return toolError("policy listing failed", err), nil
	}
	return toolResult(result, request.GetBool("pretty", false))
}

func (h *toolHandler) handleGetChecks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.requestConfig(request, contract.CheckFilterFields)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cfg.PolicyID = request.GetString("policy_id", "")
	if cfg.PolicyID == "" {
		return mcp.NewToolResultError("policy_id is required"), nil
	}

	ctx, cancel := cfg.RequestContext(ctx)
	defer cancel()

	result, err := core.NewService(h.backend).GetChecks(ctx, cfg.Agents, cfg.PolicyID, core.QueryFromConfig(cfg))
	if err != nil {
		return toolError("check listing failed", err), nil
	}
	return toolResult(result, request.GetBool("pretty", false))
}

// requestConfig builds the listing configuration of one tool call on top of the base config.
func (h *toolHandler) requestConfig(request mcp.CallToolRequest, filterFields []string) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()

	cfg.Agents = contract.ParseList(request.GetString("agent_id", ""))
	if len(cfg.Agents) == 0 {
		return nil, fmt.Errorf("agent_id is required")
	}

	filters := make(map[string]string, len(filterFields))
	for _, field := range filterFields {
		filters[field] = request.GetString(field, "")
	}
	cfg.Filters = contract.RemoveNones(filters)

	cfg.Offset = request.GetInt("offset", 0)
	cfg.Limit = request.GetInt("limit", schema.DefaultDatabaseLimit)
	cfg.Sort = contract.ParseSort(request.GetString("sort", ""))
	cfg.Search = contract.ParseSearch(request.GetString("search", ""))
	cfg.Select = contract.ParseList(request.GetString("select", ""))
	cfg.Q = request.GetString("q", "")
	cfg.WaitForComplete = request.GetBool("wait_for_complete", false)
	return cfg, nil
}

// toolError renders err as a tool error, keeping the error code when it carries one.
func toolError(prefix string, err error) *mcp.CallToolResult {
	if coded, ok := schema.AsError(err); ok {
		slog.Debug("Tool call rejected", "code", coded.Code, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", prefix, coded.Error()))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", prefix, err))
}

// toolResult marshals the envelope as the text content of the tool result.
func toolResult(result *schema.AffectedItemsResult, pretty bool) (*mcp.CallToolResult, error) {
	var (
		jsonData []byte
		err      error
	)
	if pretty {
		jsonData, err = json.MarshalIndent(result, "", "  ")
	} else {
		jsonData, err = json.Marshal(result)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
