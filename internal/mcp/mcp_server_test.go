package mcp_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/huangsam/sca/internal/agentdb"
	"github.com/huangsam/sca/internal/contract"
	mcp_internal "github.com/huangsam/sca/internal/mcp"
	"github.com/huangsam/sca/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *server.MCPServer {
	t.Helper()
	store, err := agentdb.Open(schema.SQLiteBackend, t.TempDir())
	require.NoError(t, err)
	require.NoError(t, agentdb.Seed(context.Background(), store, "001", agentdb.SampleReports()...))

	baseCfg := &contract.Config{Backend: schema.SQLiteBackend, Timeout: 5 * time.Second}
	return mcp_internal.NewMCPServer(baseCfg, store)
}

func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	require.NotNil(t, res)
	return res
}

func decodeEnvelope(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.False(t, res.IsError, "unexpected tool error: %v", res.Content)
	var envelope map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].(mcp.TextContent).Text), &envelope))
	return envelope
}

func errorText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.True(t, res.IsError, "The response should indicate an error state")
	return res.Content[0].(mcp.TextContent).Text
}

func TestGetPoliciesTool(t *testing.T) {
	s := newTestServer(t)

	t.Run("mixed agents", func(t *testing.T) {
		envelope := decodeEnvelope(t, callTool(t, s, "get_sca_policies", map[string]any{
			"agent_id": "001,099",
			"select":   "policy_id,name",
			"sort":     "-policy_id",
			"pretty":   true,
		}))
		assert.Equal(t, float64(2), envelope["total_affected_items"])
		assert.Equal(t, float64(1), envelope["total_failed_items"])
		assert.Equal(t, "Some sca information was not returned", envelope["message"])

		items := envelope["affected_items"].([]any)
		require.Len(t, items, 2)
		first := items[0].(map[string]any)
		assert.Equal(t, "sca_unix_audit", first["policy_id"])
		assert.Len(t, first, 2)
	})

	t.Run("filter and search", func(t *testing.T) {
		envelope := decodeEnvelope(t, callTool(t, s, "get_sca_policies", map[string]any{
			"agent_id":    "001",
			"search":      "debian",
			"description": "",
		}))
		items := envelope["affected_items"].([]any)
		require.Len(t, items, 1)
		assert.Equal(t, agentdb.SampleDebianPolicy, items[0].(map[string]any)["policy_id"])
	})

	t.Run("limit zero", func(t *testing.T) {
		text := errorText(t, callTool(t, s, "get_sca_policies", map[string]any{
			"agent_id": "001",
			"limit":    0.0,
		}))
		assert.Contains(t, text, "1406")
	})

	t.Run("unknown select field", func(t *testing.T) {
		text := errorText(t, callTool(t, s, "get_sca_policies", map[string]any{
			"agent_id": "001",
			"select":   "owner",
		}))
		assert.Contains(t, text, "1724")
	})

	t.Run("missing agent id", func(t *testing.T) {
		text := errorText(t, callTool(t, s, "get_sca_policies", map[string]any{}))
		assert.Contains(t, text, "agent_id is required")
	})
}

func TestGetChecksTool(t *testing.T) {
	s := newTestServer(t)

	t.Run("q filter", func(t *testing.T) {
		envelope := decodeEnvelope(t, callTool(t, s, "get_sca_checks", map[string]any{
			"agent_id":  "001",
			"policy_id": agentdb.SampleDebianPolicy,
			"q":         "result=failed",
		}))
		assert.Equal(t, "All selected sca/policy information was returned", envelope["message"])
		items := envelope["affected_items"].([]any)
		require.Len(t, items, 1)
		check := items[0].(map[string]any)
		assert.Equal(t, float64(3000), check["id"])
		assert.Len(t, check["compliance"], 2)
	})

	t.Run("result filter", func(t *testing.T) {
		envelope := decodeEnvelope(t, callTool(t, s, "get_sca_checks", map[string]any{
			"agent_id":  "001",
			"policy_id": agentdb.SampleDebianPolicy,
			"result":    "passed",
			"select":    "id",
		}))
		assert.Equal(t, float64(2), envelope["total_affected_items"])
	})

	t.Run("missing policy id", func(t *testing.T) {
		text := errorText(t, callTool(t, s, "get_sca_checks", map[string]any{"agent_id": "001"}))
		assert.Contains(t, text, "policy_id is required")
	})

	t.Run("invalid query", func(t *testing.T) {
		text := errorText(t, callTool(t, s, "get_sca_checks", map[string]any{
			"agent_id":  "001",
			"policy_id": agentdb.SampleDebianPolicy,
			"q":         "(result=failed",
		}))
		assert.Contains(t, text, "1407")
	})
}
