// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/sca/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the SCA MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, backend contract.Backend) *server.MCPServer {
	s := server.NewMCPServer(
		"SCA Query Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		backend: backend,
	}

	// --- 1. Tool: get_sca_policies ---
	policyOpts := []mcp.ToolOption{
		mcp.WithDescription("List the security configuration assessment policies applied to one or more agents, with the summary of their latest scan."),
		mcp.WithString("agent_id", mcp.Description("Comma-separated agent ids (e.g. '001,002')."), mcp.Required()),
	}
	policyOpts = append(policyOpts, filterOptions(contract.PolicyFilterFields)...)
	policyOpts = append(policyOpts, listingOptions()...)
	s.AddTool(mcp.NewTool("get_sca_policies", policyOpts...), h.handleGetPolicies)

	// --- 2. Tool: get_sca_checks ---
	checkOpts := []mcp.ToolOption{
		mcp.WithDescription("List the checks of one SCA policy on one or more agents, with their compliance mappings and rules."),
		mcp.WithString("agent_id", mcp.Description("Comma-separated agent ids (e.g. '001,002')."), mcp.Required()),
		mcp.WithString("policy_id", mcp.Description("Policy id whose checks are listed (e.g. 'cis_debian10')."), mcp.Required()),
	}
	checkOpts = append(checkOpts, filterOptions(contract.CheckFilterFields)...)
	checkOpts = append(checkOpts, listingOptions()...)
	s.AddTool(mcp.NewTool("get_sca_checks", checkOpts...), h.handleGetChecks)

	return s
}

// filterOptions declares one exact-match string parameter per filter field.
func filterOptions(fields []string) []mcp.ToolOption {
	opts := make([]mcp.ToolOption, 0, len(fields))
	for _, field := range fields {
		opts = append(opts, mcp.WithString(field, mcp.Description("Only return items whose "+field+" equals this value.")))
	}
	return opts
}

// listingOptions declares the paging, sorting, searching and projection parameters.
func listingOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("offset", mcp.Description("First element to return. Defaults to 0.")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of elements to return. Defaults to 500.")),
		mcp.WithString("sort", mcp.Description("Comma-separated fields to sort by, each optionally prefixed with '+' or '-' (e.g. '-score,name').")),
		mcp.WithString("search", mcp.Description("Substring to look for in any field. Prefix with '-' to exclude matches.")),
		mcp.WithString("select", mcp.Description("Comma-separated fields to return (e.g. 'policy_id,name' or 'compliance.key').")),
		mcp.WithString("q", mcp.Description("Query expression such as 'score>50;name~debian'. ';' is AND, ',' is OR.")),
		mcp.WithBoolean("wait_for_complete", mcp.Description("Disable the request timeout.")),
		mcp.WithBoolean("pretty", mcp.Description("Indent the JSON response.")),
	}
}

// StartMCPServer starts the SCA MCP server over stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, backend contract.Backend) error {
	s := NewMCPServer(baseCfg, backend)
	return server.ServeStdio(s)
}
