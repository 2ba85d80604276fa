// Package core has core logic for translating listing requests into agent database
// queries and assembling their results.
package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/huangsam/sca/internal/agentdb"
	"github.com/huangsam/sca/internal/contract"
	"github.com/huangsam/sca/internal/outwriter"
	"github.com/huangsam/sca/schema"
	"github.com/pkg/errors"
)

// Envelope messages for each listing.
var (
	PolicyMessages = schema.ResultMessages{
		All:  "All selected sca information was returned",
		Some: "Some sca information was not returned",
		None: "No sca information was returned",
	}
	CheckMessages = schema.ResultMessages{
		All:  "All selected sca/policy information was returned",
		Some: "Some sca/policy information was not returned",
		None: "No sca/policy information was returned",
	}
)

// ExecutorFunc defines the function signature for executing the listing commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config) error

// Service runs listing requests against the agent databases of one backend.
type Service struct {
	backend contract.Backend
}

// NewService creates a service over backend.
func NewService(backend contract.Backend) *Service {
	return &Service{backend: backend}
}

// GetPolicies lists the SCA policies of every agent.
// Caller-input errors abort the request; agent failures are recorded in the envelope.
func (s *Service) GetPolicies(ctx context.Context, agents []string, q Query) (*schema.AffectedItemsResult, error) {
	stmt, err := BuildPolicyStatement(s.backend.Dialect(), q)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, agents, stmt, PolicyMessages)
}

// GetChecks lists the checks of one policy on every agent.
func (s *Service) GetChecks(ctx context.Context, agents []string, policyID string, q Query) (*schema.AffectedItemsResult, error) {
	stmt, err := BuildCheckStatement(s.backend.Dialect(), policyID, q)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, agents, stmt, CheckMessages)
}

// run queries every agent in turn and merges the outcomes into one envelope.
func (s *Service) run(ctx context.Context, agents []string, stmt *Statement, messages schema.ResultMessages) (*schema.AffectedItemsResult, error) {
	result := schema.NewAffectedItemsResult(messages)
	for _, agentID := range agents {
		rows, total, err := s.queryAgent(ctx, agentID, stmt)
		if err != nil {
			if !schema.IsAgentError(err) {
				return nil, err
			}
			slog.Warn("Agent query failed", "agent", agentID, "entity", stmt.Table.Entity, "error", err)
			result.AddFailedItem(agentID, err)
			continue
		}
		slog.Debug("Agent query done", "agent", agentID, "entity", stmt.Table.Entity, "items", len(rows), "total", total)
		result.AddAgentItems(rows, total)
	}
	if result.TotalFailedItems > 0 {
		slog.Info("Some agents were not queried", "entity", stmt.Table.Entity, "agents", result.FailedAgents())
	}
	return result, nil
}

// queryAgent runs stmt on one agent database. The connection is closed on every path.
func (s *Service) queryAgent(ctx context.Context, agentID string, stmt *Statement) ([]schema.Row, int, error) {
	conn, err := s.backend.Connect(ctx, agentID)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = conn.Close() }()

	resp, err := conn.Execute(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, 0, err
	}
	items, ok := resp.Items()
	if !ok {
		return nil, 0, errors.Wrapf(schema.ErrMalformedResponse, "agent %s returned no %q key", agentID, schema.ResponseItemsKey)
	}
	rows, total := assemble(stmt, items)

	if stmt.CountSQL != "" {
		total, err = countRows(ctx, conn, agentID, stmt)
		if err != nil {
			return nil, 0, err
		}
	}
	return rows, total, nil
}

// countRows runs the count query of stmt and extracts its single value.
func countRows(ctx context.Context, conn contract.AgentConn, agentID string, stmt *Statement) (int, error) {
	resp, err := conn.Execute(ctx, stmt.CountSQL, stmt.CountArgs...)
	if err != nil {
		return 0, err
	}
	items, ok := resp.Items()
	if !ok || len(items) == 0 {
		return 0, errors.Wrapf(schema.ErrMalformedResponse, "agent %s returned no count", agentID)
	}
	for k, v := range items[0] {
		if unalias(k) == "total" {
			return int(schema.AsInt(v)), nil
		}
	}
	return 0, errors.Wrapf(schema.ErrMalformedResponse, "agent %s returned no total column", agentID)
}

// QueryFromConfig builds the listing query carried by cfg.
func QueryFromConfig(cfg *contract.Config) Query {
	return Query{
		Filters: cfg.Filters,
		Offset:  cfg.Offset,
		Limit:   cfg.Limit,
		Sort:    cfg.Sort,
		Search:  cfg.Search,
		Select:  cfg.Select,
		Q:       cfg.Q,
	}
}

// ExecutePolicies lists the policies of the configured agents and prints them.
// It serves as the main entry point for the 'policies' command.
func ExecutePolicies(ctx context.Context, cfg *contract.Config) error {
	start := time.Now()
	backend, err := agentdb.Open(cfg.Backend, cfg.DBConnect)
	if err != nil {
		return err
	}
	ctx, cancel := cfg.RequestContext(ctx)
	defer cancel()

	result, err := NewService(backend).GetPolicies(ctx, cfg.Agents, QueryFromConfig(cfg))
	if err != nil {
		return err
	}
	return outwriter.PrintPolicies(result, cfg, time.Since(start))
}

// ExecuteChecks lists the checks of the configured policy and prints them.
// It serves as the main entry point for the 'checks' command.
func ExecuteChecks(ctx context.Context, cfg *contract.Config) error {
	start := time.Now()
	if cfg.PolicyID == "" {
		return errors.New("--policy-id is required")
	}
	backend, err := agentdb.Open(cfg.Backend, cfg.DBConnect)
	if err != nil {
		return err
	}
	ctx, cancel := cfg.RequestContext(ctx)
	defer cancel()

	result, err := NewService(backend).GetChecks(ctx, cfg.Agents, cfg.PolicyID, QueryFromConfig(cfg))
	if err != nil {
		return err
	}
	return outwriter.PrintChecks(result, cfg, time.Since(start))
}
