// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"

	"github.com/huangsam/sca/schema"
)

// Backend hands out connections to per-agent SCA databases.
// This allows the query core to be tested without a real database.
type Backend interface {
	// Dialect returns the SQL dialect spoken by every agent database of this backend.
	Dialect() Dialect

	// Connect opens the database of a single agent.
	// The caller owns the connection and must close it.
	Connect(ctx context.Context, agentID string) (AgentConn, error)
}

// AgentConn is an open connection to one agent database.
type AgentConn interface {
	// Execute runs a query with '?' placeholders and returns the raw response.
	Execute(ctx context.Context, query string, args ...any) (schema.DBResponse, error)

	// Close releases the connection.
	Close() error
}
