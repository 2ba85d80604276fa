package agentdb

import (
	"context"
	"fmt"
	"io"

	"github.com/huangsam/sca/schema"
)

// Status reports the migration version and table sizes of one agent database.
// A database that cannot be opened is reported as not connected.
func Status(ctx context.Context, store *Store, agentID string) (schema.AgentDBStatus, error) {
	status := schema.AgentDBStatus{
		Backend:    string(store.backend),
		AgentID:    agentID,
		TableSizes: map[string]int64{},
	}
	db, err := store.open(ctx, agentID, false)
	if err != nil {
		return status, err
	}
	defer func() { _ = db.Close() }()
	status.Connected = true

	var version int64
	row := db.QueryRowContext(ctx, "SELECT version, dirty FROM schema_migrations LIMIT 1")
	if err := row.Scan(&version, &status.Dirty); err == nil {
		status.Version = uint(version)
	}

	for _, table := range schema.SCATables {
		var n int64
		if err := db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
			return status, fmt.Errorf("failed to count rows of %s: %w", table, err)
		}
		status.TableSizes[table] = n
	}
	status.Policies = status.TableSizes[schema.PolicyTableName]
	return status, nil
}

// PrintStatus prints agent database status information.
func PrintStatus(w io.Writer, status schema.AgentDBStatus) {
	_, _ = fmt.Fprintf(w, "Agent: %s\n", status.AgentID)
	_, _ = fmt.Fprintf(w, "Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Schema Version: %d (dirty: %t)\n", status.Version, status.Dirty)
	_, _ = fmt.Fprintf(w, "Policies: %d\n", status.Policies)
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	for _, table := range schema.SCATables {
		_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, status.TableSizes[table])
	}
}
