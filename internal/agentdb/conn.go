package agentdb

import (
	"context"
	"database/sql"

	"github.com/huangsam/sca/internal/contract"
	"github.com/huangsam/sca/schema"
	"github.com/pkg/errors"
)

// Conn is an open connection to one agent database.
type Conn struct {
	db      *sql.DB
	agentID string
}

var _ contract.AgentConn = &Conn{} // Compile-time check

// Execute implements the AgentConn interface.
// The rows are returned under the items key, even when there are none.
func (c *Conn) Execute(ctx context.Context, query string, args ...any) (schema.DBResponse, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(schema.ErrBackendUnavailable, "agent %s query failed: %v", c.agentID, err)
	}
	defer func() { _ = rows.Close() }()

	items, err := scanRows(rows)
	if err != nil {
		return nil, errors.Wrapf(schema.ErrBackendUnavailable, "agent %s scan failed: %v", c.agentID, err)
	}
	return schema.DBResponse{schema.ResponseItemsKey: items}, nil
}

// Close implements the AgentConn interface.
func (c *Conn) Close() error {
	return c.db.Close()
}

// scanRows reads every row into a column-name keyed map.
// Byte slices are converted to strings; NULL stays nil.
func scanRows(rows *sql.Rows) ([]schema.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	items := []schema.Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(schema.Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		items = append(items, row)
	}
	return items, rows.Err()
}
