package contract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/huangsam/sca/schema"
)

// Dialect renders the few SQL fragments that differ between backends.
type Dialect struct {
	Backend schema.DatabaseBackend
}

// NewDialect returns the dialect for a backend.
func NewDialect(backend schema.DatabaseBackend) Dialect {
	return Dialect{Backend: backend}
}

// Quote returns the properly quoted identifier for the backend.
func (d Dialect) Quote(name string) string {
	switch d.Backend {
	case schema.MySQLBackend:
		return fmt.Sprintf("`%s`", name)
	default: // SQLite and PostgreSQL
		return fmt.Sprintf("\"%s\"", name)
	}
}

// Column returns a quoted, table-qualified column reference.
func (d Dialect) Column(table, column string) string {
	if table == "" {
		return d.Quote(column)
	}
	return table + "." + d.Quote(column)
}

// AsText casts an expression to text so it can be matched with LIKE.
func (d Dialect) AsText(expr string) string {
	switch d.Backend {
	case schema.MySQLBackend:
		return fmt.Sprintf("CAST(%s AS CHAR)", expr)
	default: // SQLite and PostgreSQL
		return fmt.Sprintf("CAST(%s AS TEXT)", expr)
	}
}

// Contains renders a case-insensitive substring predicate over expr.
// The pattern argument must be built with LikePattern.
func (d Dialect) Contains(expr string) string {
	return fmt.Sprintf("LOWER(COALESCE(%s, '')) LIKE ? ESCAPE '!'", d.AsText(expr))
}

// Rebind rewrites '?' placeholders into the backend's native form.
func (d Dialect) Rebind(query string) string {
	if d.Backend != schema.PostgreSQLBackend {
		return query
	}
	var sb strings.Builder
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			sb.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			sb.WriteString("$" + strconv.Itoa(n))
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// LikePattern builds a lower-cased substring pattern with LIKE wildcards escaped by '!'.
func LikePattern(value string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(strings.ToLower(value)) + "%"
}
