// Package agentdb opens the per-agent SCA databases.
package agentdb

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/sca/internal/contract"
	"github.com/huangsam/sca/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // SQLite driver
)

// AgentPlaceholder is replaced by the agent id inside MySQL and PostgreSQL DSN templates.
const AgentPlaceholder = "{agent}"

// agentIDRegex matches the agent ids accepted by every backend.
var agentIDRegex = regexp.MustCompile(`^\d{3,}$`)

// Store hands out connections to the agent databases of one backend.
type Store struct {
	backend schema.DatabaseBackend
	connStr string
	dialect contract.Dialect
}

var _ contract.Backend = &Store{} // Compile-time check

// Open validates the backend settings and returns a Store.
// For SQLite, connStr is the directory holding one <agent>.db file per agent;
// an empty value selects the default directory. For MySQL and PostgreSQL it is a
// DSN template containing {agent}.
func Open(backend schema.DatabaseBackend, connStr string) (*Store, error) {
	switch backend {
	case schema.SQLiteBackend:
		if connStr == "" {
			connStr = contract.GetAgentDBDir()
		}
	case schema.MySQLBackend, schema.PostgreSQLBackend:
		if !strings.Contains(connStr, AgentPlaceholder) {
			return nil, errors.Errorf("%s connection string must contain %s to select the agent database", backend, AgentPlaceholder)
		}
	default:
		return nil, errors.Errorf("unsupported backend: %s. Must be sqlite, mysql or postgresql", backend)
	}
	return &Store{backend: backend, connStr: connStr, dialect: contract.NewDialect(backend)}, nil
}

// Backend returns the engine of the store.
func (s *Store) Backend() schema.DatabaseBackend {
	return s.backend
}

// Dialect implements the Backend interface.
func (s *Store) Dialect() contract.Dialect {
	return s.dialect
}

// Connect implements the Backend interface.
func (s *Store) Connect(ctx context.Context, agentID string) (contract.AgentConn, error) {
	db, err := s.open(ctx, agentID, false)
	if err != nil {
		return nil, err
	}
	return &Conn{db: db, agentID: agentID}, nil
}

// SQLitePath returns the database file of an agent in a SQLite store.
func (s *Store) SQLitePath(agentID string) string {
	return filepath.Join(s.connStr, agentID+".db")
}

// driverAndDSN resolves the database/sql driver and DSN of an agent.
func (s *Store) driverAndDSN(agentID string, create bool) (string, string, error) {
	switch s.backend {
	case schema.SQLiteBackend:
		path := s.SQLitePath(agentID)
		if create {
			if err := os.MkdirAll(s.connStr, 0o755); err != nil {
				return "", "", errors.Wrapf(err, "failed to create agent database directory %q", s.connStr)
			}
		} else if _, err := os.Stat(path); err != nil {
			return "", "", errors.Wrapf(schema.ErrAgentNotFound, "no database for agent %s at %q", agentID, path)
		}
		return "sqlite", path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", nil

	case schema.MySQLBackend:
		// Migrations ship several statements per file.
		cfg, err := mysql.ParseDSN(strings.ReplaceAll(s.connStr, AgentPlaceholder, agentID))
		if err != nil {
			return "", "", errors.Wrap(err, "invalid MySQL connection string. Check format: user:password@tcp(host:port)/sca_{agent}")
		}
		cfg.MultiStatements = true
		return "mysql", cfg.FormatDSN(), nil

	default: // PostgreSQL
		return "pgx", strings.ReplaceAll(s.connStr, AgentPlaceholder, agentID), nil
	}
}

// open returns a verified handle on the database of one agent.
// With create set, a missing SQLite file is created instead of reported.
func (s *Store) open(ctx context.Context, agentID string, create bool) (*sql.DB, error) {
	if !agentIDRegex.MatchString(agentID) {
		return nil, errors.Wrapf(schema.ErrAgentNotFound, "invalid agent id %q", agentID)
	}
	driverName, dsn, err := s.driverAndDSN(agentID, create)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Wrapf(schema.ErrBackendUnavailable, "agent %s: %v", agentID, err)
	}
	if s.backend == schema.SQLiteBackend {
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(schema.ErrBackendUnavailable, "agent %s on %s: %v", agentID, s.backend, err)
	}
	return db, nil
}
