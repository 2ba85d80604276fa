package agentdb

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huangsam/sca/schema"
	"github.com/pkg/errors"
)

//go:embed migrations
var migrationsFS embed.FS

// migrationDirs maps each backend to its migration directory.
var migrationDirs = map[schema.DatabaseBackend]string{
	schema.SQLiteBackend:     "migrations/sqlite",
	schema.MySQLBackend:      "migrations/mysql",
	schema.PostgreSQLBackend: "migrations/postgres",
}

// Migrate runs the schema migrations of one agent database.
// - If targetVersion < 0, it migrates to the latest version.
// - If targetVersion == 0, it rolls back all migrations.
// - If targetVersion > 0, it migrates to the specified version.
// A missing SQLite database is created.
func Migrate(ctx context.Context, store *Store, agentID string, targetVersion int) error {
	db, err := store.open(ctx, agentID, true)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var driver database.Driver
	switch store.backend {
	case schema.SQLiteBackend:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	case schema.MySQLBackend:
		driver, err = mysql.WithInstance(db, &mysql.Config{})
	case schema.PostgreSQLBackend:
		driver, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	}
	if err != nil {
		return errors.Wrapf(err, "failed to create %s migrate driver", store.backend)
	}

	migrationFS, err := fs.Sub(migrationsFS, migrationDirs[store.backend])
	if err != nil {
		return errors.Wrap(err, "failed to access migrations directory")
	}
	sourceDriver, err := iofs.New(migrationFS, ".")
	if err != nil {
		return errors.Wrap(err, "failed to create migration source")
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sca_"+agentID, driver)
	if err != nil {
		return errors.Wrap(err, "failed to create migrate instance")
	}

	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return errors.Wrap(err, "failed to get current migration version")
	}
	if dirty {
		return errors.Errorf("agent %s database is in a dirty state at version %d. Please fix manually or force version", agentID, currentVersion)
	}

	switch {
	case targetVersion < 0:
		err = m.Up()
	case targetVersion == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(targetVersion))
	}
	if errors.Is(err, migrate.ErrNoChange) {
		slog.Info("No migration needed", "agent", agentID, "version", currentVersion)
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "failed to migrate agent %s database", agentID)
	}
	newVersion, _, _ := m.Version()
	slog.Info("Migrated agent database", "agent", agentID, "backend", store.backend, "from", currentVersion, "to", newVersion)
	return nil
}
