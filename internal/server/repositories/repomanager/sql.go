// Package repomanager provides a concrete RepositoryManager for the SQL
// backends, wiring together repository constructors and database migrations
// (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophhabits/internal/dbx"
	"github.com/dmitrijs2005/gophhabits/internal/server/migrations"
	"github.com/dmitrijs2005/gophhabits/internal/server/repositories/absences"
	"github.com/dmitrijs2005/gophhabits/internal/server/repositories/completions"
	"github.com/dmitrijs2005/gophhabits/internal/server/repositories/habits"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

// SQLRepositoryManager vends SQL-backed repository implementations and
// exposes a schema migration hook.
type SQLRepositoryManager struct{}

// Habits returns a habits.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Habits(db dbx.DBTX) habits.Repository {
	return habits.NewSQLRepository(db)
}

// Completions returns a completions.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Completions(db dbx.DBTX) completions.Repository {
	return completions.NewSQLRepository(db)
}

// Absences returns an absences.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Absences(db dbx.DBTX) absences.Repository {
	return absences.NewSQLRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// migrationTarget maps a driver name to the goose dialect and the embedded
// migrations directory.
func migrationTarget(driver string) (dialect, dir string, err error) {
	switch driver {
	case dbx.DriverPostgres:
		return "pgx", migrations.PostgresDir, nil
	case dbx.DriverSQLite:
		return "sqlite3", migrations.SQLiteDir, nil
	default:
		return "", "", fmt.Errorf("no migrations for driver %q", driver)
	}
}

// RunMigrations sets up goose with the embedded migrations for the
// connection's dialect and runs them.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sqlx.DB) error {
	dialect, dir, err := migrationTarget(db.DriverName())
	if err != nil {
		return err
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db.DB, dir); err != nil {
		return err
	}
	return nil
}

// NewSQLRepositoryManager constructs a SQL-backed RepositoryManager.
func NewSQLRepositoryManager() RepositoryManager {
	return &SQLRepositoryManager{}
}
