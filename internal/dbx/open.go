package dbx

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophhabits/internal/filex"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Driver names registered by the imported database/sql drivers.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

func init() {
	// sqlx knows "sqlite3" but not the modernc driver name.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// DriverFor picks the driver for a DSN: postgres URLs go to pgx, anything
// else is treated as a SQLite file path or URI.
func DriverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

// SQLiteDSN appends the connection pragmas we rely on (foreign keys, WAL,
// busy timeout) unless the DSN already configures pragmas itself.
func SQLiteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + sqlitePragmas
}

func isSQLiteFile(dsn string) bool {
	return !strings.Contains(dsn, ":memory:") && !strings.Contains(dsn, "mode=memory")
}

func sqlitePath(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return p
}

// Open connects to the database named by dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {

	driver := DriverFor(dsn)

	if driver == DriverSQLite {
		if isSQLiteFile(dsn) {
			if _, err := filex.EnsureParentDir(sqlitePath(dsn)); err != nil {
				return nil, fmt.Errorf("db init error: %w", err)
			}
		}
		dsn = SQLiteDSN(dsn)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite allows a single writer; one connection avoids SQLITE_BUSY
		// between our own goroutines and keeps in-memory databases alive.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	return db, nil
}
