// Package db opens the SQL database and creates its schema. SQLite
// (modernc.org/sqlite) is the default; PostgreSQL is reached through the pgx
// stdlib driver.
package db

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect identifies the SQL flavour of a connection. The values double as
// database/sql driver names.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "pgx"
)

func init() {
	sqlx.BindDriver(string(SQLite), sqlx.QUESTION)
}

// DialectOf returns the dialect of a *sqlx.DB or *sqlx.Tx.
func DialectOf(q interface{ DriverName() string }) Dialect {
	return Dialect(q.DriverName())
}

// ForUpdate returns the row-locking suffix for SELECT statements. SQLite has
// none: its transactions are opened IMMEDIATE and hold the write lock.
func (d Dialect) ForUpdate() string {
	if d == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// sqlitePragmas are applied to every new SQLite connection. Pickups and
// trades rely on foreign keys and on IMMEDIATE transactions.
var sqlitePragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// Open opens a database connection for driver ("sqlite" or "pgx") and checks
// that it is reachable. For SQLite, dsn may be a plain file path; pragmas the
// caller did not set are appended.
func Open(driver, dsn string) (*sqlx.DB, error) {
	switch Dialect(driver) {
	case SQLite:
		dsn = sqliteDSN(dsn)
	case Postgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}

// sqliteDSN adds the default pragmas and transaction mode to dsn, keeping
// any value the caller chose.
func sqliteDSN(dsn string) string {
	path, query, found := strings.Cut(dsn, "?")
	if !found {
		path = "file:" + path
	}
	params, _ := url.ParseQuery(query)

	set := make(map[string]bool)
	for _, p := range params["_pragma"] {
		name, _, _ := strings.Cut(p, "(")
		set[strings.ToLower(strings.TrimSpace(name))] = true
	}

	var extra []string
	for _, p := range sqlitePragmas {
		name, _, _ := strings.Cut(p, "(")
		if !set[name] {
			extra = append(extra, "_pragma="+p)
		}
	}
	switch txlock := params.Get("_txlock"); txlock {
	case "":
		extra = append(extra, "_txlock=immediate")
	case "immediate", "exclusive":
	default:
		slog.Warn("sqlite transactions are not immediate, concurrent pickups and trades may race", "txlock", txlock)
	}

	if len(extra) == 0 {
		return path + "?" + query
	}
	if query != "" {
		query += "&"
	}
	return path + "?" + query + strings.Join(extra, "&")
}

// IsUniqueViolation reports whether err was caused by a UNIQUE constraint.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE")
		}
	}
	return false
}
