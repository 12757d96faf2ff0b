package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an asset or edge does not exist.
var ErrNotFound = errors.New("storage: not found")

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// DB wraps a SQL connection and the dialect its queries are written for.
type DB struct {
	conn    *sql.DB
	dialect Dialect
}

// NewSQLite opens (or creates) the SQLite file at dbPath. ":memory:" opens a
// private in-memory database.
func NewSQLite(dbPath string) (*DB, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	return Open(DialectSQLite, dsn)
}

// Open connects with the given dialect's driver and runs migrations.
func Open(dialect Dialect, dsn string) (*DB, error) {
	conn, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// SQLite only supports one writer, and :memory: is per connection
		conn.SetMaxOpenConns(1)
	}

	db := &DB{conn: conn, dialect: dialect}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Dialect() Dialect {
	return db.dialect
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (db *DB) rebind(query string) string {
	if db.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) exec(query string, args ...any) (sql.Result, error) {
	return db.conn.Exec(db.rebind(query), args...)
}

func (db *DB) query(query string, args ...any) (*sql.Rows, error) {
	return db.conn.Query(db.rebind(query), args...)
}

func (db *DB) queryRow(query string, args ...any) *sql.Row {
	return db.conn.QueryRow(db.rebind(query), args...)
}

func (db *DB) migrate() error {
	// mysql cannot index TEXT columns without a length
	id, ts, real := "TEXT", "TIMESTAMP", "REAL"
	switch db.dialect {
	case DialectMySQL:
		id, ts, real = "VARCHAR(64)", "DATETIME(6)", "DOUBLE"
	case DialectPostgres:
		real = "DOUBLE PRECISION"
	}

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS assets (
			id ` + id + ` PRIMARY KEY,
			canvas_id ` + id + ` NOT NULL,
			kind VARCHAR(32) NOT NULL,
			platform VARCHAR(32) NOT NULL DEFAULT '',
			media_id VARCHAR(255) NOT NULL DEFAULT '',
			title VARCHAR(255) NOT NULL DEFAULT '',
			source TEXT NOT NULL,
			x ` + real + ` NOT NULL DEFAULT 0,
			y ` + real + ` NOT NULL DEFAULT 0,
			space VARCHAR(16) NOT NULL DEFAULT '',
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS edges (
			id ` + id + ` PRIMARY KEY,
			canvas_id ` + id + ` NOT NULL,
			from_id ` + id + ` NOT NULL,
			to_id ` + id + ` NOT NULL,
			created_at ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS aggregators (
			id ` + id + ` PRIMARY KEY,
			canvas_id ` + id + ` NOT NULL,
			x ` + real + ` NOT NULL DEFAULT 0,
			y ` + real + ` NOT NULL DEFAULT 0,
			created_at ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS approvals (
			id ` + id + ` PRIMARY KEY,
			tool VARCHAR(64) NOT NULL,
			description TEXT NOT NULL,
			metadata TEXT NOT NULL,
			status VARCHAR(16) NOT NULL,
			created_at ` + ts + ` NOT NULL
		)`,
	}
	if db.dialect != DialectMySQL {
		migrations = append(migrations,
			`CREATE INDEX IF NOT EXISTS idx_assets_canvas ON assets(canvas_id)`,
			`CREATE INDEX IF NOT EXISTS idx_edges_canvas ON edges(canvas_id)`,
		)
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %s: %w", firstLine(m), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
