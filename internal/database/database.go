package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// Config selects the driver and data source for Open.
type Config struct {
	Driver string
	DSN    string
}

// Provider hands out scoped connections. Every Acquire must be paired with
// a Release, including on error paths.
type Provider interface {
	Acquire(ctx context.Context) (*sql.Conn, error)
	Release(conn *sql.Conn)
	Dialect() Dialect
}

// DB is the pooled database handle. It implements Provider.
type DB struct {
	*sql.DB
	dialect Dialect
}

var _ Provider = (*DB)(nil)

// Open makes sure the target database exists, connects to it, and runs
// migrations. It is safe to call on every startup.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	if err := ensureDatabase(ctx, dialect, cfg.DSN); err != nil {
		return nil, fmt.Errorf("ensure database: %w", err)
	}

	db, err := sql.Open(dialect.driverName(), dialect.dsn(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Each new connection to :memory: is a separate database.
	if dialect == SQLite && isMemory(cfg.DSN) {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := runMigrations(ctx, db, dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &DB{DB: db, dialect: dialect}, nil
}

// Migrate runs the schema initializer and closes the connection.
func Migrate(ctx context.Context, cfg Config) error {
	db, err := Open(ctx, cfg)
	if err != nil {
		return err
	}
	return db.Close()
}

// Acquire checks a single connection out of the pool.
func (db *DB) Acquire(ctx context.Context) (*sql.Conn, error) {
	return db.DB.Conn(ctx)
}

// Release returns conn to the pool.
func (db *DB) Release(conn *sql.Conn) {
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		slog.Warn("release connection", "error", err)
	}
}

func (db *DB) Dialect() Dialect {
	return db.dialect
}

func runMigrations(ctx context.Context, db *sql.DB, dialect Dialect) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(dialect.gooseDialect()); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations/"+string(dialect)); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}

func ensureDatabase(ctx context.Context, dialect Dialect, dsn string) error {
	switch dialect {
	case Postgres:
		return ensurePostgresDatabase(ctx, dsn)
	default:
		return ensureSQLiteFile(dsn)
	}
}

// ensureSQLiteFile creates the parent directory; the driver creates the file.
func ensureSQLiteFile(dsn string) error {
	if isMemory(dsn) {
		return nil
	}
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	return nil
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.HasPrefix(dsn, ":memory:?") || strings.Contains(dsn, "mode=memory")
}
