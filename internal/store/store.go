package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/memotime/internal/database"
)

type scanner interface{ Scan(...any) error }

// withConn acquires one connection for fn and always releases it.
func withConn(ctx context.Context, p database.Provider, fn func(conn *sql.Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer p.Release(conn)

	return fn(conn)
}

// execAffected runs a mutating statement and reports how many rows it touched.
func execAffected(ctx context.Context, p database.Provider, query string, args ...any) (int64, error) {
	var n int64
	err := withConn(ctx, p, func(conn *sql.Conn) error {
		result, err := conn.ExecContext(ctx, p.Dialect().Rebind(query), args...)
		if err != nil {
			return err
		}
		n, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		return nil
	})
	return n, err
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt64(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}

func idArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
