package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"
)

const maintenanceDB = "postgres"

// ensurePostgresDatabase connects to the maintenance database and creates
// the target database when pg_database has no row for it.
func ensurePostgresDatabase(ctx context.Context, dsn string) error {
	kv, err := normalizePostgresDSN(dsn)
	if err != nil {
		return err
	}

	name := postgresDBName(kv)
	if name == "" || name == maintenanceDB {
		return nil
	}

	admin, err := sql.Open("postgres", kv+" dbname="+maintenanceDB)
	if err != nil {
		return fmt.Errorf("open maintenance db: %w", err)
	}
	defer admin.Close()

	var exists bool
	err = admin.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check database: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}
	slog.Info("created database", "name", name)
	return nil
}

// normalizePostgresDSN turns a postgres:// URL into lib/pq key=value form.
// Key=value input is returned unchanged.
func normalizePostgresDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		kv, err := pq.ParseURL(dsn)
		if err != nil {
			return "", fmt.Errorf("parse postgres url: %w", err)
		}
		return kv, nil
	}
	return dsn, nil
}

// postgresDBName returns the last dbname in a key=value DSN, which is the
// one lib/pq uses.
func postgresDBName(kv string) string {
	var name string
	for _, field := range strings.Fields(kv) {
		k, v, ok := strings.Cut(field, "=")
		if !ok || k != "dbname" {
			continue
		}
		name = strings.Trim(v, "'")
	}
	return name
}
