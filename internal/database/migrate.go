package database

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the schema for the connection's dialect. Every statement
// is idempotent, so it is safe to run on each start.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	file, err := schemaFor(db.DriverName())
	if err != nil {
		return err
	}

	raw, err := migrations.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}

	for _, stmt := range splitStatements(string(raw)) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w\n%s", err, stmt)
		}
	}
	return nil
}

func schemaFor(driver string) (string, error) {
	switch driver {
	case "pgx", "postgres":
		return "migrations/postgres.sql", nil
	case "sqlite", "sqlite3":
		return "migrations/sqlite.sql", nil
	}
	return "", fmt.Errorf("no schema for driver %q", driver)
}

func splitStatements(schema string) []string {
	parts := strings.Split(schema, ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
