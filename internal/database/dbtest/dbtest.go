// Package dbtest opens a migrated, file-backed SQLite database for tests.
package dbtest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/database"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// New returns a fresh database. A single connection is used so that
// savepoints and transactions behave like one Postgres session.
func New(t testing.TB) *sqlx.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "possync.db")
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)

	db, err := sqlx.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

// SeedMerchant inserts an active merchant with a remote mapping and token.
func SeedMerchant(t testing.TB, db *sqlx.DB, externalID, token string) *model.Merchant {
	t.Helper()

	now := time.Now().UTC()
	m := &model.Merchant{
		BaseModel:   model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Name:        "Merchant " + externalID,
		IsActive:    true,
		ExternalID:  optional(externalID),
		AccessToken: optional(token),
	}
	_, err := db.NamedExec(`
        INSERT INTO merchants (id, external_id, name, is_active, access_token, created_at, updated_at)
        VALUES (:id, :external_id, :name, :is_active, :access_token, :created_at, :updated_at)`, m)
	require.NoError(t, err)
	return m
}

// SeedProduct inserts a synced product and returns its id.
func SeedProduct(t testing.TB, db *sqlx.DB, merchantID, externalID, name string, priceCents int64) string {
	t.Helper()
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := db.Exec(db.Rebind(`
        INSERT INTO products (id, merchant_id, external_id, name, price_cents, is_visible, is_active, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		id, merchantID, externalID, name, priceCents, true, true, now, now)
	require.NoError(t, err)
	return id
}

// Count returns the number of rows in table matching the optional where clause.
func Count(t testing.TB, db *sqlx.DB, table, where string, args ...any) int {
	t.Helper()

	query := "SELECT count(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	require.NoError(t, db.Get(&n, db.Rebind(query), args...))
	return n
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
