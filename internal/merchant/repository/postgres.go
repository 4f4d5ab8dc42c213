package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

const merchantColumns = `id, external_id, name, is_active, access_token, last_synced_at, created_at, updated_at`

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Merchant, error) {
	return r.findOne(ctx, `SELECT `+merchantColumns+` FROM merchants WHERE id = ?`, id)
}

func (r *PGRepository) FindByExternalID(ctx context.Context, externalID string) (*model.Merchant, error) {
	return r.findOne(ctx, `SELECT `+merchantColumns+` FROM merchants WHERE external_id = ?`, externalID)
}

func (r *PGRepository) findOne(ctx context.Context, query string, args ...any) (*model.Merchant, error) {
	var m model.Merchant
	err := r.DB.GetContext(ctx, &m, r.DB.Rebind(query), args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *PGRepository) UpsertByExternalID(ctx context.Context, m *model.Merchant) error {
	query := `
        INSERT INTO merchants (id, external_id, name, is_active, access_token, created_at, updated_at)
        VALUES (:id, :external_id, :name, :is_active, :access_token, :created_at, :updated_at)
        ON CONFLICT (external_id) DO UPDATE SET
            name = EXCLUDED.name,
            access_token = EXCLUDED.access_token,
            is_active = EXCLUDED.is_active,
            updated_at = EXCLUDED.updated_at
    `
	_, err := r.DB.NamedExecContext(ctx, query, m)
	return err
}

func (r *PGRepository) UpdateCredential(ctx context.Context, id, accessToken string) error {
	res, err := r.DB.ExecContext(ctx,
		r.DB.Rebind(`UPDATE merchants SET access_token = ?, updated_at = ? WHERE id = ?`),
		accessToken, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PGRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		r.DB.Rebind(`UPDATE merchants SET last_synced_at = ? WHERE id = ?`), at, id)
	return err
}

func (r *PGRepository) ListActive(ctx context.Context) ([]model.Merchant, error) {
	var merchants []model.Merchant
	query := `SELECT ` + merchantColumns + ` FROM merchants
        WHERE is_active = ? AND external_id IS NOT NULL AND access_token IS NOT NULL
        ORDER BY created_at`
	err := r.DB.SelectContext(ctx, &merchants, r.DB.Rebind(query), true)
	return merchants, err
}
