package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-pos-sync/internal/category/dto"
	"github.com/fekuna/omnipos-pos-sync/internal/database"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

const categoryColumns = `id, merchant_id, external_id, name, sort_order, is_active, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, c *model.Category) error {
	query := `
        INSERT INTO categories (id, merchant_id, external_id, name, sort_order, is_active, created_at, updated_at)
        VALUES (:id, :merchant_id, :external_id, :name, :sort_order, :is_active, :created_at, :updated_at)
    `
	_, err := r.DB.NamedExecContext(ctx, query, c)
	return err
}

func (r *PGRepository) FindByID(ctx context.Context, merchantID, id string) (*model.Category, error) {
	var category model.Category
	query := r.DB.Rebind(`SELECT ` + categoryColumns + ` FROM categories WHERE id = ? AND merchant_id = ?`)
	err := r.DB.GetContext(ctx, &category, query, id, merchantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.CategoryFilters) ([]model.Category, int, error) {
	conditions := []string{"merchant_id = ?"}
	args := []any{f.MerchantID}

	if f.IsActive != nil {
		conditions = append(conditions, "is_active = ?")
		args = append(args, *f.IsActive)
	}
	if f.Synced != nil {
		if *f.Synced {
			conditions = append(conditions, "external_id IS NOT NULL")
		} else {
			conditions = append(conditions, "external_id IS NULL")
		}
	}
	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	var count int
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind("SELECT count(*) FROM categories"+whereClause), args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + categoryColumns + " FROM categories" + whereClause + " ORDER BY sort_order ASC, name ASC"
	if f.PageSize > 0 {
		offset := (max(f.Page, 1) - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	categories := []model.Category{}
	if err := r.DB.SelectContext(ctx, &categories, r.DB.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	return categories, count, nil
}

func (r *PGRepository) Update(ctx context.Context, c *model.Category) error {
	query := `
        UPDATE categories
        SET name = :name,
            sort_order = :sort_order,
            is_active = :is_active,
            updated_at = :updated_at
        WHERE id = :id AND merchant_id = :merchant_id
    `
	_, err := r.DB.NamedExecContext(ctx, query, c)
	return err
}

func (r *PGRepository) Delete(ctx context.Context, merchantID, id string) error {
	// products.category_id is ON DELETE SET NULL
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind("DELETE FROM categories WHERE id = ? AND merchant_id = ?"), id, merchantID)
	return err
}

func (r *PGRepository) FindIDByExternalID(ctx context.Context, q sqlx.ExtContext, merchantID, externalID string) (*string, error) {
	var id string
	query := q.Rebind(`SELECT id FROM categories WHERE merchant_id = ? AND external_id = ?`)
	err := sqlx.GetContext(ctx, q, &id, query, merchantID, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &id, nil
}

// UpsertByExternalID inserts or refreshes the category keyed on
// (merchant_id, external_id). Rows whose mutable fields already match are
// left untouched, so updated_at only moves on real changes.
func (r *PGRepository) UpsertByExternalID(ctx context.Context, ext sqlx.ExtContext, c *model.Category) (database.UpsertOutcome, error) {
	existingID, err := r.FindIDByExternalID(ctx, ext, c.MerchantID, *c.ExternalID)
	if err != nil {
		return database.Unchanged, err
	}
	if existingID != nil {
		c.ID = *existingID
	} else if c.ID == "" {
		c.ID = uuid.New().String()
	}

	query := `
        INSERT INTO categories (id, merchant_id, external_id, name, sort_order, is_active, created_at, updated_at)
        VALUES (:id, :merchant_id, :external_id, :name, :sort_order, :is_active, :created_at, :updated_at)
        ON CONFLICT (merchant_id, external_id) DO UPDATE SET
            name = EXCLUDED.name,
            sort_order = EXCLUDED.sort_order,
            is_active = EXCLUDED.is_active,
            updated_at = EXCLUDED.updated_at
        WHERE categories.name IS DISTINCT FROM EXCLUDED.name
           OR categories.sort_order IS DISTINCT FROM EXCLUDED.sort_order
           OR categories.is_active IS DISTINCT FROM EXCLUDED.is_active
    `
	res, err := sqlx.NamedExecContext(ctx, ext, query, c)
	if err != nil {
		return database.Unchanged, fmt.Errorf("upsert category %s: %w", *c.ExternalID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return database.Unchanged, err
	}
	return database.OutcomeOf(existingID != nil, affected), nil
}
