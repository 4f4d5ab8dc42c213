package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-pos-sync/internal/database"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/fekuna/omnipos-pos-sync/internal/product/dto"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

const productColumns = `id, merchant_id, external_id, category_id, name, description, brand,
    price_cents, sku, upc, is_visible, is_active, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, p *model.Product) error {
	query := `
        INSERT INTO products (
            id, merchant_id, external_id, category_id, name, description, brand,
            price_cents, sku, upc, is_visible, is_active, created_at, updated_at
        )
        VALUES (
            :id, :merchant_id, :external_id, :category_id, :name, :description, :brand,
            :price_cents, :sku, :upc, :is_visible, :is_active, :created_at, :updated_at
        )
    `
	_, err := r.DB.NamedExecContext(ctx, query, p)
	return err
}

func (r *PGRepository) FindByID(ctx context.Context, merchantID, id string) (*model.Product, error) {
	var product model.Product
	query := r.DB.Rebind(`SELECT ` + productColumns + ` FROM products WHERE id = ? AND merchant_id = ?`)
	err := r.DB.GetContext(ctx, &product, query, id, merchantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// FindByIDs returns the merchant's products among ids. Missing ids are
// left out.
func (r *PGRepository) FindByIDs(ctx context.Context, merchantID string, ids []string) ([]model.Product, error) {
	products := []model.Product{}
	if len(ids) == 0 {
		return products, nil
	}
	query, args, err := sqlx.In(`SELECT `+productColumns+` FROM products WHERE merchant_id = ? AND id IN (?) ORDER BY id`, merchantID, ids)
	if err != nil {
		return nil, err
	}
	err = r.DB.SelectContext(ctx, &products, r.DB.Rebind(query), args...)
	return products, err
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	conditions := []string{"merchant_id = ?"}
	args := []any{f.MerchantID}

	if f.CategoryID != "" {
		conditions = append(conditions, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.IsActive != nil {
		conditions = append(conditions, "is_active = ?")
		args = append(args, *f.IsActive)
	}
	if f.SearchQuery != "" {
		// LOWER/LIKE keeps this portable; Elasticsearch serves real search
		like := "%" + strings.ToLower(f.SearchQuery) + "%"
		conditions = append(conditions, "(LOWER(name) LIKE ? OR LOWER(sku) LIKE ? OR upc LIKE ?)")
		args = append(args, like, like, like)
	}
	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	var count int
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind("SELECT count(*) FROM products"+whereClause), args...); err != nil {
		return nil, 0, err
	}

	orderBy := "created_at DESC"
	if f.SortBy != "" {
		// whitelist to keep ORDER BY injection-free
		switch f.SortBy {
		case "name":
			orderBy = "name"
		case "price":
			orderBy = "price_cents"
		default:
			orderBy = "created_at"
		}
		if strings.ToLower(f.SortOrder) == "asc" {
			orderBy += " ASC"
		} else {
			orderBy += " DESC"
		}
	}

	query := fmt.Sprintf("SELECT %s FROM products%s ORDER BY %s, id", productColumns, whereClause, orderBy)
	if f.PageSize > 0 {
		offset := (max(f.Page, 1) - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	products := []model.Product{}
	if err := r.DB.SelectContext(ctx, &products, r.DB.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	return products, count, nil
}

func (r *PGRepository) Update(ctx context.Context, p *model.Product) error {
	query := `
        UPDATE products
        SET category_id = :category_id,
            name = :name,
            description = :description,
            brand = :brand,
            price_cents = :price_cents,
            sku = :sku,
            upc = :upc,
            is_visible = :is_visible,
            is_active = :is_active,
            updated_at = :updated_at
        WHERE id = :id AND merchant_id = :merchant_id
    `
	_, err := r.DB.NamedExecContext(ctx, query, p)
	return err
}

func (r *PGRepository) Delete(ctx context.Context, merchantID, id string) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind("DELETE FROM products WHERE id = ? AND merchant_id = ?"), id, merchantID)
	return err
}

func (r *PGRepository) IsSKUUnique(ctx context.Context, merchantID, sku, excludeID string) (bool, error) {
	return r.isUnique(ctx, "sku", merchantID, sku, excludeID)
}

func (r *PGRepository) IsUPCUnique(ctx context.Context, merchantID, upc, excludeID string) (bool, error) {
	return r.isUnique(ctx, "upc", merchantID, upc, excludeID)
}

func (r *PGRepository) isUnique(ctx context.Context, column, merchantID, value, excludeID string) (bool, error) {
	query := "SELECT count(*) FROM products WHERE merchant_id = ? AND " + column + " = ?"
	args := []any{merchantID, value}
	if excludeID != "" {
		query += " AND id <> ?"
		args = append(args, excludeID)
	}
	var count int
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(query), args...); err != nil {
		return false, err
	}
	return count == 0, nil
}

func (r *PGRepository) FindIDByExternalID(ctx context.Context, q sqlx.ExtContext, merchantID, externalID string) (*string, error) {
	var id string
	query := q.Rebind(`SELECT id FROM products WHERE merchant_id = ? AND external_id = ?`)
	err := sqlx.GetContext(ctx, q, &id, query, merchantID, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &id, nil
}

// UpsertByExternalID inserts or refreshes the product keyed on
// (merchant_id, external_id). A nil SKU, UPC, description or brand never
// clears a value already stored. Rows that would not change are skipped.
func (r *PGRepository) UpsertByExternalID(ctx context.Context, ext sqlx.ExtContext, p *model.Product) (database.UpsertOutcome, error) {
	existingID, err := r.FindIDByExternalID(ctx, ext, p.MerchantID, *p.ExternalID)
	if err != nil {
		return database.Unchanged, err
	}
	if existingID != nil {
		p.ID = *existingID
	} else if p.ID == "" {
		p.ID = uuid.New().String()
	}

	query := `
        INSERT INTO products (
            id, merchant_id, external_id, category_id, name, description, brand,
            price_cents, sku, upc, is_visible, is_active, created_at, updated_at
        )
        VALUES (
            :id, :merchant_id, :external_id, :category_id, :name, :description, :brand,
            :price_cents, :sku, :upc, :is_visible, :is_active, :created_at, :updated_at
        )
        ON CONFLICT (merchant_id, external_id) DO UPDATE SET
            category_id = EXCLUDED.category_id,
            name = EXCLUDED.name,
            description = COALESCE(EXCLUDED.description, products.description),
            brand = COALESCE(EXCLUDED.brand, products.brand),
            price_cents = EXCLUDED.price_cents,
            sku = COALESCE(EXCLUDED.sku, products.sku),
            upc = COALESCE(EXCLUDED.upc, products.upc),
            is_visible = EXCLUDED.is_visible,
            is_active = EXCLUDED.is_active,
            updated_at = EXCLUDED.updated_at
        WHERE products.category_id IS DISTINCT FROM EXCLUDED.category_id
           OR products.name IS DISTINCT FROM EXCLUDED.name
           OR products.description IS DISTINCT FROM COALESCE(EXCLUDED.description, products.description)
           OR products.brand IS DISTINCT FROM COALESCE(EXCLUDED.brand, products.brand)
           OR products.price_cents IS DISTINCT FROM EXCLUDED.price_cents
           OR products.sku IS DISTINCT FROM COALESCE(EXCLUDED.sku, products.sku)
           OR products.upc IS DISTINCT FROM COALESCE(EXCLUDED.upc, products.upc)
           OR products.is_visible IS DISTINCT FROM EXCLUDED.is_visible
           OR products.is_active IS DISTINCT FROM EXCLUDED.is_active
    `
	res, err := sqlx.NamedExecContext(ctx, ext, query, p)
	if err != nil {
		return database.Unchanged, fmt.Errorf("upsert product %s: %w", *p.ExternalID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return database.Unchanged, err
	}
	return database.OutcomeOf(existingID != nil, affected), nil
}
