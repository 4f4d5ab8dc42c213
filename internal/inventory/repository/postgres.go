package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-pos-sync/internal/database"
	"github.com/fekuna/omnipos-pos-sync/internal/inventory/dto"
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

const levelColumns = `id, merchant_id, product_id, on_hand, reserved, reorder_level, source, updated_at`

const movementColumns = `id, merchant_id, product_id, movement_type, quantity_change, quantity_before,
    quantity_after, source, reference_id, notes, created_by, created_at`

const insertMovement = `
    INSERT INTO inventory_movements (
        id, merchant_id, product_id, movement_type, quantity_change, quantity_before,
        quantity_after, source, reference_id, notes, created_by, created_at
    )
    VALUES (
        :id, :merchant_id, :product_id, :movement_type, :quantity_change, :quantity_before,
        :quantity_after, :source, :reference_id, :notes, :created_by, :created_at
    )
`

func (r *PGRepository) GetByProduct(ctx context.Context, merchantID, productID string) (*model.InventoryLevel, error) {
	var level model.InventoryLevel
	query := r.DB.Rebind(`SELECT ` + levelColumns + ` FROM inventory_levels WHERE merchant_id = ? AND product_id = ?`)
	err := r.DB.GetContext(ctx, &level, query, merchantID, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // caller decides on defaults
		}
		return nil, err
	}
	return &level, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.InventoryFilters) ([]model.InventoryLevel, int, error) {
	conditions := []string{}
	args := []any{}

	if f.MerchantID != "" {
		conditions = append(conditions, "merchant_id = ?")
		args = append(args, f.MerchantID)
	}
	if f.ProductID != "" {
		conditions = append(conditions, "product_id = ?")
		args = append(args, f.ProductID)
	}
	if f.LowStock {
		conditions = append(conditions, "on_hand <= reorder_level")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind("SELECT count(*) FROM inventory_levels"+whereClause), args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + levelColumns + " FROM inventory_levels" + whereClause + " ORDER BY on_hand ASC, updated_at DESC"
	if f.PageSize > 0 {
		offset := (max(f.Page, 1) - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	levels := []model.InventoryLevel{}
	err := r.DB.SelectContext(ctx, &levels, r.DB.Rebind(query), args...)
	return levels, count, err
}

func (r *PGRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.InventoryMovement, int, error) {
	conditions := []string{}
	args := []any{}

	if f.MerchantID != "" {
		conditions = append(conditions, "merchant_id = ?")
		args = append(args, f.MerchantID)
	}
	if f.ProductID != "" {
		conditions = append(conditions, "product_id = ?")
		args = append(args, f.ProductID)
	}
	if f.MovementType != "" {
		conditions = append(conditions, "movement_type = ?")
		args = append(args, f.MovementType)
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *f.StartDate)
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at < ?")
		args = append(args, *f.EndDate)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind("SELECT count(*) FROM inventory_movements"+whereClause), args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + movementColumns + " FROM inventory_movements" + whereClause + " ORDER BY created_at DESC, id"
	if f.PageSize > 0 {
		offset := (max(f.Page, 1) - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	movements := []model.InventoryMovement{}
	err := r.DB.SelectContext(ctx, &movements, r.DB.Rebind(query), args...)
	return movements, count, err
}

func (r *PGRepository) AdjustStockWithMovement(ctx context.Context, level *model.InventoryLevel, movement *model.InventoryMovement) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. Update level
	upsertQuery := `
        INSERT INTO inventory_levels (
            id, merchant_id, product_id, on_hand, reserved, reorder_level, source, updated_at
        )
        VALUES (
            :id, :merchant_id, :product_id, :on_hand, :reserved, :reorder_level, :source, :updated_at
        )
        ON CONFLICT (product_id)
        DO UPDATE SET
            on_hand = EXCLUDED.on_hand,
            source = EXCLUDED.source,
            updated_at = EXCLUDED.updated_at
    `
	if _, err := tx.NamedExecContext(ctx, upsertQuery, level); err != nil {
		return fmt.Errorf("failed to update inventory: %w", err)
	}

	// 2. Log movement
	if _, err := tx.NamedExecContext(ctx, insertMovement, movement); err != nil {
		return fmt.Errorf("failed to log movement: %w", err)
	}

	return tx.Commit()
}

// ApplyLevel overwrites on_hand and provenance for the product, leaving
// reserved and reorder_level alone. A movement is logged only when on_hand
// actually changes.
func (r *PGRepository) ApplyLevel(ctx context.Context, ext sqlx.ExtContext, level *model.InventoryLevel) (database.UpsertOutcome, error) {
	if ext == nil {
		ext = r.DB
	}
	var current struct {
		ID     string `db:"id"`
		OnHand int64  `db:"on_hand"`
	}
	existed := true
	err := sqlx.GetContext(ctx, ext, &current, ext.Rebind(`SELECT id, on_hand FROM inventory_levels WHERE product_id = ?`), level.ProductID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		existed = false
		if level.ID == "" {
			level.ID = uuid.New().String()
		}
	case err != nil:
		return database.Unchanged, err
	default:
		level.ID = current.ID
	}

	query := `
        INSERT INTO inventory_levels (id, merchant_id, product_id, on_hand, source, updated_at)
        VALUES (:id, :merchant_id, :product_id, :on_hand, :source, :updated_at)
        ON CONFLICT (product_id) DO UPDATE SET
            on_hand = EXCLUDED.on_hand,
            source = EXCLUDED.source,
            updated_at = EXCLUDED.updated_at
        WHERE inventory_levels.on_hand IS DISTINCT FROM EXCLUDED.on_hand
    `
	res, err := sqlx.NamedExecContext(ctx, ext, query, level)
	if err != nil {
		return database.Unchanged, fmt.Errorf("apply inventory level for product %s: %w", level.ProductID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return database.Unchanged, err
	}

	outcome := database.OutcomeOf(existed, affected)
	if outcome == database.Unchanged {
		return outcome, nil
	}

	movement := &model.InventoryMovement{
		ID:             uuid.New().String(),
		MerchantID:     level.MerchantID,
		ProductID:      level.ProductID,
		MovementType:   string(level.Source),
		QuantityChange: level.OnHand - current.OnHand,
		QuantityBefore: current.OnHand,
		QuantityAfter:  level.OnHand,
		Source:         level.Source,
		CreatedAt:      level.UpdatedAt,
	}
	if _, err := sqlx.NamedExecContext(ctx, ext, insertMovement, movement); err != nil {
		return database.Unchanged, fmt.Errorf("log %s movement: %w", level.Source, err)
	}
	return outcome, nil
}

func (r *PGRepository) HasProduct(ctx context.Context, merchantID, productID string) (bool, error) {
	var count int
	err := r.DB.GetContext(ctx, &count, r.DB.Rebind(`SELECT count(*) FROM products WHERE id = ? AND merchant_id = ?`), productID, merchantID)
	return count > 0, err
}

func (r *PGRepository) ResolveProductID(ctx context.Context, merchantID, externalID string) (*string, error) {
	var id string
	err := r.DB.GetContext(ctx, &id, r.DB.Rebind(`SELECT id FROM products WHERE merchant_id = ? AND external_id = ?`), merchantID, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &id, nil
}
