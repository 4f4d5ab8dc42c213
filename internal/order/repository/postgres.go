package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/database"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/fekuna/omnipos-pos-sync/internal/order/dto"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// tombstoneBatch bounds the IN list of one tombstoning statement.
const tombstoneBatch = 500

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

const orderColumns = `id, merchant_id, external_id, external_status, payment_state, status,
    subtotal_cents, tax_cents, discount_cents, total_cents, completed_at, remote_created_at,
    created_at, updated_at`

const lineItemColumns = `id, order_id, product_id, external_id, product_name, quantity,
    unit_price_cents, discount_cents, line_total_cents, created_at`

func (r *PGRepository) FindByID(ctx context.Context, merchantID, id string) (*model.Order, error) {
	var o model.Order
	err := r.DB.GetContext(ctx, &o, r.DB.Rebind(`SELECT `+orderColumns+` FROM orders WHERE id = ? AND merchant_id = ?`), id, merchantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	items, err := r.lineItems(ctx, r.DB, o.ID)
	if err != nil {
		return nil, err
	}
	o.LineItems = items
	return &o, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.OrderFilters) ([]model.Order, int, error) {
	where := " WHERE merchant_id = ?"
	args := []any{f.MerchantID}
	if f.Status != "" {
		where += " AND status = ?"
		args = append(args, f.Status)
	} else {
		where += " AND status <> ?"
		args = append(args, model.OrderStatusTombstone)
	}

	var count int
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind("SELECT count(*) FROM orders"+where), args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + orderColumns + " FROM orders" + where + " ORDER BY COALESCE(remote_created_at, created_at) DESC, id"
	if f.PageSize > 0 {
		offset := (max(f.Page, 1) - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	orders := []model.Order{}
	err := r.DB.SelectContext(ctx, &orders, r.DB.Rebind(query), args...)
	return orders, count, err
}

// UpsertByExternalID writes the order keyed on (merchant_id, external_id).
// completed_at is only ever set once.
func (r *PGRepository) UpsertByExternalID(ctx context.Context, ext sqlx.ExtContext, o *model.Order) (database.UpsertOutcome, error) {
	var existingID string
	existed := true
	err := sqlx.GetContext(ctx, ext, &existingID,
		ext.Rebind(`SELECT id FROM orders WHERE merchant_id = ? AND external_id = ?`), o.MerchantID, o.ExternalID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		existed = false
		if o.ID == "" {
			o.ID = uuid.New().String()
		}
	case err != nil:
		return database.Unchanged, err
	default:
		o.ID = existingID
	}

	query := `
        INSERT INTO orders (
            id, merchant_id, external_id, external_status, payment_state, status,
            subtotal_cents, tax_cents, discount_cents, total_cents, completed_at, remote_created_at,
            created_at, updated_at
        )
        VALUES (
            :id, :merchant_id, :external_id, :external_status, :payment_state, :status,
            :subtotal_cents, :tax_cents, :discount_cents, :total_cents, :completed_at, :remote_created_at,
            :created_at, :updated_at
        )
        ON CONFLICT (merchant_id, external_id) DO UPDATE SET
            external_status = EXCLUDED.external_status,
            payment_state = EXCLUDED.payment_state,
            status = EXCLUDED.status,
            subtotal_cents = EXCLUDED.subtotal_cents,
            tax_cents = EXCLUDED.tax_cents,
            discount_cents = EXCLUDED.discount_cents,
            total_cents = EXCLUDED.total_cents,
            completed_at = COALESCE(orders.completed_at, EXCLUDED.completed_at),
            remote_created_at = EXCLUDED.remote_created_at,
            updated_at = EXCLUDED.updated_at
        WHERE orders.external_status IS DISTINCT FROM EXCLUDED.external_status
           OR orders.payment_state IS DISTINCT FROM EXCLUDED.payment_state
           OR orders.status IS DISTINCT FROM EXCLUDED.status
           OR orders.subtotal_cents IS DISTINCT FROM EXCLUDED.subtotal_cents
           OR orders.tax_cents IS DISTINCT FROM EXCLUDED.tax_cents
           OR orders.discount_cents IS DISTINCT FROM EXCLUDED.discount_cents
           OR orders.total_cents IS DISTINCT FROM EXCLUDED.total_cents
           OR orders.remote_created_at IS DISTINCT FROM EXCLUDED.remote_created_at
           OR (orders.completed_at IS NULL AND EXCLUDED.completed_at IS NOT NULL)
    `
	res, err := sqlx.NamedExecContext(ctx, ext, query, o)
	if err != nil {
		return database.Unchanged, fmt.Errorf("upsert order %s: %w", o.ExternalID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return database.Unchanged, err
	}
	return database.OutcomeOf(existed, affected), nil
}

// ReplaceLineItems swaps the order's line items for items. Ids are derived
// from the order, the position and the remote line id, so an identical set
// leaves the table untouched. It reports whether anything was rewritten.
func (r *PGRepository) ReplaceLineItems(ctx context.Context, ext sqlx.ExtContext, orderID string, items []model.OrderLineItem, now time.Time) (bool, error) {
	for i := range items {
		items[i].ID = LineItemID(orderID, i, items[i].ExternalID)
		items[i].OrderID = orderID
		items[i].CreatedAt = now
	}

	current, err := r.lineItems(ctx, ext, orderID)
	if err != nil {
		return false, err
	}
	if sameLineItems(current, items) {
		return false, nil
	}

	if _, err := ext.ExecContext(ctx, ext.Rebind(`DELETE FROM order_line_items WHERE order_id = ?`), orderID); err != nil {
		return false, fmt.Errorf("delete line items: %w", err)
	}
	if len(items) > 0 {
		query := `
            INSERT INTO order_line_items (
                id, order_id, product_id, external_id, product_name, quantity,
                unit_price_cents, discount_cents, line_total_cents, created_at
            )
            VALUES (
                :id, :order_id, :product_id, :external_id, :product_name, :quantity,
                :unit_price_cents, :discount_cents, :line_total_cents, :created_at
            )
        `
		for i := range items {
			if _, err := sqlx.NamedExecContext(ctx, ext, query, &items[i]); err != nil {
				return false, fmt.Errorf("insert line item %d: %w", i, err)
			}
		}
	}
	if _, err := ext.ExecContext(ctx, ext.Rebind(`UPDATE orders SET updated_at = ? WHERE id = ?`), now, orderID); err != nil {
		return false, err
	}
	return true, nil
}

func (r *PGRepository) ListActiveExternalIDs(ctx context.Context, merchantID string) ([]string, error) {
	ids := []string{}
	err := r.DB.SelectContext(ctx, &ids,
		r.DB.Rebind(`SELECT external_id FROM orders WHERE merchant_id = ? AND status <> ? ORDER BY external_id`),
		merchantID, model.OrderStatusTombstone)
	return ids, err
}

// MarkTombstoned soft-deletes the merchant's orders with the given external
// ids, in batches. Already tombstoned orders are not counted again.
func (r *PGRepository) MarkTombstoned(ctx context.Context, merchantID string, externalIDs []string) (int64, error) {
	var total int64
	now := time.Now().UTC()
	for start := 0; start < len(externalIDs); start += tombstoneBatch {
		batch := externalIDs[start:min(start+tombstoneBatch, len(externalIDs))]
		query, args, err := sqlx.In(`
            UPDATE orders SET status = ?, updated_at = ?
            WHERE merchant_id = ? AND status <> ? AND external_id IN (?)`,
			model.OrderStatusTombstone, now, merchantID, model.OrderStatusTombstone, batch)
		if err != nil {
			return total, err
		}
		res, err := r.DB.ExecContext(ctx, r.DB.Rebind(query), args...)
		if err != nil {
			return total, fmt.Errorf("tombstone batch at %d: %w", start, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (r *PGRepository) lineItems(ctx context.Context, q sqlx.ExtContext, orderID string) ([]model.OrderLineItem, error) {
	items := []model.OrderLineItem{}
	err := sqlx.SelectContext(ctx, q, &items,
		q.Rebind(`SELECT `+lineItemColumns+` FROM order_line_items WHERE order_id = ? ORDER BY id`), orderID)
	return items, err
}

// LineItemID is stable for a given order, position and remote line id.
func LineItemID(orderID string, index int, externalID *string) string {
	name := orderID + ":" + strconv.Itoa(index) + ":"
	if externalID != nil {
		name += *externalID
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

func sameLineItems(current, next []model.OrderLineItem) bool {
	if len(current) != len(next) {
		return false
	}
	byID := make(map[string]model.OrderLineItem, len(current))
	for _, it := range current {
		byID[it.ID] = it
	}
	for _, it := range next {
		cur, ok := byID[it.ID]
		if !ok ||
			!equalPtr(cur.ProductID, it.ProductID) ||
			!equalPtr(cur.ExternalID, it.ExternalID) ||
			cur.ProductName != it.ProductName ||
			cur.Quantity != it.Quantity ||
			cur.UnitPriceCents != it.UnitPriceCents ||
			cur.DiscountCents != it.DiscountCents ||
			cur.LineTotalCents != it.LineTotalCents {
			return false
		}
	}
	return true
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
