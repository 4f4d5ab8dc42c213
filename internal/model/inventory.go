package model

import "time"

type InventorySource string

const (
	SourceManual     InventorySource = "manual"
	SourceSync       InventorySource = "sync"
	SourceWebhook    InventorySource = "webhook"
	SourceAdjustment InventorySource = "adjustment"
)

type StockStatus string

const (
	OutOfStock StockStatus = "OUT_OF_STOCK"
	LowStock   StockStatus = "LOW_STOCK"
	InStock    StockStatus = "IN_STOCK"
)

type InventoryLevel struct {
	ID           string          `db:"id" json:"id"`
	MerchantID   string          `db:"merchant_id" json:"merchant_id"`
	ProductID    string          `db:"product_id" json:"product_id"`
	OnHand       int64           `db:"on_hand" json:"on_hand"`
	Reserved     int64           `db:"reserved" json:"reserved"`
	ReorderLevel int64           `db:"reorder_level" json:"reorder_level"`
	Source       InventorySource `db:"source" json:"source"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// StockStatus is derived, never stored. The reorder boundary is inclusive.
func (l *InventoryLevel) StockStatus() StockStatus {
	return DeriveStockStatus(l.OnHand, l.ReorderLevel)
}

func DeriveStockStatus(onHand, reorderLevel int64) StockStatus {
	switch {
	case onHand <= 0:
		return OutOfStock
	case onHand <= reorderLevel:
		return LowStock
	default:
		return InStock
	}
}

type InventoryMovement struct {
	ID             string          `db:"id" json:"id"`
	MerchantID     string          `db:"merchant_id" json:"merchant_id"`
	ProductID      string          `db:"product_id" json:"product_id"`
	MovementType   string          `db:"movement_type" json:"movement_type"`
	QuantityChange int64           `db:"quantity_change" json:"quantity_change"`
	QuantityBefore int64           `db:"quantity_before" json:"quantity_before"`
	QuantityAfter  int64           `db:"quantity_after" json:"quantity_after"`
	Source         InventorySource `db:"source" json:"source"`
	ReferenceID    *string         `db:"reference_id" json:"reference_id"`
	Notes          string          `db:"notes" json:"notes"`
	CreatedBy      *string         `db:"created_by" json:"created_by"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}
