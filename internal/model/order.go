package model

import "time"

// OrderStatusTombstone marks an order that disappeared from the remote
// system. It is outside the remote status vocabulary.
const OrderStatusTombstone = "delete"

// OrderStatusOpen is used when the remote record carries no state.
const OrderStatusOpen = "open"

type Order struct {
	BaseModel
	MerchantID      string          `db:"merchant_id" json:"merchant_id"`
	ExternalID      string          `db:"external_id" json:"external_id"`
	ExternalStatus  *string         `db:"external_status" json:"external_status"`
	PaymentState    *string         `db:"payment_state" json:"payment_state"`
	Status          string          `db:"status" json:"status"`
	SubtotalCents   int64           `db:"subtotal_cents" json:"subtotal_cents"`
	TaxCents        int64           `db:"tax_cents" json:"tax_cents"`
	DiscountCents   int64           `db:"discount_cents" json:"discount_cents"`
	TotalCents      int64           `db:"total_cents" json:"total_cents"`
	CompletedAt     *time.Time      `db:"completed_at" json:"completed_at"`
	RemoteCreatedAt *time.Time      `db:"remote_created_at" json:"remote_created_at"`
	LineItems       []OrderLineItem `db:"-" json:"line_items,omitempty"`
}

// Balanced reports whether total = subtotal + tax - discount.
func (o *Order) Balanced() bool {
	return o.TotalCents == o.SubtotalCents+o.TaxCents-o.DiscountCents
}

func (o *Order) IsTombstoned() bool {
	return o.Status == OrderStatusTombstone
}

type OrderLineItem struct {
	ID             string    `db:"id" json:"id"`
	OrderID        string    `db:"order_id" json:"order_id"`
	ProductID      *string   `db:"product_id" json:"product_id"` // weak reference
	ExternalID     *string   `db:"external_id" json:"external_id"`
	ProductName    string    `db:"product_name" json:"product_name"`
	Quantity       int64     `db:"quantity" json:"quantity"`
	UnitPriceCents int64     `db:"unit_price_cents" json:"unit_price_cents"`
	DiscountCents  int64     `db:"discount_cents" json:"discount_cents"`
	LineTotalCents int64     `db:"line_total_cents" json:"line_total_cents"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
