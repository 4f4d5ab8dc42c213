package model

type Product struct {
	BaseModel
	MerchantID  string  `db:"merchant_id" json:"merchant_id"`
	ExternalID  *string `db:"external_id" json:"external_id"`
	CategoryID  *string `db:"category_id" json:"category_id"` // Nullable
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description"`
	Brand       *string `db:"brand" json:"brand"`
	PriceCents  int64   `db:"price_cents" json:"price_cents"`
	SKU         *string `db:"sku" json:"sku"`
	UPC         *string `db:"upc" json:"upc"`
	IsVisible   bool    `db:"is_visible" json:"is_visible"`
	IsActive    bool    `db:"is_active" json:"is_active"`
}
