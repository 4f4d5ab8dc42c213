package dto

type CreateProductInput struct {
	MerchantID  string `json:"-"`
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Brand       string `json:"brand"`
	PriceCents  int64  `json:"price_cents"`
	SKU         string `json:"sku"`
	UPC         string `json:"upc"`
	IsVisible   *bool  `json:"is_visible"`
}

type UpdateProductInput struct {
	ID          string `json:"-"`
	MerchantID  string `json:"-"`
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Brand       string `json:"brand"`
	PriceCents  int64  `json:"price_cents"`
	SKU         string `json:"sku"`
	UPC         string `json:"upc"`
	IsVisible   bool   `json:"is_visible"`
	IsActive    bool   `json:"is_active"`
}

type ProductFilters struct {
	MerchantID  string
	CategoryID  string
	IsActive    *bool
	SearchQuery string // name, sku, upc
	SortBy      string // name, price, created_at
	SortOrder   string // asc, desc
	Page        int
	PageSize    int
}
