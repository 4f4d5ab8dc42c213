package dto

type CreateCategoryInput struct {
	MerchantID string `json:"-"`
	Name       string `json:"name"`
	SortOrder  int    `json:"sort_order"`
}

type UpdateCategoryInput struct {
	ID         string `json:"-"`
	MerchantID string `json:"-"`
	Name       string `json:"name"`
	SortOrder  int    `json:"sort_order"`
	IsActive   bool   `json:"is_active"`
}

type CategoryFilters struct {
	MerchantID string
	IsActive   *bool
	// Synced nil means both, true only categories mapped to the remote system.
	Synced   *bool
	Page     int
	PageSize int
}
