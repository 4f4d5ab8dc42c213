package model

type Category struct {
	BaseModel
	MerchantID string  `db:"merchant_id" json:"merchant_id"`
	ExternalID *string `db:"external_id" json:"external_id"` // Nullable, manual categories have none
	Name       string  `db:"name" json:"name"`
	SortOrder  int     `db:"sort_order" json:"sort_order"`
	IsActive   bool    `db:"is_active" json:"is_active"`
}
