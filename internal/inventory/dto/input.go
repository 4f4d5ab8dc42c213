package dto

type AdjustInventoryInput struct {
	MerchantID     string `json:"-"`
	ProductID      string `json:"-"`
	QuantityChange int64  `json:"quantity_change"`
	Reason         string `json:"reason"`
	ReferenceID    string `json:"reference_id"`
	UserID         string `json:"-"`
}

// ExternalLevelInput carries an on-hand count pushed by the POS for one of
// its items.
type ExternalLevelInput struct {
	MerchantID     string
	ExternalItemID string
	Quantity       float64
	EventID        string
}
