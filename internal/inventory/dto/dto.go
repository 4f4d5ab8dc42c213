package dto

import (
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/model"
)

type InventoryFilters struct {
	MerchantID string
	ProductID  string
	LowStock   bool // on_hand <= reorder_level
	Page       int
	PageSize   int
}

type MovementFilters struct {
	MerchantID   string
	ProductID    string
	MovementType string
	StartDate    *time.Time
	EndDate      *time.Time
	Page         int
	PageSize     int
}

// LevelView is a level with its derived fields.
type LevelView struct {
	model.InventoryLevel
	Available   int64             `json:"available"`
	StockStatus model.StockStatus `json:"stock_status"`
}

func NewLevelView(l model.InventoryLevel) LevelView {
	return LevelView{
		InventoryLevel: l,
		Available:      max(l.OnHand-l.Reserved, 0),
		StockStatus:    l.StockStatus(),
	}
}
