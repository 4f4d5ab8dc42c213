package inventory

import (
	"context"
	"errors"
	"math"

	"github.com/fekuna/omnipos-pos-sync/internal/inventory/dto"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient inventory")
	ErrBusy              = errors.New("system busy, please try again later (lock)")
)

type UseCase interface {
	GetProductInventory(ctx context.Context, merchantID, productID string) (*dto.LevelView, error)
	ListLowStock(ctx context.Context, merchantID string, page, pageSize int) ([]dto.LevelView, int, error)
	AdjustInventory(ctx context.Context, input *dto.AdjustInventoryInput) (*dto.LevelView, error)
	ApplyExternalLevel(ctx context.Context, input *dto.ExternalLevelInput) error
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.InventoryMovement, int, error)
}

// OnHandFromRemote converts a remote stock quantity to whole units. Fractions
// are dropped and negative counts clamp to zero.
func OnHandFromRemote(quantity float64) int64 {
	if math.IsNaN(quantity) || quantity <= 0 {
		return 0
	}
	return int64(math.Floor(quantity))
}
