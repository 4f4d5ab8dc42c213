package inventory

import (
	"context"

	"github.com/fekuna/omnipos-pos-sync/internal/database"
	"github.com/fekuna/omnipos-pos-sync/internal/inventory/dto"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	GetByProduct(ctx context.Context, merchantID, productID string) (*model.InventoryLevel, error)
	FindAll(ctx context.Context, filters *dto.InventoryFilters) ([]model.InventoryLevel, int, error)

	// Movements / Audit
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.InventoryMovement, int, error)

	// AdjustStockWithMovement writes the level and its movement in one transaction.
	AdjustStockWithMovement(ctx context.Context, level *model.InventoryLevel, movement *model.InventoryMovement) error

	// ApplyLevel sets on-hand from an outside source (sync, webhook). ext may
	// be a transaction; nil runs on the repository's own handle.
	ApplyLevel(ctx context.Context, ext sqlx.ExtContext, level *model.InventoryLevel) (database.UpsertOutcome, error)

	HasProduct(ctx context.Context, merchantID, productID string) (bool, error)
	ResolveProductID(ctx context.Context, merchantID, externalID string) (*string, error)
}
