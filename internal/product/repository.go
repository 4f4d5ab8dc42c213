package product

import (
	"context"

	"github.com/fekuna/omnipos-pos-sync/internal/database"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/fekuna/omnipos-pos-sync/internal/product/dto"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, merchantID, id string) (*model.Product, error)
	FindByIDs(ctx context.Context, merchantID string, ids []string) ([]model.Product, error)
	FindAll(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, merchantID, id string) error

	// Check SKU/UPC uniqueness
	IsSKUUnique(ctx context.Context, merchantID, sku, excludeID string) (bool, error)
	IsUPCUnique(ctx context.Context, merchantID, upc, excludeID string) (bool, error)

	// Sync support. ext may be a transaction.
	FindIDByExternalID(ctx context.Context, q sqlx.ExtContext, merchantID, externalID string) (*string, error)
	UpsertByExternalID(ctx context.Context, ext sqlx.ExtContext, product *model.Product) (database.UpsertOutcome, error)
}
