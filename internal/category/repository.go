package category

import (
	"context"

	"github.com/fekuna/omnipos-pos-sync/internal/category/dto"
	"github.com/fekuna/omnipos-pos-sync/internal/database"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Create(ctx context.Context, category *model.Category) error
	FindByID(ctx context.Context, merchantID, id string) (*model.Category, error)
	FindAll(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, int, error)
	Update(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, merchantID, id string) error

	// Sync support. ext may be a transaction.
	FindIDByExternalID(ctx context.Context, q sqlx.ExtContext, merchantID, externalID string) (*string, error)
	UpsertByExternalID(ctx context.Context, ext sqlx.ExtContext, category *model.Category) (database.UpsertOutcome, error)
}
