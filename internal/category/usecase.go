package category

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-pos-sync/internal/category/dto"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
)

var ErrNotFound = errors.New("category not found")

type UseCase interface {
	CreateCategory(ctx context.Context, input *dto.CreateCategoryInput) (*model.Category, error)
	GetCategory(ctx context.Context, merchantID, id string) (*model.Category, error)
	ListCategories(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, int, error)
	UpdateCategory(ctx context.Context, input *dto.UpdateCategoryInput) (*model.Category, error)
	DeleteCategory(ctx context.Context, merchantID, id string) error
}
