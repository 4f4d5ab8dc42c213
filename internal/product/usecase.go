package product

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/fekuna/omnipos-pos-sync/internal/product/dto"
)

var (
	ErrNotFound     = errors.New("product not found")
	ErrDuplicateSKU = errors.New("SKU already exists")
	ErrDuplicateUPC = errors.New("UPC already exists")
	ErrInvalidInput = errors.New("name is required and price must not be negative")
)

type UseCase interface {
	CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error)
	GetProduct(ctx context.Context, merchantID, id string) (*model.Product, error)
	ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, merchantID, id string) error

	// Search index and list cache maintenance, also driven by sync.
	IndexProducts(ctx context.Context, products []model.Product) error
	InvalidateListCache(ctx context.Context, merchantID string)
}
