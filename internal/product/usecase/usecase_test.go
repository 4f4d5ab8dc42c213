package usecase

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fekuna/omnipos-pos-sync/internal/cache"
	"github.com/fekuna/omnipos-pos-sync/internal/database/dbtest"
	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/fekuna/omnipos-pos-sync/internal/product"
	"github.com/fekuna/omnipos-pos-sync/internal/product/dto"
	"github.com/fekuna/omnipos-pos-sync/internal/product/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (product.UseCase, *miniredis.Miniredis, string) {
	t.Helper()
	db := dbtest.New(t)
	m := dbtest.SeedMerchant(t, db, "M1", "tok")

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	uc := NewProductUseCase(repository.NewPGRepository(db), &cache.RedisClient{Client: client}, nil, logger.NewNop())
	return uc, mr, m.ID
}

func TestListProductsIsCachedUntilWrite(t *testing.T) {
	uc, mr, merchantID := setup(t)
	ctx := context.Background()

	_, err := uc.CreateProduct(ctx, &dto.CreateProductInput{MerchantID: merchantID, Name: "Latte", PriceCents: 450})
	require.NoError(t, err)

	filters := &dto.ProductFilters{MerchantID: merchantID, Page: 1, PageSize: 20}
	products, total, err := uc.ListProducts(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, products, 1)

	key, err := listCacheKey(filters)
	require.NoError(t, err)
	assert.True(t, mr.Exists(key))

	_, err = uc.CreateProduct(ctx, &dto.CreateProductInput{MerchantID: merchantID, Name: "Mocha", PriceCents: 500})
	require.NoError(t, err)
	assert.False(t, mr.Exists(key), "writes drop the merchant's cached lists")

	_, total, err = uc.ListProducts(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestCreateProductValidation(t *testing.T) {
	uc, _, merchantID := setup(t)
	ctx := context.Background()

	_, err := uc.CreateProduct(ctx, &dto.CreateProductInput{MerchantID: merchantID, Name: " ", PriceCents: 1})
	assert.ErrorIs(t, err, product.ErrInvalidInput)

	_, err = uc.CreateProduct(ctx, &dto.CreateProductInput{MerchantID: merchantID, Name: "Latte", PriceCents: -1})
	assert.ErrorIs(t, err, product.ErrInvalidInput)

	_, err = uc.CreateProduct(ctx, &dto.CreateProductInput{MerchantID: merchantID, Name: "Latte", SKU: "S1", UPC: "U1"})
	require.NoError(t, err)
	_, err = uc.CreateProduct(ctx, &dto.CreateProductInput{MerchantID: merchantID, Name: "Mocha", SKU: "S1"})
	assert.ErrorIs(t, err, product.ErrDuplicateSKU)
	_, err = uc.CreateProduct(ctx, &dto.CreateProductInput{MerchantID: merchantID, Name: "Mocha", UPC: "U1"})
	assert.ErrorIs(t, err, product.ErrDuplicateUPC)
}

func TestUpdateProductKeepsOwnSKU(t *testing.T) {
	uc, _, merchantID := setup(t)
	ctx := context.Background()

	p, err := uc.CreateProduct(ctx, &dto.CreateProductInput{MerchantID: merchantID, Name: "Latte", SKU: "S1", PriceCents: 450})
	require.NoError(t, err)

	updated, err := uc.UpdateProduct(ctx, &dto.UpdateProductInput{
		ID: p.ID, MerchantID: merchantID, Name: "Latte Large", SKU: "S1", PriceCents: 550, IsVisible: true, IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(550), updated.PriceCents)

	err = uc.DeleteProduct(ctx, merchantID, p.ID)
	require.NoError(t, err)
	_, err = uc.GetProduct(ctx, merchantID, p.ID)
	assert.ErrorIs(t, err, product.ErrNotFound)
}
