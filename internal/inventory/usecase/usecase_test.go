package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fekuna/omnipos-pos-sync/internal/cache"
	"github.com/fekuna/omnipos-pos-sync/internal/database/dbtest"
	"github.com/fekuna/omnipos-pos-sync/internal/inventory"
	"github.com/fekuna/omnipos-pos-sync/internal/inventory/dto"
	"github.com/fekuna/omnipos-pos-sync/internal/inventory/repository"
	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	uc         inventory.UseCase
	redis      *cache.RedisClient
	merchantID string
	productID  string
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := dbtest.New(t)
	m := dbtest.SeedMerchant(t, db, "M1", "tok")
	productID := dbtest.SeedProduct(t, db, m.ID, "I1", "Latte", 450)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	rc := &cache.RedisClient{Client: client}

	return fixture{
		uc:         NewInventoryUseCase(repository.NewPGRepository(db), rc, logger.NewNop()),
		redis:      rc,
		merchantID: m.ID,
		productID:  productID,
	}
}

func TestAdjustInventory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	view, err := f.uc.GetProductInventory(ctx, f.merchantID, f.productID)
	require.NoError(t, err)
	assert.Equal(t, model.OutOfStock, view.StockStatus)

	view, err = f.uc.AdjustInventory(ctx, &dto.AdjustInventoryInput{
		MerchantID: f.merchantID, ProductID: f.productID, QuantityChange: 10, Reason: "delivery", UserID: "u-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), view.OnHand)
	assert.Equal(t, model.SourceAdjustment, view.Source)
	assert.Equal(t, model.InStock, view.StockStatus)

	_, err = f.uc.AdjustInventory(ctx, &dto.AdjustInventoryInput{
		MerchantID: f.merchantID, ProductID: f.productID, QuantityChange: -11,
	})
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	movements, total, err := f.uc.ListMovements(ctx, &dto.MovementFilters{MerchantID: f.merchantID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "delivery", movements[0].Notes)
}

func TestAdjustInventoryUnknownProduct(t *testing.T) {
	f := setup(t)

	_, err := f.uc.AdjustInventory(context.Background(), &dto.AdjustInventoryInput{
		MerchantID: f.merchantID, ProductID: "00000000-0000-0000-0000-000000000000", QuantityChange: 1,
	})
	assert.ErrorIs(t, err, inventory.ErrProductNotFound)
}

func TestAdjustInventoryBusyWhileLocked(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	key := "lock:inventory:" + f.merchantID + ":" + f.productID
	ok, err := f.redis.AcquireLock(ctx, key, "someone-else", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.uc.AdjustInventory(ctx, &dto.AdjustInventoryInput{
		MerchantID: f.merchantID, ProductID: f.productID, QuantityChange: 1,
	})
	assert.ErrorIs(t, err, inventory.ErrBusy)
}

func TestApplyExternalLevel(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.uc.ApplyExternalLevel(ctx, &dto.ExternalLevelInput{
		MerchantID: f.merchantID, ExternalItemID: "I1", Quantity: 3.9,
	}))
	view, err := f.uc.GetProductInventory(ctx, f.merchantID, f.productID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), view.OnHand)
	assert.Equal(t, model.SourceWebhook, view.Source)

	// unknown items are dropped, not failed
	assert.NoError(t, f.uc.ApplyExternalLevel(ctx, &dto.ExternalLevelInput{
		MerchantID: f.merchantID, ExternalItemID: "missing", Quantity: 1,
	}))
}

func TestOnHandFromRemote(t *testing.T) {
	cases := map[float64]int64{-2: 0, 0: 0, 0.5: 0, 1: 1, 7.99: 7}
	for in, want := range cases {
		assert.Equal(t, want, inventory.OnHandFromRemote(in), "quantity %v", in)
	}
}
