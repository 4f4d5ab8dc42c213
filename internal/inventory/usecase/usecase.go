package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/cache"
	"github.com/fekuna/omnipos-pos-sync/internal/inventory"
	"github.com/fekuna/omnipos-pos-sync/internal/inventory/dto"
	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	lockTTL      = 5 * time.Second
	lockAttempts = 3
	lockWait     = 100 * time.Millisecond
)

type inventoryUseCase struct {
	repo   inventory.Repository
	cache  *cache.RedisClient
	logger logger.ZapLogger
}

// NewInventoryUseCase builds the use case. Without a cache, adjustments rely
// on the database alone for ordering.
func NewInventoryUseCase(repo inventory.Repository, cache *cache.RedisClient, log logger.ZapLogger) inventory.UseCase {
	return &inventoryUseCase{
		repo:   repo,
		cache:  cache,
		logger: log,
	}
}

func (uc *inventoryUseCase) GetProductInventory(ctx context.Context, merchantID, productID string) (*dto.LevelView, error) {
	level, err := uc.repo.GetByProduct(ctx, merchantID, productID)
	if err != nil {
		return nil, err
	}
	if level == nil {
		ok, err := uc.repo.HasProduct(ctx, merchantID, productID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, inventory.ErrProductNotFound
		}
		// a product that was never counted reports zero stock
		level = &model.InventoryLevel{
			MerchantID: merchantID,
			ProductID:  productID,
			Source:     model.SourceManual,
		}
	}
	view := dto.NewLevelView(*level)
	return &view, nil
}

func (uc *inventoryUseCase) ListLowStock(ctx context.Context, merchantID string, page, pageSize int) ([]dto.LevelView, int, error) {
	levels, total, err := uc.repo.FindAll(ctx, &dto.InventoryFilters{
		MerchantID: merchantID,
		LowStock:   true,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return nil, 0, err
	}
	views := make([]dto.LevelView, 0, len(levels))
	for _, l := range levels {
		views = append(views, dto.NewLevelView(l))
	}
	return views, total, nil
}

func (uc *inventoryUseCase) AdjustInventory(ctx context.Context, input *dto.AdjustInventoryInput) (*dto.LevelView, error) {
	// 0. Acquire lock
	release, err := uc.lock(ctx, fmt.Sprintf("lock:inventory:%s:%s", input.MerchantID, input.ProductID))
	if err != nil {
		return nil, err
	}
	defer release()

	// 1. Current level
	level, err := uc.repo.GetByProduct(ctx, input.MerchantID, input.ProductID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if level == nil {
		ok, err := uc.repo.HasProduct(ctx, input.MerchantID, input.ProductID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, inventory.ErrProductNotFound
		}
		level = &model.InventoryLevel{
			ID:         uuid.New().String(),
			MerchantID: input.MerchantID,
			ProductID:  input.ProductID,
		}
	}

	before := level.OnHand
	level.OnHand += input.QuantityChange
	if level.OnHand < 0 {
		return nil, inventory.ErrInsufficientStock
	}
	level.Source = model.SourceAdjustment
	level.UpdatedAt = now

	var refID, createdBy *string
	if input.ReferenceID != "" {
		refID = &input.ReferenceID
	}
	if input.UserID != "" {
		createdBy = &input.UserID
	}

	// 2. Movement log
	movement := &model.InventoryMovement{
		ID:             uuid.New().String(),
		MerchantID:     input.MerchantID,
		ProductID:      input.ProductID,
		MovementType:   "adjustment",
		QuantityChange: input.QuantityChange,
		QuantityBefore: before,
		QuantityAfter:  level.OnHand,
		Source:         model.SourceAdjustment,
		ReferenceID:    refID,
		Notes:          strings.TrimSpace(input.Reason),
		CreatedBy:      createdBy,
		CreatedAt:      now,
	}

	if err := uc.repo.AdjustStockWithMovement(ctx, level, movement); err != nil {
		return nil, err
	}
	view := dto.NewLevelView(*level)
	return &view, nil
}

// ApplyExternalLevel records a count pushed by the POS. Items that were never
// synced are ignored.
func (uc *inventoryUseCase) ApplyExternalLevel(ctx context.Context, input *dto.ExternalLevelInput) error {
	productID, err := uc.repo.ResolveProductID(ctx, input.MerchantID, input.ExternalItemID)
	if err != nil {
		return err
	}
	if productID == nil {
		uc.logger.Warn("inventory event for unknown item",
			zap.String("merchant_id", input.MerchantID),
			zap.String("item_id", input.ExternalItemID),
		)
		return nil
	}

	release, err := uc.lock(ctx, fmt.Sprintf("lock:inventory:%s:%s", input.MerchantID, *productID))
	if err != nil {
		return err
	}
	defer release()

	level := &model.InventoryLevel{
		MerchantID: input.MerchantID,
		ProductID:  *productID,
		OnHand:     inventory.OnHandFromRemote(input.Quantity),
		Source:     model.SourceWebhook,
		UpdatedAt:  time.Now().UTC(),
	}
	outcome, err := uc.repo.ApplyLevel(ctx, nil, level)
	if err != nil {
		return err
	}
	uc.logger.Debug("external inventory level applied",
		zap.String("product_id", *productID),
		zap.Int64("on_hand", level.OnHand),
		zap.Stringer("outcome", outcome),
	)
	return nil
}

func (uc *inventoryUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.InventoryMovement, int, error) {
	return uc.repo.ListMovements(ctx, filters)
}

// lock takes the per-product Redis lock with a short retry loop. It returns
// the release func.
func (uc *inventoryUseCase) lock(ctx context.Context, key string) (func(), error) {
	if uc.cache == nil {
		return func() {}, nil
	}

	value := uuid.New().String()
	for i := 0; i < lockAttempts; i++ {
		ok, err := uc.cache.AcquireLock(ctx, key, value, lockTTL)
		if err != nil {
			uc.logger.Error("failed to acquire lock redis error", zap.Error(err))
		}
		if ok {
			return func() {
				if err := uc.cache.ReleaseLock(context.WithoutCancel(ctx), key, value); err != nil {
					uc.logger.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
				}
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockWait):
		}
	}
	return nil, inventory.ErrBusy
}
