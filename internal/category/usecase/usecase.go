package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/category"
	"github.com/fekuna/omnipos-pos-sync/internal/category/dto"
	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNameRequired = errors.New("category name is required")

type categoryUseCase struct {
	repo   category.Repository
	logger logger.ZapLogger
}

func NewCategoryUseCase(repo category.Repository, log logger.ZapLogger) category.UseCase {
	return &categoryUseCase{
		repo:   repo,
		logger: log,
	}
}

func (uc *categoryUseCase) CreateCategory(ctx context.Context, input *dto.CreateCategoryInput) (*model.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	now := time.Now().UTC()
	cat := &model.Category{
		BaseModel: model.BaseModel{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		MerchantID: input.MerchantID,
		Name:       name,
		SortOrder:  input.SortOrder,
		IsActive:   true,
	}

	if err := uc.repo.Create(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

func (uc *categoryUseCase) GetCategory(ctx context.Context, merchantID, id string) (*model.Category, error) {
	cat, err := uc.repo.FindByID(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, category.ErrNotFound
	}
	return cat, nil
}

func (uc *categoryUseCase) ListCategories(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

// UpdateCategory edits a category. Synced categories may be edited locally
// but the next sync overwrites remote-owned fields.
func (uc *categoryUseCase) UpdateCategory(ctx context.Context, input *dto.UpdateCategoryInput) (*model.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	cat, err := uc.GetCategory(ctx, input.MerchantID, input.ID)
	if err != nil {
		return nil, err
	}

	cat.Name = name
	cat.SortOrder = input.SortOrder
	cat.IsActive = input.IsActive
	cat.UpdatedAt = time.Now().UTC()

	if err := uc.repo.Update(ctx, cat); err != nil {
		return nil, err
	}
	if cat.ExternalID != nil {
		uc.logger.Debug("edited a synced category", zap.String("category_id", cat.ID))
	}
	return cat, nil
}

func (uc *categoryUseCase) DeleteCategory(ctx context.Context, merchantID, id string) error {
	if _, err := uc.GetCategory(ctx, merchantID, id); err != nil {
		return err
	}
	return uc.repo.Delete(ctx, merchantID, id)
}
