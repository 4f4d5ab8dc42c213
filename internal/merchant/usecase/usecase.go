package usecase

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/fekuna/omnipos-pos-sync/internal/merchant"
	"github.com/fekuna/omnipos-pos-sync/internal/merchant/dto"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/fekuna/omnipos-pos-sync/internal/remote"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProfileSource reads the merchant profile from the remote API.
type ProfileSource interface {
	GetMerchant(ctx context.Context, token, merchantID string) (*remote.Merchant, error)
}

type merchantUseCase struct {
	repo   merchant.Repository
	remote ProfileSource
	logger logger.ZapLogger
}

func NewMerchantUseCase(repo merchant.Repository, src ProfileSource, log logger.ZapLogger) merchant.UseCase {
	return &merchantUseCase{
		repo:   repo,
		remote: src,
		logger: log,
	}
}

func (uc *merchantUseCase) Provision(ctx context.Context, input *dto.ProvisionInput) (*model.Merchant, error) {
	externalID := strings.TrimSpace(input.ExternalID)
	token := strings.TrimSpace(input.AccessToken)
	if externalID == "" || token == "" {
		return nil, merchant.ErrInvalidInput
	}

	profile, err := uc.remote.GetMerchant(ctx, token, externalID)
	if err != nil {
		return nil, err
	}

	name := profile.Name
	if name == "" {
		name = "Merchant " + externalID
	}

	existing, err := uc.repo.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := &model.Merchant{
		BaseModel:   model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		ExternalID:  &externalID,
		Name:        name,
		IsActive:    true,
		AccessToken: &token,
	}
	if existing != nil {
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
		m.LastSyncedAt = existing.LastSyncedAt
	}

	if err := uc.repo.UpsertByExternalID(ctx, m); err != nil {
		return nil, err
	}

	uc.logger.Info("merchant provisioned",
		zap.String("merchant_id", m.ID),
		zap.String("external_id", externalID),
		zap.Bool("existing", existing != nil),
	)
	return m, nil
}

func (uc *merchantUseCase) GetMerchant(ctx context.Context, id string) (*model.Merchant, error) {
	m, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, merchant.ErrNotFound
	}
	return m, nil
}

func (uc *merchantUseCase) UpdateCredential(ctx context.Context, input *dto.UpdateCredentialInput) error {
	token := strings.TrimSpace(input.AccessToken)
	if token == "" {
		return merchant.ErrInvalidInput
	}
	err := uc.repo.UpdateCredential(ctx, input.MerchantID, token)
	if errors.Is(err, sql.ErrNoRows) {
		return merchant.ErrNotFound
	}
	return err
}

func (uc *merchantUseCase) ListActive(ctx context.Context) ([]model.Merchant, error) {
	return uc.repo.ListActive(ctx)
}
