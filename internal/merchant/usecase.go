package merchant

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-pos-sync/internal/merchant/dto"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
)

var (
	ErrNotFound     = errors.New("merchant not found")
	ErrInvalidInput = errors.New("external id and access token are required")
)

type UseCase interface {
	// Provision bootstraps a tenant from the remote API. Sync never does this.
	Provision(ctx context.Context, input *dto.ProvisionInput) (*model.Merchant, error)
	GetMerchant(ctx context.Context, id string) (*model.Merchant, error)
	UpdateCredential(ctx context.Context, input *dto.UpdateCredentialInput) error
	ListActive(ctx context.Context) ([]model.Merchant, error)
}
