package merchant

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/model"
)

type Repository interface {
	FindByID(ctx context.Context, id string) (*model.Merchant, error)
	FindByExternalID(ctx context.Context, externalID string) (*model.Merchant, error)
	// UpsertByExternalID creates the merchant or refreshes name and token.
	UpsertByExternalID(ctx context.Context, m *model.Merchant) error
	UpdateCredential(ctx context.Context, id, accessToken string) error
	MarkSynced(ctx context.Context, id string, at time.Time) error
	ListActive(ctx context.Context) ([]model.Merchant, error)
}
