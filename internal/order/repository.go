package order

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/database"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/fekuna/omnipos-pos-sync/internal/order/dto"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	FindByID(ctx context.Context, merchantID, id string) (*model.Order, error)
	FindAll(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, int, error)

	// Sync support. ext may be a transaction.
	UpsertByExternalID(ctx context.Context, ext sqlx.ExtContext, order *model.Order) (database.UpsertOutcome, error)
	ReplaceLineItems(ctx context.Context, ext sqlx.ExtContext, orderID string, items []model.OrderLineItem, now time.Time) (bool, error)

	// Reconciliation
	ListActiveExternalIDs(ctx context.Context, merchantID string) ([]string, error)
	MarkTombstoned(ctx context.Context, merchantID string, externalIDs []string) (int64, error)
}
