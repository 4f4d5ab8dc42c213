package order

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/fekuna/omnipos-pos-sync/internal/order/dto"
)

var ErrNotFound = errors.New("order not found")

// UseCase is the read side of synced orders. Orders are written by sync only.
type UseCase interface {
	GetOrder(ctx context.Context, merchantID, id string) (*model.Order, error)
	ListOrders(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, int, error)
}
