package possync

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/inventory"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/fekuna/omnipos-pos-sync/internal/remote"
)

const paymentStatePaid = "paid"

var (
	errMissingID   = errors.New("record has no id")
	errMissingName = errors.New("name is required")
)

func mapCategory(merchantID string, c remote.Category, now time.Time) (*model.Category, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return nil, errMissingName
	}
	sortOrder := 0
	if c.SortOrder != nil {
		sortOrder = *c.SortOrder
	}
	active := true
	if c.Hidden != nil {
		active = !*c.Hidden
	}
	externalID := c.ID
	return &model.Category{
		BaseModel:  model.BaseModel{CreatedAt: now, UpdatedAt: now},
		MerchantID: merchantID,
		ExternalID: &externalID,
		Name:       name,
		SortOrder:  sortOrder,
		IsActive:   active,
	}, nil
}

// mapProduct translates an item. categoryID is the already resolved local
// category, nil when the item has none or it is unknown.
func mapProduct(merchantID string, it remote.Item, categoryID *string, now time.Time) (*model.Product, error) {
	name := strings.TrimSpace(it.Name)
	if name == "" {
		name = strings.TrimSpace(it.AlternateName)
	}
	if name == "" {
		return nil, errMissingName
	}
	if it.Price < 0 {
		return nil, fmt.Errorf("negative price %d", it.Price)
	}
	active := true
	if it.Hidden != nil {
		active = !*it.Hidden
	}
	visible := true
	if it.Available != nil {
		visible = *it.Available
	}
	externalID := it.ID
	return &model.Product{
		BaseModel:   model.BaseModel{CreatedAt: now, UpdatedAt: now},
		MerchantID:  merchantID,
		ExternalID:  &externalID,
		CategoryID:  categoryID,
		Name:        name,
		Description: blankToNil(it.Description),
		Brand:       blankToNil(it.Brand),
		PriceCents:  it.Price,
		SKU:         blankToNil(it.SKU),
		UPC:         blankToNil(it.Code),
		IsVisible:   visible,
		IsActive:    active,
	}, nil
}

// firstCategory returns the external id of the item's primary category.
func firstCategory(it remote.Item) string {
	if it.Categories == nil {
		return ""
	}
	for _, ref := range it.Categories.Elements {
		if ref.ID != "" {
			return ref.ID
		}
	}
	return ""
}

func stockOnHand(s remote.ItemStock) int64 {
	switch {
	case s.Quantity != nil:
		return inventory.OnHandFromRemote(*s.Quantity)
	case s.StockCount != nil:
		return max(*s.StockCount, 0)
	}
	return 0
}

// mappedLine is a line item plus the remote item it points at, resolved to
// a local product inside the order's transaction.
type mappedLine struct {
	item           model.OrderLineItem
	externalItemID string
}

// mapOrder derives local totals from the remote order. The remote total is
// authoritative: subtotal is the sum of line totals, discount is zero and
// tax absorbs the difference.
func mapOrder(merchantID string, o remote.Order, now time.Time) (*model.Order, []mappedLine, error) {
	var lines []mappedLine
	var subtotal int64
	if o.LineItems != nil {
		for i, li := range o.LineItems.Elements {
			qty := int64(1)
			if li.Quantity != nil {
				qty = *li.Quantity
			}
			if qty <= 0 {
				return nil, nil, fmt.Errorf("line %d: quantity must be positive, got %d", i, qty)
			}
			name := strings.TrimSpace(li.Name)
			if name == "" {
				name = "Item"
			}
			line := mappedLine{
				item: model.OrderLineItem{
					ExternalID:     blankToNil(li.ID),
					ProductName:    name,
					Quantity:       qty,
					UnitPriceCents: li.Price,
					LineTotalCents: qty * li.Price,
				},
			}
			if li.Item != nil {
				line.externalItemID = li.Item.ID
			}
			subtotal += line.item.LineTotalCents
			lines = append(lines, line)
		}
	}

	status := strings.TrimSpace(o.State)
	if status == "" {
		status = model.OrderStatusOpen
	}

	order := &model.Order{
		BaseModel:      model.BaseModel{CreatedAt: now, UpdatedAt: now},
		MerchantID:     merchantID,
		ExternalID:     o.ID,
		ExternalStatus: blankToNil(o.State),
		PaymentState:   blankToNil(o.PaymentState),
		Status:         status,
		SubtotalCents:  subtotal,
		DiscountCents:  0,
		TotalCents:     o.Total,
	}
	order.TaxCents = order.TotalCents - order.SubtotalCents - order.DiscountCents
	if strings.EqualFold(o.PaymentState, paymentStatePaid) {
		completed := now
		order.CompletedAt = &completed
	}
	if o.CreatedTime > 0 {
		created := time.UnixMilli(o.CreatedTime).UTC()
		order.RemoteCreatedAt = &created
	}
	return order, lines, nil
}

func blankToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
