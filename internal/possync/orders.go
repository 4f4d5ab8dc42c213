package possync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/database"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/fekuna/omnipos-pos-sync/internal/remote"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// syncOrders upserts every remote order in its own transaction, then
// reconciles the local orders the sweep did not return.
func (s *Service) syncOrders(ctx context.Context, r *run) (OrderReport, error) {
	start := time.Now()
	rep := OrderReport{}
	seen := map[string]struct{}{}

	params := url.Values{"expand": []string{"lineItems"}}
	if r.opts.Since != nil {
		for k, v := range remote.ModifiedSince(r.opts.Since.UnixMilli()) {
			params[k] = v
		}
	}

	_, err := s.remote.FetchAll(ctx, r.token, remote.OrdersPath(*r.merchant.ExternalID), r.opts.pageSize(), params,
		func(ctx context.Context, page *remote.Page) error {
			for i, raw := range page.Records {
				id := recordID(raw)
				if id == "" {
					rep.Errors = append(rep.Errors, recordError(fmt.Sprintf("offset %d", page.Offset+i), errMissingID))
					continue
				}
				// seen before decoding: a remote order that fails locally
				// still exists remotely and must not be tombstoned
				seen[id] = struct{}{}

				var o remote.Order
				if err := json.Unmarshal(raw, &o); err != nil {
					rep.Errors = append(rep.Errors, recordError(id, fmt.Errorf("decode order: %w", err)))
					continue
				}

				outcome, err := s.applyOrder(ctx, r, o)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					rep.Errors = append(rep.Errors, recordError(o.ID, err))
					continue
				}
				rep.count(outcome)
			}
			return nil
		})
	if fe, ok := cutShort(err); ok {
		rep.DurationMS = time.Since(start).Milliseconds()
		rep.Errors = append(rep.Errors, fmt.Sprintf("page at offset %d: %v", fe.Offset, fe.Err))
		r.log.Warn("order sweep cut short, not reconciling", zap.Int("offset", fe.Offset), zap.Error(err))
		return rep, nil
	}
	if err != nil {
		rep.DurationMS = time.Since(start).Milliseconds()
		var fe *remote.FetchError
		if errors.As(err, &fe) {
			err = classifyFetch(err)
		}
		// an interrupted sweep proves nothing about absence
		return rep, err
	}

	if err := s.reconcile(ctx, r, seen, &rep); err != nil {
		rep.DurationMS = time.Since(start).Milliseconds()
		return rep, err
	}

	rep.Success = true
	rep.DurationMS = time.Since(start).Milliseconds()
	r.log.Info("orders finished",
		zap.Int("processed", rep.Processed),
		zap.Int("inserted", rep.Inserted),
		zap.Int("updated", rep.Updated),
		zap.Int("unmatched", rep.Unmatched),
		zap.Int("marked_for_delete", rep.MarkedForDelete),
		zap.Int("errors", len(rep.Errors)),
	)
	return rep, nil
}

func (s *Service) applyOrder(ctx context.Context, r *run, o remote.Order) (database.UpsertOutcome, error) {
	outcome := database.Unchanged
	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		now := s.now()
		order, lines, err := mapOrder(r.merchant.ID, o, now)
		if err != nil {
			return err
		}

		outcome, err = s.orders.UpsertByExternalID(ctx, tx, order)
		if err != nil {
			return err
		}

		items := make([]model.OrderLineItem, 0, len(lines))
		for _, l := range lines {
			item := l.item
			if l.externalItemID != "" {
				// unknown products keep the snapshot with a NULL reference
				item.ProductID, err = s.products.FindIDByExternalID(ctx, tx, r.merchant.ID, l.externalItemID)
				if err != nil {
					return err
				}
			}
			items = append(items, item)
		}

		linesChanged, err := s.orders.ReplaceLineItems(ctx, tx, order.ID, items, now)
		if err != nil {
			return err
		}
		if linesChanged && outcome == database.Unchanged {
			outcome = database.Updated
		}
		return nil
	})
	return outcome, err
}

// reconcile computes the local orders missing from this sweep and, when
// pruning is allowed, tombstones them.
func (s *Service) reconcile(ctx context.Context, r *run, seen map[string]struct{}, rep *OrderReport) error {
	if r.opts.Since != nil {
		if r.opts.Prune {
			r.log.Warn("prune ignored for an incremental order sync")
		}
		return nil
	}

	active, err := s.orders.ListActiveExternalIDs(ctx, r.merchant.ID)
	if err != nil {
		return fmt.Errorf("list local orders: %w", err)
	}
	var missing []string
	for _, id := range active {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	rep.Unmatched = len(missing)

	if !r.opts.Prune || len(missing) == 0 {
		return nil
	}
	n, err := s.orders.MarkTombstoned(ctx, r.merchant.ID, missing)
	if err != nil {
		return fmt.Errorf("tombstone orders: %w", err)
	}
	rep.MarkedForDelete = int(n)
	rep.Pruned = true
	r.log.Info("orders tombstoned", zap.Int64("count", n))
	return nil
}
