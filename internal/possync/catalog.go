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

// applied is what one record did inside its savepoint.
type applied struct {
	outcome database.UpsertOutcome
	skipped bool
	// externalID and localID pair the remote record with its row.
	externalID string
	localID    string
}

// applyFunc decodes and writes one record. key identifies the record in
// error messages and must be set even when the write fails.
type applyFunc func(ctx context.Context, tx *sqlx.Tx, raw json.RawMessage) (key string, res applied, err error)

type catalogPhase struct {
	name   string
	path   string
	params url.Values
	apply  applyFunc
	// committed sees the records of a page after its transaction commits.
	committed func(ctx context.Context, results []applied)
}

// runCatalogPhase walks a collection with one transaction per page and one
// savepoint per record. A failing record is undone alone; a failing page
// drops only its own writes. A page that cannot be fetched ends the phase:
// past the first page the phase is reported unsuccessful and the run goes
// on, otherwise the error is returned.
func (s *Service) runCatalogPhase(ctx context.Context, r *run, p catalogPhase) (PhaseReport, error) {
	start := time.Now()
	rep := PhaseReport{}

	_, err := s.remote.FetchAll(ctx, r.token, p.path, r.opts.pageSize(), p.params, func(ctx context.Context, page *remote.Page) error {
		var (
			results []applied
			errs    []string
		)
		txErr := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
			results, errs = nil, nil
			for i, raw := range page.Records {
				var (
					key string
					res applied
				)
				err := database.Savepoint(ctx, tx, fmt.Sprintf("rec_%d", i), func() error {
					var err error
					key, res, err = p.apply(ctx, tx, raw)
					return err
				})
				if errors.Is(err, database.ErrTxAborted) {
					return err
				}
				if key == "" {
					key = fmt.Sprintf("offset %d", page.Offset+i)
				}
				if err != nil {
					errs = append(errs, recordError(key, err))
					continue
				}
				results = append(results, res)
			}
			return nil
		})
		if txErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.Error("page rolled back", zap.String("phase", p.name), zap.Int("offset", page.Offset), zap.Error(txErr))
			rep.Errors = append(rep.Errors, fmt.Sprintf("page at offset %d: %v", page.Offset, txErr))
			return nil
		}

		rep.Pages++
		rep.Errors = append(rep.Errors, errs...)
		for _, res := range results {
			if res.skipped {
				rep.Skipped++
				continue
			}
			rep.count(res.outcome)
		}
		if p.committed != nil {
			p.committed(ctx, results)
		}
		return nil
	})
	rep.DurationMS = time.Since(start).Milliseconds()

	if fe, ok := cutShort(err); ok {
		r.log.Warn("phase cut short", zap.String("phase", p.name), zap.Int("offset", fe.Offset), zap.Error(err))
		rep.Errors = append(rep.Errors, fmt.Sprintf("page at offset %d: %v", fe.Offset, fe.Err))
		return rep, nil
	}
	if err != nil {
		var fe *remote.FetchError
		if errors.As(err, &fe) {
			err = classifyFetch(err)
		}
		return rep, err
	}
	rep.Success = true
	r.log.Info("phase finished",
		zap.String("phase", p.name),
		zap.Int("processed", rep.Processed),
		zap.Int("inserted", rep.Inserted),
		zap.Int("updated", rep.Updated),
		zap.Int("skipped", rep.Skipped),
		zap.Int("errors", len(rep.Errors)),
	)
	return rep, nil
}

func (s *Service) syncCategories(ctx context.Context, r *run) (PhaseReport, error) {
	merchantID := r.merchant.ID
	return s.runCatalogPhase(ctx, r, catalogPhase{
		name: "categories",
		path: remote.CategoriesPath(*r.merchant.ExternalID),
		apply: func(ctx context.Context, tx *sqlx.Tx, raw json.RawMessage) (string, applied, error) {
			var c remote.Category
			if err := json.Unmarshal(raw, &c); err != nil {
				return recordID(raw), applied{}, fmt.Errorf("decode category: %w", err)
			}
			if c.ID == "" {
				return "", applied{}, errMissingID
			}
			cat, err := mapCategory(merchantID, c, s.now())
			if err != nil {
				return c.ID, applied{}, err
			}
			outcome, err := s.categories.UpsertByExternalID(ctx, tx, cat)
			if err != nil {
				return c.ID, applied{}, err
			}
			return c.ID, applied{outcome: outcome, externalID: c.ID, localID: cat.ID}, nil
		},
		committed: func(_ context.Context, results []applied) {
			for _, res := range results {
				r.categoryIDs[res.externalID] = res.localID
			}
		},
	})
}

func (s *Service) syncProducts(ctx context.Context, r *run) (PhaseReport, error) {
	merchantID := r.merchant.ID
	changed := false
	rep, err := s.runCatalogPhase(ctx, r, catalogPhase{
		name:   "products",
		path:   remote.ItemsPath(*r.merchant.ExternalID),
		params: url.Values{"expand": []string{"categories"}},
		apply: func(ctx context.Context, tx *sqlx.Tx, raw json.RawMessage) (string, applied, error) {
			var it remote.Item
			if err := json.Unmarshal(raw, &it); err != nil {
				return recordID(raw), applied{}, fmt.Errorf("decode item: %w", err)
			}
			if it.ID == "" {
				return "", applied{}, errMissingID
			}
			categoryID, err := s.resolveCategory(ctx, tx, r, firstCategory(it))
			if err != nil {
				return it.ID, applied{}, err
			}
			p, err := mapProduct(merchantID, it, categoryID, s.now())
			if err != nil {
				return it.ID, applied{}, err
			}
			outcome, err := s.products.UpsertByExternalID(ctx, tx, p)
			if err != nil {
				return it.ID, applied{}, err
			}
			return it.ID, applied{outcome: outcome, externalID: it.ID, localID: p.ID}, nil
		},
		committed: func(ctx context.Context, results []applied) {
			if s.indexer == nil {
				return
			}
			var ids []string
			for _, res := range results {
				if res.outcome != database.Unchanged {
					ids = append(ids, res.localID)
				}
			}
			if len(ids) == 0 {
				return
			}
			changed = true
			// index the rows as stored; the upsert keeps local codes the
			// remote left blank
			batch, err := s.products.FindByIDs(ctx, merchantID, ids)
			if err != nil {
				r.log.Warn("failed to load synced products for indexing", zap.Int("count", len(ids)), zap.Error(err))
				return
			}
			if err := s.indexer.IndexProducts(ctx, batch); err != nil {
				r.log.Warn("failed to index synced products", zap.Int("count", len(batch)), zap.Error(err))
			}
		},
	})
	if changed {
		s.indexer.InvalidateListCache(ctx, merchantID)
	}
	return rep, err
}

func (s *Service) syncInventory(ctx context.Context, r *run) (PhaseReport, error) {
	merchantID := r.merchant.ID
	return s.runCatalogPhase(ctx, r, catalogPhase{
		name: "inventory",
		path: remote.ItemStocksPath(*r.merchant.ExternalID),
		apply: func(ctx context.Context, tx *sqlx.Tx, raw json.RawMessage) (string, applied, error) {
			var st remote.ItemStock
			if err := json.Unmarshal(raw, &st); err != nil {
				return stockItemID(raw), applied{}, fmt.Errorf("decode item stock: %w", err)
			}
			if st.Item.ID == "" {
				return "", applied{}, errMissingID
			}
			productID, err := s.products.FindIDByExternalID(ctx, tx, merchantID, st.Item.ID)
			if err != nil {
				return st.Item.ID, applied{}, err
			}
			if productID == nil {
				return st.Item.ID, applied{skipped: true}, nil
			}
			outcome, err := s.inventory.ApplyLevel(ctx, tx, &model.InventoryLevel{
				MerchantID: merchantID,
				ProductID:  *productID,
				OnHand:     stockOnHand(st),
				Source:     model.SourceSync,
				UpdatedAt:  s.now(),
			})
			if err != nil {
				return st.Item.ID, applied{}, err
			}
			return st.Item.ID, applied{outcome: outcome}, nil
		},
	})
}

// recordID reads the id of a record whose full decode may fail.
func recordID(raw json.RawMessage) string {
	var v struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &v)
	return v.ID
}

func stockItemID(raw json.RawMessage) string {
	var v struct {
		Item struct {
			ID string `json:"id"`
		} `json:"item"`
	}
	_ = json.Unmarshal(raw, &v)
	return v.Item.ID
}

// resolveCategory maps an external category id to the local one. Unknown
// categories resolve to nil rather than failing the product.
func (s *Service) resolveCategory(ctx context.Context, tx *sqlx.Tx, r *run, externalID string) (*string, error) {
	if externalID == "" {
		return nil, nil
	}
	if id, ok := r.categoryIDs[externalID]; ok {
		return &id, nil
	}
	id, err := s.categories.FindIDByExternalID(ctx, tx, r.merchant.ID, externalID)
	if err != nil || id == nil {
		return nil, err
	}
	r.categoryIDs[externalID] = *id
	return id, nil
}
