package possync

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/broker"
	"github.com/fekuna/omnipos-pos-sync/internal/category"
	"github.com/fekuna/omnipos-pos-sync/internal/database"
	"github.com/fekuna/omnipos-pos-sync/internal/inventory"
	"github.com/fekuna/omnipos-pos-sync/internal/lock"
	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/fekuna/omnipos-pos-sync/internal/order"
	"github.com/fekuna/omnipos-pos-sync/internal/product"
	"github.com/fekuna/omnipos-pos-sync/internal/remote"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	EventSyncCompleted = "SyncCompleted"
	EventSyncFailed    = "SyncFailed"
)

type MerchantStore interface {
	FindByID(ctx context.Context, id string) (*model.Merchant, error)
	MarkSynced(ctx context.Context, id string, at time.Time) error
}

// Fetcher walks a remote collection page by page.
type Fetcher interface {
	FetchAll(ctx context.Context, token, path string, pageSize int, params url.Values, handle remote.PageHandler) (remote.FetchStats, error)
}

// ProductIndexer keeps derived product views current. product.UseCase
// satisfies it.
type ProductIndexer interface {
	IndexProducts(ctx context.Context, products []model.Product) error
	InvalidateListCache(ctx context.Context, merchantID string)
}

type EventPublisher interface {
	Publish(ctx context.Context, env broker.Envelope) error
}

type Recorder interface {
	ObserveRun(result string)
	AddRecords(entity, outcome string, n int)
	ObservePhase(phase string, d time.Duration)
	AddTombstoned(n int)
}

// Deps wires a Service. Indexer, Events, Metrics and Tracer are optional.
type Deps struct {
	DB         *sqlx.DB
	Merchants  MerchantStore
	Categories category.Repository
	Products   product.Repository
	Inventory  inventory.Repository
	Orders     order.Repository
	Remote     Fetcher
	Indexer    ProductIndexer
	Events     EventPublisher
	Metrics    Recorder
	Tracer     trace.Tracer
	Logger     logger.ZapLogger
	Now        func() time.Time
}

type Service struct {
	tx         *database.TxManager
	merchants  MerchantStore
	categories category.Repository
	products   product.Repository
	inventory  inventory.Repository
	orders     order.Repository
	remote     Fetcher
	indexer    ProductIndexer
	events     EventPublisher
	metrics    Recorder
	tracer     trace.Tracer
	logger     logger.ZapLogger
	now        func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		tx:         database.NewTxManager(d.DB),
		merchants:  d.Merchants,
		categories: d.Categories,
		products:   d.Products,
		inventory:  d.Inventory,
		orders:     d.Orders,
		remote:     d.Remote,
		indexer:    d.Indexer,
		events:     d.Events,
		metrics:    d.Metrics,
		tracer:     d.Tracer,
		logger:     d.Logger,
		now:        d.Now,
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("github.com/fekuna/omnipos-pos-sync/internal/possync")
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// run carries the state of one invocation.
type run struct {
	merchant *model.Merchant
	token    string
	opts     Options
	log      logger.ZapLogger
	// categoryIDs caches external to local category ids for the run.
	categoryIDs map[string]string
}

// Run synchronizes one merchant. Per-record failures land in the report;
// the returned error is reserved for preconditions and phase-fatal faults,
// in which case the partial report is still returned.
func (s *Service) Run(ctx context.Context, merchantID string, opts Options) (*Report, error) {
	rep := &Report{MerchantID: merchantID, Enabled: opts.Enabled, StartedAt: s.now()}

	if !opts.Enabled {
		rep.finish(s.now(), nil)
		s.observeRun("disabled")
		s.logger.Info("sync disabled, skipping", zap.String("merchant_id", merchantID))
		return rep, nil
	}

	// 1. Preconditions, before any network call
	m, err := s.merchants.FindByID(ctx, merchantID)
	if err != nil {
		return s.reject(rep, fmt.Errorf("load merchant: %w", err))
	}
	if m == nil {
		return s.reject(rep, fmt.Errorf("%w: %s", ErrMerchantNotFound, merchantID))
	}
	if m.ExternalID == nil || *m.ExternalID == "" {
		return s.reject(rep, fmt.Errorf("%w: %s", ErrTenantNotFound, merchantID))
	}
	if !m.HasCredential() {
		return s.reject(rep, fmt.Errorf("%w: %s", ErrCredentialMissing, merchantID))
	}

	ctx, span := s.tracer.Start(ctx, "possync.Run", trace.WithAttributes(
		attribute.String("merchant.id", merchantID),
		attribute.Bool("sync.catalog", opts.Catalog),
		attribute.Bool("sync.orders", opts.Orders),
		attribute.Bool("sync.prune", opts.Prune),
	))
	defer span.End()

	r := &run{
		merchant:    m,
		token:       *m.AccessToken,
		opts:        opts,
		log:         s.logger.With(zap.String("merchant_id", merchantID), zap.String("remote_merchant_id", *m.ExternalID)),
		categoryIDs: map[string]string{},
	}
	r.log.Info("sync started", zap.Int("page_size", opts.pageSize()))

	// phases whose walk was cut short by the remote
	var incomplete []string

	// 2. Catalog: categories, products, inventory in order
	if opts.Catalog {
		phases := []struct {
			name string
			dst  *PhaseReport
			fn   func(context.Context, *run) (PhaseReport, error)
		}{
			{"categories", &rep.Categories, s.syncCategories},
			{"products", &rep.Products, s.syncProducts},
			{"inventory", &rep.Inventory, s.syncInventory},
		}
		for _, p := range phases {
			pr, err := s.tracePhase(ctx, p.name, func(ctx context.Context) (PhaseReport, error) { return p.fn(ctx, r) })
			*p.dst = pr
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, p.name)
				return s.fail(ctx, rep, fmt.Errorf("%s: %w", p.name, err))
			}
			if !pr.Success {
				incomplete = append(incomplete, p.name)
			}
		}
	}

	// 3. Orders and reconciliation
	if opts.Orders {
		ctx, ospan := s.tracer.Start(ctx, "possync.orders")
		or, err := s.syncOrders(ctx, r)
		ospan.End()
		rep.Orders = or
		s.observePhase("orders", time.Duration(or.DurationMS)*time.Millisecond)
		s.recordOutcomes("orders", or.Inserted, or.Updated, or.Unchanged, 0, len(or.Errors))
		if s.metrics != nil {
			s.metrics.AddTombstoned(or.MarkedForDelete)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "orders")
			return s.fail(ctx, rep, fmt.Errorf("orders: %w", err))
		}
		if !or.Success {
			incomplete = append(incomplete, "orders")
		}
	}

	if len(incomplete) > 0 {
		span.SetStatus(codes.Error, "incomplete")
		return s.fail(ctx, rep, fmt.Errorf("%w: %s cut short", ErrRemoteUnavailable, strings.Join(incomplete, ", ")))
	}

	// 4. Report
	now := s.now()
	if err := s.merchants.MarkSynced(ctx, merchantID, now); err != nil {
		r.log.Warn("failed to record sync time", zap.Error(err))
	}
	rep.finish(now, nil)
	s.observeRun("success")
	s.publish(ctx, EventSyncCompleted, rep)
	r.log.Info("sync finished",
		zap.Int64("duration_ms", rep.DurationMS),
		zap.Int("products", rep.Products.Processed),
		zap.Int("orders", rep.Orders.Processed),
		zap.Int("errors", rep.TotalErrors()),
	)
	return rep, nil
}

// RunExclusive holds the merchant's sync lock for the duration of Run,
// extending it while the run outlasts ttl.
func (s *Service) RunExclusive(ctx context.Context, locker lock.Locker, ttl time.Duration, merchantID string, opts Options) (*Report, error) {
	lease, err := locker.Acquire(ctx, LockKey(merchantID), ttl)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return nil, fmt.Errorf("%w: %s", ErrSyncLocked, merchantID)
		}
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}

	keepCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		lease.KeepAlive(keepCtx, ttl, func(err error) {
			s.logger.Error("failed to extend sync lock", zap.String("merchant_id", merchantID), zap.Error(err))
		})
	}()
	defer func() {
		stop()
		<-done
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release sync lock", zap.String("merchant_id", merchantID), zap.Error(err))
		}
	}()
	return s.Run(ctx, merchantID, opts)
}

func LockKey(merchantID string) string {
	return "possync:lock:" + merchantID
}

// reject ends a run that never reached the remote system.
func (s *Service) reject(rep *Report, err error) (*Report, error) {
	rep.finish(s.now(), err)
	s.observeRun("rejected")
	s.logger.Warn("sync rejected", zap.String("merchant_id", rep.MerchantID), zap.Error(err))
	return rep, err
}

func (s *Service) fail(ctx context.Context, rep *Report, err error) (*Report, error) {
	rep.finish(s.now(), err)
	s.observeRun("failed")
	s.logger.Error("sync failed", zap.String("merchant_id", rep.MerchantID), zap.Error(err))
	s.publish(ctx, EventSyncFailed, rep)
	return rep, err
}

func (s *Service) tracePhase(ctx context.Context, name string, fn func(context.Context) (PhaseReport, error)) (PhaseReport, error) {
	ctx, span := s.tracer.Start(ctx, "possync."+name)
	defer span.End()

	pr, err := fn(ctx)
	span.SetAttributes(
		attribute.Int("records.processed", pr.Processed),
		attribute.Int("records.errors", len(pr.Errors)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.observePhase(name, time.Duration(pr.DurationMS)*time.Millisecond)
	s.recordOutcomes(name, pr.Inserted, pr.Updated, pr.Unchanged, pr.Skipped, len(pr.Errors))
	return pr, err
}

func (s *Service) publish(ctx context.Context, eventType string, rep *Report) {
	if s.events == nil {
		return
	}
	env, err := broker.NewEnvelope(eventType, rep.MerchantID, rep)
	if err == nil {
		err = s.events.Publish(context.WithoutCancel(ctx), env)
	}
	if err != nil {
		s.logger.Warn("failed to publish sync event", zap.String("event_type", eventType), zap.Error(err))
	}
}

func (s *Service) observeRun(result string) {
	if s.metrics != nil {
		s.metrics.ObserveRun(result)
	}
}

func (s *Service) observePhase(phase string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.ObservePhase(phase, d)
	}
}

func (s *Service) recordOutcomes(entity string, inserted, updated, unchanged, skipped, failed int) {
	if s.metrics == nil {
		return
	}
	s.metrics.AddRecords(entity, "inserted", inserted)
	s.metrics.AddRecords(entity, "updated", updated)
	s.metrics.AddRecords(entity, "unchanged", unchanged)
	s.metrics.AddRecords(entity, "skipped", skipped)
	s.metrics.AddRecords(entity, "failed", failed)
}
