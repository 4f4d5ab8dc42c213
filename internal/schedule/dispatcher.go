package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// WorkflowStarter is the part of client.Client the dispatcher uses.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow any, args ...any) (client.WorkflowRun, error)
}

type MerchantLister interface {
	ListActive(ctx context.Context) ([]model.Merchant, error)
}

type DispatchConfig struct {
	TaskQueue string
	Interval  time.Duration
	Workers   int
	Prune     bool
}

type DispatchStats struct {
	Started        int
	AlreadyRunning int
	Skipped        int
	Failed         int
}

type Dispatcher struct {
	starter   WorkflowStarter
	merchants MerchantLister
	cfg       DispatchConfig
	logger    logger.ZapLogger
}

func NewDispatcher(starter WorkflowStarter, merchants MerchantLister, cfg DispatchConfig, log logger.ZapLogger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	return &Dispatcher{starter: starter, merchants: merchants, cfg: cfg, logger: log}
}

// WorkflowID is stable per merchant so a slow sync is never started twice.
func WorkflowID(merchantID string) string {
	return "possync-" + merchantID
}

// Run dispatches immediately and then on every interval until ctx ends.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := d.DispatchOnce(ctx); err != nil && ctx.Err() == nil {
			d.logger.Error("dispatch failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// DispatchOnce starts a sync workflow for every active merchant that can be
// synced. A failure to start one merchant does not affect the others.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (DispatchStats, error) {
	merchants, err := d.merchants.ListActive(ctx)
	if err != nil {
		return DispatchStats{}, err
	}

	var started, running, skipped, failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Workers)

	for _, m := range merchants {
		if m.ExternalID == nil || !m.HasCredential() {
			skipped.Add(1)
			continue
		}
		merchantID := m.ID
		g.Go(func() error {
			opts := client.StartWorkflowOptions{
				ID:                                       WorkflowID(merchantID),
				TaskQueue:                                d.cfg.TaskQueue,
				WorkflowIDReusePolicy:                    enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
				WorkflowExecutionErrorWhenAlreadyStarted: true,
			}
			in := SyncInput{MerchantID: merchantID, Catalog: true, Orders: true, Prune: d.cfg.Prune, Reason: "auto"}

			_, err := d.starter.ExecuteWorkflow(gctx, opts, WorkflowName, in)
			var already *serviceerror.WorkflowExecutionAlreadyStarted
			switch {
			case err == nil:
				started.Add(1)
			case errors.As(err, &already):
				running.Add(1)
			default:
				failed.Add(1)
				d.logger.Warn("failed to start merchant sync", zap.String("merchant_id", merchantID), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	stats := DispatchStats{
		Started:        int(started.Load()),
		AlreadyRunning: int(running.Load()),
		Skipped:        int(skipped.Load()),
		Failed:         int(failed.Load()),
	}
	d.logger.Info("sync dispatched",
		zap.Int("started", stats.Started),
		zap.Int("already_running", stats.AlreadyRunning),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)
	return stats, ctx.Err()
}
