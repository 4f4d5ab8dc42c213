// Package schedule runs merchant syncs through Temporal: a workflow per
// merchant and a dispatcher that starts one for every active merchant on an
// interval.
package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/lock"
	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/fekuna/omnipos-pos-sync/internal/possync"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"
)

const (
	WorkflowName = "possync.merchant"
	ActivityName = "possync.run"

	// Application error types that the retry policy does not retry.
	ErrTypeConfiguration = "SyncConfiguration"
	ErrTypeLocked        = "SyncLocked"
)

type SyncInput struct {
	MerchantID string `json:"merchant_id"`
	Catalog    bool   `json:"catalog"`
	Orders     bool   `json:"orders"`
	Prune      bool   `json:"prune"`
	Reason     string `json:"reason"`
}

type SyncResult struct {
	MerchantID string `json:"merchant_id"`
	Enabled    bool   `json:"enabled"`
	Processed  int    `json:"processed"`
	Tombstoned int    `json:"tombstoned"`
	Errors     int    `json:"errors"`
	DurationMS int64  `json:"duration"`
}

func resultOf(rep *possync.Report) SyncResult {
	return SyncResult{
		MerchantID: rep.MerchantID,
		Enabled:    rep.Enabled,
		Processed:  rep.Categories.Processed + rep.Products.Processed + rep.Inventory.Processed + rep.Orders.Processed,
		Tombstoned: rep.Orders.MarkedForDelete,
		Errors:     rep.TotalErrors(),
		DurationMS: rep.DurationMS,
	}
}

var activityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: 30 * time.Minute,
	RetryPolicy: &temporal.RetryPolicy{
		InitialInterval:        10 * time.Second,
		BackoffCoefficient:     2.0,
		MaximumInterval:        5 * time.Minute,
		MaximumAttempts:        4,
		NonRetryableErrorTypes: []string{ErrTypeConfiguration, ErrTypeLocked},
	},
}

// MerchantSyncWorkflow runs one sync for one merchant.
func MerchantSyncWorkflow(ctx workflow.Context, in SyncInput) (SyncResult, error) {
	log := workflow.GetLogger(ctx)
	if in.MerchantID == "" {
		return SyncResult{}, errors.New("merchant_id required")
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	log.Info("merchant sync started", "merchant_id", in.MerchantID, "reason", in.Reason)
	var res SyncResult
	if err := workflow.ExecuteActivity(ctx, ActivityName, in).Get(ctx, &res); err != nil {
		log.Error("merchant sync failed", "merchant_id", in.MerchantID, "error", err)
		return res, err
	}
	log.Info("merchant sync finished", "merchant_id", in.MerchantID, "processed", res.Processed, "errors", res.Errors)
	return res, nil
}

// Runner is satisfied by *possync.Service.
type Runner interface {
	RunExclusive(ctx context.Context, locker lock.Locker, ttl time.Duration, merchantID string, opts possync.Options) (*possync.Report, error)
}

type ActivityConfig struct {
	Enabled  bool
	LockTTL  time.Duration
	PageSize int
}

type Activities struct {
	runner Runner
	locker lock.Locker
	cfg    ActivityConfig
	logger logger.ZapLogger
}

func NewActivities(runner Runner, locker lock.Locker, cfg ActivityConfig, log logger.ZapLogger) *Activities {
	return &Activities{runner: runner, locker: locker, cfg: cfg, logger: log}
}

func (a *Activities) RunSync(ctx context.Context, in SyncInput) (SyncResult, error) {
	opts := possync.Options{
		Enabled:  a.cfg.Enabled,
		Catalog:  in.Catalog,
		Orders:   in.Orders,
		Prune:    in.Prune,
		PageSize: a.cfg.PageSize,
	}
	rep, err := a.runner.RunExclusive(ctx, a.locker, a.cfg.LockTTL, in.MerchantID, opts)
	if err != nil {
		a.logger.Warn("sync activity failed",
			zap.String("merchant_id", in.MerchantID),
			zap.Int32("attempt", activity.GetInfo(ctx).Attempt),
			zap.Error(err),
		)
		switch {
		case errors.Is(err, possync.ErrSyncLocked):
			return SyncResult{MerchantID: in.MerchantID}, temporal.NewApplicationError(err.Error(), ErrTypeLocked)
		case possync.IsConfiguration(err):
			return SyncResult{MerchantID: in.MerchantID}, temporal.NewApplicationError(err.Error(), ErrTypeConfiguration)
		}
		return SyncResult{MerchantID: in.MerchantID}, err
	}
	return resultOf(rep), nil
}

func Register(w worker.Worker, a *Activities) {
	w.RegisterWorkflowWithOptions(MerchantSyncWorkflow, workflow.RegisterOptions{Name: WorkflowName})
	w.RegisterActivityWithOptions(a.RunSync, activity.RegisterOptions{Name: ActivityName})
}
