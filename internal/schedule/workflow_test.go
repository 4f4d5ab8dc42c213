package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/lock"
	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/fekuna/omnipos-pos-sync/internal/possync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"
)

// scriptedRunner returns errs in order, then succeeds.
type scriptedRunner struct {
	mu    sync.Mutex
	errs  []error
	calls int
	opts  possync.Options
}

func (r *scriptedRunner) RunExclusive(_ context.Context, _ lock.Locker, _ time.Duration, merchantID string, opts possync.Options) (*possync.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.opts = opts
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return &possync.Report{MerchantID: merchantID}, err
	}
	rep := &possync.Report{MerchantID: merchantID, Success: true, Enabled: opts.Enabled}
	rep.Products.Processed = 3
	rep.Orders.Processed = 2
	rep.Orders.MarkedForDelete = 1
	return rep, nil
}

func newEnv(t *testing.T, runner *scriptedRunner) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	acts := NewActivities(runner, lock.NewLocalLocker(), ActivityConfig{Enabled: true, LockTTL: time.Minute, PageSize: 50}, logger.NewNop())
	env.RegisterWorkflowWithOptions(MerchantSyncWorkflow, workflow.RegisterOptions{Name: WorkflowName})
	env.RegisterActivityWithOptions(acts.RunSync, activity.RegisterOptions{Name: ActivityName})
	return env
}

func TestMerchantSyncWorkflowSucceeds(t *testing.T) {
	runner := &scriptedRunner{}
	env := newEnv(t, runner)

	env.ExecuteWorkflow(MerchantSyncWorkflow, SyncInput{MerchantID: "m-1", Catalog: true, Orders: true, Prune: true})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var res SyncResult
	require.NoError(t, env.GetWorkflowResult(&res))
	assert.Equal(t, "m-1", res.MerchantID)
	assert.Equal(t, 5, res.Processed)
	assert.Equal(t, 1, res.Tombstoned)
	assert.True(t, res.Enabled)

	assert.True(t, runner.opts.Prune)
	assert.Equal(t, 50, runner.opts.PageSize)
}

func TestMerchantSyncWorkflowRetriesTransientFailures(t *testing.T) {
	runner := &scriptedRunner{errs: []error{possync.ErrRemoteUnavailable}}
	env := newEnv(t, runner)

	env.ExecuteWorkflow(MerchantSyncWorkflow, SyncInput{MerchantID: "m-1", Catalog: true})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	assert.Equal(t, 2, runner.calls)
}

func TestMerchantSyncWorkflowDoesNotRetryConfiguration(t *testing.T) {
	tests := []struct {
		err      error
		wantType string
	}{
		{possync.ErrCredentialExpired, ErrTypeConfiguration},
		{possync.ErrTenantNotFound, ErrTypeConfiguration},
		{possync.ErrSyncLocked, ErrTypeLocked},
	}
	for _, tt := range tests {
		t.Run(tt.wantType+" "+tt.err.Error(), func(t *testing.T) {
			runner := &scriptedRunner{errs: []error{tt.err, tt.err, tt.err}}
			env := newEnv(t, runner)

			env.ExecuteWorkflow(MerchantSyncWorkflow, SyncInput{MerchantID: "m-1", Orders: true})
			require.True(t, env.IsWorkflowCompleted())
			err := env.GetWorkflowError()
			require.Error(t, err)

			var appErr *temporal.ApplicationError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantType, appErr.Type())
			assert.Equal(t, 1, runner.calls)
		})
	}
}

func TestMerchantSyncWorkflowRequiresMerchant(t *testing.T) {
	runner := &scriptedRunner{}
	env := newEnv(t, runner)

	env.ExecuteWorkflow(MerchantSyncWorkflow, SyncInput{})
	require.True(t, env.IsWorkflowCompleted())
	assert.Error(t, env.GetWorkflowError())
	assert.Zero(t, runner.calls)
}
