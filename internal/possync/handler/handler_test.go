package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/auth"
	"github.com/fekuna/omnipos-pos-sync/internal/lock"
	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/fekuna/omnipos-pos-sync/internal/possync"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	err      error
	gotID    string
	gotOpts  possync.Options
	gotTTL   time.Duration
	ctxErr   error
	runCount int
}

func (s *stubRunner) RunExclusive(ctx context.Context, _ lock.Locker, ttl time.Duration, merchantID string, opts possync.Options) (*possync.Report, error) {
	s.runCount++
	s.gotID, s.gotOpts, s.gotTTL = merchantID, opts, ttl
	s.ctxErr = ctx.Err()
	rep := &possync.Report{MerchantID: merchantID, Enabled: opts.Enabled, Success: s.err == nil}
	if s.err != nil {
		rep.Error = s.err.Error()
	}
	return rep, s.err
}

func newRouter(runner Runner, cfg Config) *chi.Mux {
	r := chi.NewRouter()
	r.Use(auth.RequireMerchant)
	NewSyncHandler(runner, lock.NewLocalLocker(), cfg, logger.NewNop()).Register(r)
	return r
}

func post(r http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set(auth.MerchantHeader, "m-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRunOutlivesClientDisconnect(t *testing.T) {
	runner := &stubRunner{}
	r := newRouter(runner, Config{Enabled: true, LockTTL: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/sync", nil).WithContext(ctx)
	req.Header.Set(auth.MerchantHeader, "m-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 1, runner.runCount)
	assert.NoError(t, runner.ctxErr)
}

func TestTriggerSelectsPhases(t *testing.T) {
	runner := &stubRunner{}
	r := newRouter(runner, Config{Enabled: true, LockTTL: time.Minute, PageSize: 50})

	rec := post(r, "/sync")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "m-1", runner.gotID)
	assert.True(t, runner.gotOpts.Catalog)
	assert.True(t, runner.gotOpts.Orders)
	assert.False(t, runner.gotOpts.Prune)
	assert.Equal(t, 50, runner.gotOpts.PageSize)
	assert.Equal(t, time.Minute, runner.gotTTL)

	var rep possync.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.True(t, rep.Success)

	require.Equal(t, http.StatusOK, post(r, "/sync/catalog").Code)
	assert.True(t, runner.gotOpts.Catalog)
	assert.False(t, runner.gotOpts.Orders)

	require.Equal(t, http.StatusOK, post(r, "/sync/orders?prune=true&since=2024-05-01T00:00:00Z&page_size=10").Code)
	assert.False(t, runner.gotOpts.Catalog)
	assert.True(t, runner.gotOpts.Orders)
	assert.True(t, runner.gotOpts.Prune)
	assert.Equal(t, 10, runner.gotOpts.PageSize)
	require.NotNil(t, runner.gotOpts.Since)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), runner.gotOpts.Since.UTC())
}

func TestTriggerPassesKillSwitch(t *testing.T) {
	runner := &stubRunner{}
	r := newRouter(runner, Config{Enabled: false})

	rec := post(r, "/sync")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, runner.gotOpts.Enabled)
}

func TestTriggerRejectsBadSince(t *testing.T) {
	runner := &stubRunner{}
	r := newRouter(runner, Config{Enabled: true})

	rec := post(r, "/sync/orders?since=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, runner.runCount)
}

func TestTriggerErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{possync.ErrSyncLocked, http.StatusConflict},
		{possync.ErrMerchantNotFound, http.StatusNotFound},
		{possync.ErrTenantNotFound, http.StatusNotFound},
		{possync.ErrCredentialMissing, http.StatusPreconditionFailed},
		{possync.ErrCredentialExpired, http.StatusUnauthorized},
		{possync.ErrRemoteUnavailable, http.StatusBadGateway},
		{errors.New("database is gone"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.want, " ", tt.err), func(t *testing.T) {
			runner := &stubRunner{err: fmt.Errorf("products: %w", tt.err)}
			rec := post(newRouter(runner, Config{Enabled: true}), "/sync")
			assert.Equal(t, tt.want, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body.Error, tt.err.Error())
			require.NotNil(t, body.Report)
			assert.False(t, body.Report.Success)
		})
	}
}

func TestTriggerRequiresMerchant(t *testing.T) {
	r := newRouter(&stubRunner{}, Config{Enabled: true})
	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
