package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/auth"
	"github.com/fekuna/omnipos-pos-sync/internal/httpx"
	"github.com/fekuna/omnipos-pos-sync/internal/lock"
	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/fekuna/omnipos-pos-sync/internal/possync"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Runner is satisfied by *possync.Service.
type Runner interface {
	RunExclusive(ctx context.Context, locker lock.Locker, ttl time.Duration, merchantID string, opts possync.Options) (*possync.Report, error)
}

type Config struct {
	Enabled  bool
	LockTTL  time.Duration
	PageSize int
}

type SyncHandler struct {
	runner Runner
	locker lock.Locker
	cfg    Config
	logger logger.ZapLogger
}

func NewSyncHandler(runner Runner, locker lock.Locker, cfg Config, log logger.ZapLogger) *SyncHandler {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Minute
	}
	return &SyncHandler{
		runner: runner,
		locker: locker,
		cfg:    cfg,
		logger: log,
	}
}

func (h *SyncHandler) Register(r chi.Router) {
	r.Route("/sync", func(r chi.Router) {
		r.Post("/", h.trigger(true, true))
		r.Post("/catalog", h.trigger(true, false))
		r.Post("/orders", h.trigger(false, true))
	})
}

type errorResponse struct {
	Error  string          `json:"error"`
	Report *possync.Report `json:"report,omitempty"`
}

func (h *SyncHandler) trigger(catalog, orders bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := possync.Options{
			Enabled:  h.cfg.Enabled,
			Catalog:  catalog,
			Orders:   orders,
			PageSize: httpx.QueryInt(r, "page_size", h.cfg.PageSize),
		}
		if prune := httpx.QueryBool(r, "prune"); prune != nil {
			opts.Prune = *prune
		}
		if v := r.URL.Query().Get("since"); v != "" {
			since, err := time.Parse(time.RFC3339, v)
			if err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "since must be an RFC3339 timestamp")
				return
			}
			opts.Since = &since
		}

		merchantID := auth.GetMerchantID(r.Context())
		// the run outlives a client that hangs up
		ctx := context.WithoutCancel(r.Context())
		rep, err := h.runner.RunExclusive(ctx, h.locker, h.cfg.LockTTL, merchantID, opts)
		if err != nil {
			code := statusFor(err)
			if code >= http.StatusInternalServerError {
				h.logger.Error("sync failed", zap.String("merchant_id", merchantID), zap.Error(err))
			}
			httpx.WriteJSON(w, code, errorResponse{Error: err.Error(), Report: rep})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, rep)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, possync.ErrSyncLocked):
		return http.StatusConflict
	case errors.Is(err, possync.ErrMerchantNotFound), errors.Is(err, possync.ErrTenantNotFound):
		return http.StatusNotFound
	case errors.Is(err, possync.ErrCredentialMissing):
		return http.StatusPreconditionFailed
	case errors.Is(err, possync.ErrCredentialExpired):
		return http.StatusUnauthorized
	case errors.Is(err, possync.ErrRemoteUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
