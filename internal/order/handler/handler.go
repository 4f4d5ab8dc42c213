package handler

import (
	"errors"
	"net/http"

	"github.com/fekuna/omnipos-pos-sync/internal/auth"
	"github.com/fekuna/omnipos-pos-sync/internal/httpx"
	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/fekuna/omnipos-pos-sync/internal/order"
	"github.com/fekuna/omnipos-pos-sync/internal/order/dto"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type OrderHandler struct {
	uc     order.UseCase
	logger logger.ZapLogger
}

func NewOrderHandler(uc order.UseCase, log logger.ZapLogger) *OrderHandler {
	return &OrderHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *OrderHandler) Register(r chi.Router) {
	r.Get("/orders", h.list)
	r.Get("/orders/{id}", h.get)
}

func (h *OrderHandler) get(w http.ResponseWriter, r *http.Request) {
	o, err := h.uc.GetOrder(r.Context(), auth.GetMerchantID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to get order", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "failed to get order")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) list(w http.ResponseWriter, r *http.Request) {
	filters := &dto.OrderFilters{
		MerchantID: auth.GetMerchantID(r.Context()),
		Status:     r.URL.Query().Get("status"),
		Page:       httpx.QueryInt(r, "page", 1),
		PageSize:   httpx.QueryInt(r, "page_size", 50),
	}

	orders, total, err := h.uc.ListOrders(r.Context(), filters)
	if err != nil {
		h.logger.Error("failed to list orders", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.ListResponse[model.Order]{
		Items:    orders,
		Total:    total,
		Page:     filters.Page,
		PageSize: filters.PageSize,
	})
}
