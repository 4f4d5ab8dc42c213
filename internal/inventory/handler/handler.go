package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/auth"
	"github.com/fekuna/omnipos-pos-sync/internal/httpx"
	"github.com/fekuna/omnipos-pos-sync/internal/inventory"
	"github.com/fekuna/omnipos-pos-sync/internal/inventory/dto"
	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UserHeader identifies the operator behind a manual adjustment.
const UserHeader = "X-User-ID"

type InventoryHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
}

func NewInventoryHandler(uc inventory.UseCase, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *InventoryHandler) Register(r chi.Router) {
	r.Route("/inventory", func(r chi.Router) {
		r.Get("/low-stock", h.listLowStock)
		r.Get("/movements", h.listMovements)
		r.Get("/{productID}", h.get)
		r.Post("/{productID}/adjust", h.adjust)
	})
}

func (h *InventoryHandler) get(w http.ResponseWriter, r *http.Request) {
	view, err := h.uc.GetProductInventory(r.Context(), auth.GetMerchantID(r.Context()), chi.URLParam(r, "productID"))
	if err != nil {
		h.writeError(w, "failed to get inventory", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

func (h *InventoryHandler) listLowStock(w http.ResponseWriter, r *http.Request) {
	page := httpx.QueryInt(r, "page", 1)
	pageSize := httpx.QueryInt(r, "page_size", 50)

	views, total, err := h.uc.ListLowStock(r.Context(), auth.GetMerchantID(r.Context()), page, pageSize)
	if err != nil {
		h.writeError(w, "failed to list low stock", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.ListResponse[dto.LevelView]{
		Items:    views,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (h *InventoryHandler) adjust(w http.ResponseWriter, r *http.Request) {
	var input dto.AdjustInventoryInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if input.QuantityChange == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "quantity_change must not be zero")
		return
	}
	input.MerchantID = auth.GetMerchantID(r.Context())
	input.ProductID = chi.URLParam(r, "productID")
	input.UserID = r.Header.Get(UserHeader)

	view, err := h.uc.AdjustInventory(r.Context(), &input)
	if err != nil {
		h.writeError(w, "failed to adjust inventory", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

func (h *InventoryHandler) listMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := &dto.MovementFilters{
		MerchantID:   auth.GetMerchantID(r.Context()),
		ProductID:    q.Get("product_id"),
		MovementType: q.Get("movement_type"),
		Page:         httpx.QueryInt(r, "page", 1),
		PageSize:     httpx.QueryInt(r, "page_size", 50),
	}
	for key, dst := range map[string]**time.Time{"start_date": &filters.StartDate, "end_date": &filters.EndDate} {
		if v := q.Get(key); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				httpx.WriteError(w, http.StatusBadRequest, key+" must be RFC3339")
				return
			}
			*dst = &t
		}
	}

	movements, total, err := h.uc.ListMovements(r.Context(), filters)
	if err != nil {
		h.writeError(w, "failed to list movements", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.ListResponse[model.InventoryMovement]{
		Items:    movements,
		Total:    total,
		Page:     filters.Page,
		PageSize: filters.PageSize,
	})
}

func (h *InventoryHandler) writeError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, inventory.ErrProductNotFound):
		httpx.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, inventory.ErrInsufficientStock):
		httpx.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, inventory.ErrBusy):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(msg, zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, msg)
	}
}
