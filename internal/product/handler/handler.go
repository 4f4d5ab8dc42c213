package handler

import (
	"errors"
	"net/http"

	"github.com/fekuna/omnipos-pos-sync/internal/auth"
	"github.com/fekuna/omnipos-pos-sync/internal/httpx"
	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/fekuna/omnipos-pos-sync/internal/product"
	"github.com/fekuna/omnipos-pos-sync/internal/product/dto"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ProductHandler struct {
	uc     product.UseCase
	logger logger.ZapLogger
}

func NewProductHandler(uc product.UseCase, log logger.ZapLogger) *ProductHandler {
	return &ProductHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *ProductHandler) Register(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func (h *ProductHandler) create(w http.ResponseWriter, r *http.Request) {
	var input dto.CreateProductInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	input.MerchantID = auth.GetMerchantID(r.Context())

	p, err := h.uc.CreateProduct(r.Context(), &input)
	if err != nil {
		h.writeError(w, "failed to create product", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.uc.GetProduct(r.Context(), auth.GetMerchantID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "failed to get product", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := &dto.ProductFilters{
		MerchantID:  auth.GetMerchantID(r.Context()),
		CategoryID:  q.Get("category_id"),
		IsActive:    httpx.QueryBool(r, "is_active"),
		SearchQuery: q.Get("q"),
		SortBy:      q.Get("sort_by"),
		SortOrder:   q.Get("sort_order"),
		Page:        httpx.QueryInt(r, "page", 1),
		PageSize:    httpx.QueryInt(r, "page_size", 20),
	}

	products, total, err := h.uc.ListProducts(r.Context(), filters)
	if err != nil {
		h.writeError(w, "failed to list products", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.ListResponse[model.Product]{
		Items:    products,
		Total:    total,
		Page:     filters.Page,
		PageSize: filters.PageSize,
	})
}

func (h *ProductHandler) update(w http.ResponseWriter, r *http.Request) {
	var input dto.UpdateProductInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	input.ID = chi.URLParam(r, "id")
	input.MerchantID = auth.GetMerchantID(r.Context())

	p, err := h.uc.UpdateProduct(r.Context(), &input)
	if err != nil {
		h.writeError(w, "failed to update product", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.DeleteProduct(r.Context(), auth.GetMerchantID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, "failed to delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) writeError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, product.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, product.ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, product.ErrDuplicateSKU), errors.Is(err, product.ErrDuplicateUPC):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(msg, zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, msg)
	}
}
