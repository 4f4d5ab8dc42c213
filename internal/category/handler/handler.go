package handler

import (
	"errors"
	"net/http"

	"github.com/fekuna/omnipos-pos-sync/internal/auth"
	"github.com/fekuna/omnipos-pos-sync/internal/category"
	"github.com/fekuna/omnipos-pos-sync/internal/category/dto"
	"github.com/fekuna/omnipos-pos-sync/internal/category/usecase"
	"github.com/fekuna/omnipos-pos-sync/internal/httpx"
	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CategoryHandler struct {
	uc     category.UseCase
	logger logger.ZapLogger
}

func NewCategoryHandler(uc category.UseCase, log logger.ZapLogger) *CategoryHandler {
	return &CategoryHandler{
		uc:     uc,
		logger: log,
	}
}

// Register mounts the routes on a merchant-scoped router.
func (h *CategoryHandler) Register(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func (h *CategoryHandler) create(w http.ResponseWriter, r *http.Request) {
	var input dto.CreateCategoryInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	input.MerchantID = auth.GetMerchantID(r.Context())

	cat, err := h.uc.CreateCategory(r.Context(), &input)
	if err != nil {
		h.writeError(w, "failed to create category", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, cat)
}

func (h *CategoryHandler) get(w http.ResponseWriter, r *http.Request) {
	cat, err := h.uc.GetCategory(r.Context(), auth.GetMerchantID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "failed to get category", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cat)
}

func (h *CategoryHandler) list(w http.ResponseWriter, r *http.Request) {
	filters := &dto.CategoryFilters{
		MerchantID: auth.GetMerchantID(r.Context()),
		IsActive:   httpx.QueryBool(r, "is_active"),
		Synced:     httpx.QueryBool(r, "synced"),
		Page:       httpx.QueryInt(r, "page", 1),
		PageSize:   httpx.QueryInt(r, "page_size", 50),
	}

	categories, total, err := h.uc.ListCategories(r.Context(), filters)
	if err != nil {
		h.writeError(w, "failed to list categories", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.ListResponse[model.Category]{
		Items:    categories,
		Total:    total,
		Page:     filters.Page,
		PageSize: filters.PageSize,
	})
}

func (h *CategoryHandler) update(w http.ResponseWriter, r *http.Request) {
	var input dto.UpdateCategoryInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	input.ID = chi.URLParam(r, "id")
	input.MerchantID = auth.GetMerchantID(r.Context())

	cat, err := h.uc.UpdateCategory(r.Context(), &input)
	if err != nil {
		h.writeError(w, "failed to update category", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cat)
}

func (h *CategoryHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.DeleteCategory(r.Context(), auth.GetMerchantID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, "failed to delete category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CategoryHandler) writeError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, category.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, usecase.ErrNameRequired):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(msg, zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, msg)
	}
}
