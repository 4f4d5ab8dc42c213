package handler

import (
	"errors"
	"net/http"

	"github.com/fekuna/omnipos-pos-sync/internal/httpx"
	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/fekuna/omnipos-pos-sync/internal/merchant"
	"github.com/fekuna/omnipos-pos-sync/internal/merchant/dto"
	"github.com/fekuna/omnipos-pos-sync/internal/remote"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type MerchantHandler struct {
	uc     merchant.UseCase
	logger logger.ZapLogger
}

func NewMerchantHandler(uc merchant.UseCase, log logger.ZapLogger) *MerchantHandler {
	return &MerchantHandler{
		uc:     uc,
		logger: log,
	}
}

// Register mounts the provisioning routes. They are not merchant-scoped.
func (h *MerchantHandler) Register(r chi.Router) {
	r.Post("/merchants", h.provision)
	r.Get("/merchants/{id}", h.get)
	r.Put("/merchants/{id}/credential", h.updateCredential)
}

func (h *MerchantHandler) provision(w http.ResponseWriter, r *http.Request) {
	var input dto.ProvisionInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	m, err := h.uc.Provision(r.Context(), &input)
	if err != nil {
		h.writeUseCaseError(w, "failed to provision merchant", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, m)
}

func (h *MerchantHandler) get(w http.ResponseWriter, r *http.Request) {
	m, err := h.uc.GetMerchant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeUseCaseError(w, "failed to get merchant", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, m)
}

func (h *MerchantHandler) updateCredential(w http.ResponseWriter, r *http.Request) {
	var input dto.UpdateCredentialInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	input.MerchantID = chi.URLParam(r, "id")

	if err := h.uc.UpdateCredential(r.Context(), &input); err != nil {
		h.writeUseCaseError(w, "failed to update credential", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MerchantHandler) writeUseCaseError(w http.ResponseWriter, msg string, err error) {
	var se *remote.StatusError
	switch {
	case errors.Is(err, merchant.ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, merchant.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &se) && se.Unauthorized():
		httpx.WriteError(w, http.StatusUnauthorized, "remote rejected the access token")
	case errors.As(err, &se) && se.StatusCode == http.StatusNotFound:
		httpx.WriteError(w, http.StatusNotFound, "merchant unknown to the remote system")
	case errors.As(err, &se):
		httpx.WriteError(w, http.StatusBadGateway, se.Error())
	default:
		h.logger.Error(msg, zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, msg)
	}
}
