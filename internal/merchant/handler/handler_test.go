package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/fekuna/omnipos-pos-sync/internal/merchant"
	"github.com/fekuna/omnipos-pos-sync/internal/merchant/dto"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/fekuna/omnipos-pos-sync/internal/remote"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

type stubUseCase struct {
	merchant.UseCase
	provisionErr error
}

func (s *stubUseCase) Provision(_ context.Context, in *dto.ProvisionInput) (*model.Merchant, error) {
	if s.provisionErr != nil {
		return nil, s.provisionErr
	}
	return &model.Merchant{BaseModel: model.BaseModel{ID: "m-1"}, ExternalID: &in.ExternalID, Name: "Cafe"}, nil
}

func serve(h *MerchantHandler, method, path, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestProvisionStatusMapping(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"created":        {nil, http.StatusCreated},
		"invalid":        {merchant.ErrInvalidInput, http.StatusBadRequest},
		"bad token":      {&remote.StatusError{StatusCode: http.StatusUnauthorized}, http.StatusUnauthorized},
		"unknown remote": {&remote.StatusError{StatusCode: http.StatusNotFound}, http.StatusNotFound},
		"remote down":    {&remote.StatusError{StatusCode: http.StatusServiceUnavailable}, http.StatusBadGateway},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := NewMerchantHandler(&stubUseCase{provisionErr: tc.err}, logger.NewNop())
			rec := serve(h, http.MethodPost, "/merchants", `{"external_id":"M1","access_token":"t"}`)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestProvisionRejectsUnknownFields(t *testing.T) {
	h := NewMerchantHandler(&stubUseCase{}, logger.NewNop())
	rec := serve(h, http.MethodPost, "/merchants", `{"external":"M1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProvisionHidesAccessToken(t *testing.T) {
	h := NewMerchantHandler(&stubUseCase{}, logger.NewNop())
	rec := serve(h, http.MethodPost, "/merchants", `{"external_id":"M1","access_token":"secret"}`)
	assert.NotContains(t, rec.Body.String(), "secret")
}
