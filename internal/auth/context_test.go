package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireMerchant(t *testing.T) {
	var seen string
	h := RequireMerchant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetMerchantID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, seen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(MerchantHeader, " m-1 ")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "m-1", seen)
}
