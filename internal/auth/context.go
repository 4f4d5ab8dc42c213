package auth

import (
	"context"
	"net/http"
	"strings"
)

const MerchantHeader = "X-Merchant-ID"

type ctxKey struct{}

func WithMerchantID(ctx context.Context, merchantID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, merchantID)
}

// GetMerchantID returns the merchant placed on the context by RequireMerchant.
func GetMerchantID(ctx context.Context) string {
	if val, ok := ctx.Value(ctxKey{}).(string); ok {
		return val
	}
	return ""
}

// RequireMerchant scopes the request to the merchant named in the
// X-Merchant-ID header and rejects requests without one.
func RequireMerchant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		merchantID := strings.TrimSpace(r.Header.Get(MerchantHeader))
		if merchantID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"missing merchant context"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithMerchantID(r.Context(), merchantID)))
	})
}
