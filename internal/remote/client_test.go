package remote

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchPageRetriesTransientStatuses(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte(`{"elements":[{"id":"a"}]}`))
		}
	}))

	var retries int
	c.OnRetry(func() { retries++ })

	page, err := c.FetchPage(context.Background(), "tok", "/x", PageRequest{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Records, 1)
	assert.False(t, page.MoreAvailable)
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, 2, retries)
}

func TestFetchPageGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.FetchPage(context.Background(), "tok", "/x", PageRequest{Limit: 10})

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.EqualValues(t, 4, calls.Load())
}

func TestFetchPageDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"expired token"}`))
	}))

	_, err := c.FetchPage(context.Background(), "tok", "/x", PageRequest{Limit: 10})

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Unauthorized())
	assert.Contains(t, se.Error(), "expired token")
	assert.EqualValues(t, 1, calls.Load())
}

func TestFetchPageRejectsNonPositiveLimit(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))
	_, err := c.FetchPage(context.Background(), "tok", "/x", PageRequest{Limit: 0})
	assert.Error(t, err)
}

func TestFetchPageStopsOnCancelledContext(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchPage(ctx, "tok", "/x", PageRequest{Limit: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetMerchant(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/merchants/M1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"M1","name":"Corner Cafe"}`))
	}))

	m, err := c.GetMerchant(context.Background(), "tok", "M1")
	require.NoError(t, err)
	assert.Equal(t, "Corner Cafe", m.Name)
}

func TestStatusErrorTemporary(t *testing.T) {
	for code, want := range map[int]bool{400: false, 401: false, 404: false, 408: true, 429: true, 500: true, 503: true} {
		assert.Equal(t, want, (&StatusError{StatusCode: code}).Temporary(), code)
	}
}
