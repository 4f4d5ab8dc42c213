package remote

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/logger"
)

// collectionServer serves total records in the requested envelope shape.
type collectionServer struct {
	total    int
	envelope string
	calls    atomic.Int32
	lastAuth atomic.Value
}

func (s *collectionServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.calls.Add(1)
	s.lastAuth.Store(r.Header.Get("Authorization"))

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	records := []map[string]string{}
	for i := offset; i < offset+limit && i < s.total; i++ {
		records = append(records, map[string]string{"id": fmt.Sprintf("R%03d", i)})
	}

	var body any = records
	switch s.envelope {
	case "elements":
		body = map[string]any{"elements": records}
	case "items":
		body = map[string]any{"items": records}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:     srv.URL,
		Timeout:     5 * time.Second,
		MaxAttempts: 4,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}, logger.NewNop())
}
