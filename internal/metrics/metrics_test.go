package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordsAccumulatePerOutcome(t *testing.T) {
	r := NewRegistry()

	r.AddRecords("product", "inserted", 3)
	r.AddRecords("product", "inserted", 2)
	r.AddRecords("product", "updated", 0)
	r.AddTombstoned(1)
	r.ObserveRun("success")

	assert.Equal(t, 5.0, testutil.ToFloat64(r.SyncRecords.WithLabelValues("product", "inserted")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.SyncRecords.WithLabelValues("product", "updated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Tombstoned))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.SyncRuns.WithLabelValues("success")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	r := NewRegistry()
	r.ObservePhase("orders", 2*time.Second)
	r.IncRetry()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "possync_phase_duration_seconds_count{phase=\"orders\"} 1"))
	assert.True(t, strings.Contains(body, "possync_remote_retries_total 1"))
}
