package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg           *prometheus.Registry
	SyncRuns      *prometheus.CounterVec
	SyncRecords   *prometheus.CounterVec
	PhaseDuration *prometheus.HistogramVec
	Tombstoned    prometheus.Counter
	RemoteRetries prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "possync_runs_total",
		Help: "Sync runs by result (success, failed, rejected, disabled).",
	}, []string{"result"})
	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "possync_records_total",
		Help: "Synced records by entity and outcome.",
	}, []string{"entity", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "possync_phase_duration_seconds",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 180, 600},
	}, []string{"phase"})
	tombstoned := prometheus.NewCounter(prometheus.CounterOpts{Name: "possync_orders_tombstoned_total"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{Name: "possync_remote_retries_total"})

	r.MustRegister(runs, records, duration, tombstoned, retries)
	return &Registry{
		reg:           r,
		SyncRuns:      runs,
		SyncRecords:   records,
		PhaseDuration: duration,
		Tombstoned:    tombstoned,
		RemoteRetries: retries,
	}
}

func (r *Registry) ObserveRun(result string) {
	r.SyncRuns.WithLabelValues(result).Inc()
}

func (r *Registry) AddRecords(entity, outcome string, n int) {
	if n <= 0 {
		return
	}
	r.SyncRecords.WithLabelValues(entity, outcome).Add(float64(n))
}

func (r *Registry) ObservePhase(phase string, d time.Duration) {
	r.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (r *Registry) AddTombstoned(n int) {
	if n > 0 {
		r.Tombstoned.Add(float64(n))
	}
}

func (r *Registry) IncRetry() { r.RemoteRetries.Inc() }

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
