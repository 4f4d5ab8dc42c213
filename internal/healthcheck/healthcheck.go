// Package healthcheck serves the gRPC health protocol, reporting NOT_SERVING
// while the database is unreachable.
package healthcheck

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const ServiceName = "omnipos.possync"

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Monitor struct {
	srv      *health.Server
	db       Pinger
	interval time.Duration
	logger   logger.ZapLogger
	serving  bool
}

func NewMonitor(db Pinger, interval time.Duration, log logger.ZapLogger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	srv := health.NewServer()
	srv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	srv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Monitor{srv: srv, db: db, interval: interval, logger: log}
}

// Server is registered with healthpb.RegisterHealthServer.
func (m *Monitor) Server() *health.Server {
	return m.srv
}

// Probe pings the database once and updates the status.
func (m *Monitor) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	err := m.db.PingContext(ctx)
	serving := err == nil
	if serving != m.serving {
		if serving {
			m.logger.Info("database reachable, serving")
		} else {
			m.logger.Warn("database unreachable, not serving", zap.Error(err))
		}
	}
	m.serving = serving

	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	m.srv.SetServingStatus("", status)
	m.srv.SetServingStatus(ServiceName, status)
	return serving
}

// Run probes until ctx ends, then marks the service as shutting down.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		m.Probe(ctx)
		select {
		case <-ctx.Done():
			m.srv.Shutdown()
			return
		case <-ticker.C:
		}
	}
}
