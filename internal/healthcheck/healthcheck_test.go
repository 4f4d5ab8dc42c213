package healthcheck

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type flakyDB struct{ err error }

func (f *flakyDB) PingContext(context.Context) error { return f.err }

func status(t *testing.T, m *Monitor, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := m.Server().Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestProbeFollowsDatabase(t *testing.T) {
	db := &flakyDB{err: errors.New("connection refused")}
	m := NewMonitor(db, time.Second, logger.NewNop())

	assert.False(t, m.Probe(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, m, ServiceName))

	db.err = nil
	assert.True(t, m.Probe(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, m, ServiceName))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, m, ""))
}

func TestRunShutsDownWithContext(t *testing.T) {
	m := NewMonitor(&flakyDB{}, time.Hour, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m.Run(ctx)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, m, ServiceName))
}
