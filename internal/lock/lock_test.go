package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fekuna/omnipos-pos-sync/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lockers(t *testing.T) map[string]Locker {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Locker{
		"redis": NewRedisLocker(&cache.RedisClient{Client: client}),
		"local": NewLocalLocker(),
	}
}

func TestLockerExclusion(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			lease, err := l.Acquire(ctx, "possync:lock:m1", time.Minute)
			require.NoError(t, err)

			_, err = l.Acquire(ctx, "possync:lock:m1", time.Minute)
			assert.ErrorIs(t, err, ErrLocked)

			other, err := l.Acquire(ctx, "possync:lock:m2", time.Minute)
			require.NoError(t, err)
			require.NoError(t, other.Release(ctx))

			require.NoError(t, lease.Release(ctx))
			again, err := l.Acquire(ctx, "possync:lock:m1", time.Minute)
			require.NoError(t, err)
			assert.NoError(t, again.Release(ctx))
		})
	}
}

func TestLocalLockerExpiry(t *testing.T) {
	l := NewLocalLocker()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.clock = func() time.Time { return now }
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	// the expired holder must not free the new holder's lock
	require.NoError(t, stale.Release(ctx))
	_, err = l.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrLocked)
	require.NoError(t, fresh.Release(ctx))
}

func TestLocalLeaseExtend(t *testing.T) {
	l := NewLocalLocker()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.clock = func() time.Time { return now }
	ctx := context.Background()

	lease, err := l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)

	now = now.Add(800 * time.Millisecond)
	require.NoError(t, lease.Extend(ctx, time.Second))

	// past the original expiry, still held
	now = now.Add(800 * time.Millisecond)
	_, err = l.Acquire(ctx, "k", time.Second)
	assert.ErrorIs(t, err, ErrLocked)

	now = now.Add(2 * time.Second)
	assert.ErrorIs(t, lease.Extend(ctx, time.Second), ErrLost)
}

func TestRedisLeaseExtend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	l := NewRedisLocker(&cache.RedisClient{Client: client})
	ctx := context.Background()

	lease, err := l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.NoError(t, lease.Extend(ctx, time.Minute))

	mr.FastForward(30 * time.Second)
	_, err = l.Acquire(ctx, "k", time.Second)
	assert.ErrorIs(t, err, ErrLocked)

	mr.FastForward(time.Minute)
	assert.ErrorIs(t, lease.Extend(ctx, time.Minute), ErrLost)
}

func TestKeepAliveOutlivesTTL(t *testing.T) {
	l := NewLocalLocker()
	ctx, cancel := context.WithCancel(context.Background())

	lease, err := l.Acquire(ctx, "k", 60*time.Millisecond)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		lease.KeepAlive(ctx, 60*time.Millisecond, func(err error) { t.Errorf("keep alive: %v", err) })
	}()

	time.Sleep(200 * time.Millisecond)
	_, err = l.Acquire(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ErrLocked)

	cancel()
	<-done
	require.NoError(t, lease.Release(context.Background()))
}
