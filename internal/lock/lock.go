// Package lock provides the per-merchant mutual exclusion used around sync
// runs.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/cache"
	"github.com/google/uuid"
)

var (
	// ErrLocked is returned by Acquire while another holder owns the key.
	ErrLocked = errors.New("lock is held")
	// ErrLost is returned by Extend once the lease expired or changed hands.
	ErrLost = errors.New("lock lease lost")
)

type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error)
}

// Lease is a held lock.
type Lease struct {
	extend  func(ctx context.Context, ttl time.Duration) (bool, error)
	release func(ctx context.Context) error
}

// Extend resets the lease to expire ttl from now.
func (l *Lease) Extend(ctx context.Context, ttl time.Duration) error {
	ok, err := l.extend(ctx, ttl)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLost
	}
	return nil
}

// Release gives the lock back. Releasing an expired lock is not an error.
func (l *Lease) Release(ctx context.Context) error {
	return l.release(ctx)
}

// KeepAlive extends the lease every third of ttl until ctx ends. A failed
// extension is reported to onErr; ErrLost stops the loop.
func (l *Lease) KeepAlive(ctx context.Context, ttl time.Duration, onErr func(error)) {
	ticker := time.NewTicker(max(ttl/3, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := l.Extend(ctx, ttl)
			if err == nil || ctx.Err() != nil {
				continue
			}
			onErr(err)
			if errors.Is(err, ErrLost) {
				return
			}
		}
	}
}

// RedisLocker shares locks across processes.
type RedisLocker struct {
	client *cache.RedisClient
}

func NewRedisLocker(client *cache.RedisClient) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	token := uuid.New().String()
	ok, err := l.client.AcquireLock(ctx, key, token, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}
	return &Lease{
		extend: func(ctx context.Context, ttl time.Duration) (bool, error) {
			return l.client.ExtendLock(ctx, key, token, ttl)
		},
		release: func(ctx context.Context) error {
			return l.client.ReleaseLock(ctx, key, token)
		},
	}, nil
}

// LocalLocker serializes within one process. Used when Redis is not
// configured and in tests.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]entry
	clock func() time.Time
}

type entry struct {
	token   string
	expires time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]entry{}, clock: time.Now}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (*Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, ErrLocked
	}
	token := uuid.New().String()
	l.held[key] = entry{token: token, expires: now.Add(ttl)}

	return &Lease{
		extend: func(_ context.Context, ttl time.Duration) (bool, error) {
			l.mu.Lock()
			defer l.mu.Unlock()
			now := l.clock()
			e, ok := l.held[key]
			if !ok || e.token != token || !now.Before(e.expires) {
				return false, nil
			}
			l.held[key] = entry{token: token, expires: now.Add(ttl)}
			return true, nil
		},
		release: func(context.Context) error {
			l.mu.Lock()
			defer l.mu.Unlock()
			if e, ok := l.held[key]; ok && e.token == token {
				delete(l.held, key)
			}
			return nil
		},
	}, nil
}
