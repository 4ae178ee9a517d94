package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLockName = "cron"
	minLockTTL      = time.Minute
)

// Lock grants one replica the right to run a cycle. The release func is only
// returned when ok is true.
type Lock interface {
	TryLock(ctx context.Context) (release func(context.Context) error, ok bool, err error)
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) (bool, error)
	LockKey(name string) string
}

// RedisLock is a single-key lease. Each holder writes a random token so a
// replica whose lease expired cannot delete a successor's lock.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
}

func NewRedisLock(store lockStore, name string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultLockName
	}
	return &RedisLock{store: store, key: store.LockKey(name), ttl: max(ttl, minLockTTL)}, nil
}

// LockTTLFor keeps the lease a little shorter than the cadence so a crashed
// holder never costs more than one cycle.
func LockTTLFor(interval time.Duration) time.Duration {
	return max(interval-interval/12, minLockTTL)
}

func (l *RedisLock) TryLock(ctx context.Context) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		if _, err := l.store.ReleaseLock(ctx, l.key, token); err != nil {
			return fmt.Errorf("release %s: %w", l.key, err)
		}
		return nil
	}
	return release, true, nil
}
