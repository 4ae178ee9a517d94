package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type leaseStore struct {
	values map[string]string
	ttl    time.Duration
	err    error
}

func newLeaseStore() *leaseStore {
	return &leaseStore{values: map[string]string{}}
}

func (s *leaseStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	s.ttl = ttl
	return true, nil
}

func (s *leaseStore) ReleaseLock(_ context.Context, key, token string) (bool, error) {
	if s.values[key] != token {
		return false, nil
	}
	delete(s.values, key)
	return true, nil
}

func (s *leaseStore) LockKey(name string) string { return "pa:lock:" + name }

func TestRedisLockIsExclusive(t *testing.T) {
	store := newLeaseStore()
	ctx := context.Background()
	lock, err := NewRedisLock(store, "", 50*time.Minute)
	require.NoError(t, err)

	release, ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 50*time.Minute, store.ttl)
	assert.Contains(t, store.values, "pa:lock:cron")

	other, ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, other)

	require.NoError(t, release(ctx))
	assert.Empty(t, store.values)

	_, ok, err = lock.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockReleaseKeepsSuccessorLease(t *testing.T) {
	store := newLeaseStore()
	ctx := context.Background()
	lock, err := NewRedisLock(store, "cron", time.Hour)
	require.NoError(t, err)

	release, ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// lease expired and another replica took over
	store.values["pa:lock:cron"] = "successor"
	require.NoError(t, release(ctx))
	assert.Equal(t, "successor", store.values["pa:lock:cron"])
}

func TestRedisLockAcquireError(t *testing.T) {
	store := newLeaseStore()
	store.err = errors.New("redis down")
	lock, err := NewRedisLock(store, "cron", time.Hour)
	require.NoError(t, err)

	_, ok, err := lock.TryLock(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestLockTTLFor(t *testing.T) {
	assert.Equal(t, 55*time.Minute, LockTTLFor(time.Hour))
	assert.Equal(t, minLockTTL, LockTTLFor(30*time.Second))
}
