// Package idempotency makes event handlers safe under at-least-once delivery.
// A handler step claims "<step>:<event id>" in Redis before running; a second
// delivery of the same event finds the claim and skips the step.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/redis"
)

const claimScope = "evt:done"

// Manager hands out per-step claims with a bounded lifetime. The lifetime must
// outlast the broker's redelivery window.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("claim ttl must be positive")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Once runs fn unless step already completed for eventID. It reports whether
// fn ran. When fn fails the claim is dropped so a redelivery tries again; a
// claim that cannot be taken surfaces as a dependency error.
func (m *Manager) Once(ctx context.Context, step string, eventID uuid.UUID, fn func() error) (bool, error) {
	key, err := m.key(step, eventID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "idempotency claim")
	}
	claimed, err := m.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency claim")
	}
	if !claimed {
		return false, nil
	}
	if err := fn(); err != nil {
		if relErr := m.store.Del(context.WithoutCancel(ctx), key); relErr != nil {
			return false, errors.Join(err, relErr)
		}
		return false, err
	}
	return true, nil
}

func (m *Manager) key(step string, eventID uuid.UUID) (string, error) {
	step = strings.TrimSpace(step)
	switch {
	case step == "":
		return "", errors.New("step name is required")
	case eventID == uuid.Nil:
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey(claimScope+":"+step, eventID.String()), nil
}
