package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/darzi-doorstep/darzi-backend/pkg/redis"
)

// Manager remembers which outbox events a relay channel already delivered, so a row
// whose publish mark failed is not posted twice. Keys follow
// `dz:idempotency:evt:delivered:<channel>:<event_id>`.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewManager builds an idempotency guard that marks events as processed for the given TTL.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// CheckAndMarkDelivered returns true if the event was already delivered and
// otherwise claims it for the configured TTL.
func (m *Manager) CheckAndMarkDelivered(ctx context.Context, channel string, eventID uuid.UUID) (bool, error) {
	key, err := m.deliveredKey(channel, eventID)
	if err != nil {
		return false, err
	}
	set, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Release drops the claim after a failed delivery so the next attempt can retry.
func (m *Manager) Release(ctx context.Context, channel string, eventID uuid.UUID) error {
	key, err := m.deliveredKey(channel, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) deliveredKey(channel string, eventID uuid.UUID) (string, error) {
	if channel == "" {
		return "", errors.New("channel name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	scope := fmt.Sprintf("evt:delivered:%s", channel)
	return m.store.IdempotencyKey(scope, eventID.String()), nil
}
