package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return "sess:" + accessID
}

func newTestManager(store *mockStore) *Manager {
	return &Manager{store: store, keyer: store, ttl: time.Hour}
}

func TestManagerStartAndRotate(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()
	userID := uuid.New()

	started, err := manager.Start(ctx, userID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.HasPrefix(started.RefreshToken, started.AccessID+".") {
		t.Fatalf("refresh token should embed the access id, got %q", started.RefreshToken)
	}
	if ok, err := manager.HasSession(ctx, started.AccessID); err != nil || !ok {
		t.Fatalf("expected active session, ok=%v err=%v", ok, err)
	}

	if _, err := manager.Rotate(ctx, started.AccessID+".wrong"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token error, got %v", err)
	}

	rotated, err := manager.Rotate(ctx, started.RefreshToken)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if rotated.UserID != userID {
		t.Fatalf("rotation should keep the user, got %s", rotated.UserID)
	}
	if rotated.AccessID == started.AccessID {
		t.Fatalf("rotation should issue a new access id")
	}
	if ok, _ := manager.HasSession(ctx, started.AccessID); ok {
		t.Fatalf("old session left behind")
	}
	if _, err := manager.Rotate(ctx, started.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("reusing a rotated token must fail, got %v", err)
	}
}

func TestManagerRevoke(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()

	started, err := manager.Start(ctx, uuid.New())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := manager.Revoke(ctx, started.AccessID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if ok, _ := manager.HasSession(ctx, started.AccessID); ok {
		t.Fatalf("expected session to be revoked")
	}
	if err := manager.Revoke(ctx, " "); err == nil {
		t.Fatalf("expected blank access id to fail")
	}
}

func TestManagerRejectsMalformedTokens(t *testing.T) {
	manager := newTestManager(newMockStore())
	for _, token := range []string{"", "no-separator", ".secret", "access."} {
		if _, err := manager.Rotate(context.Background(), token); !errors.Is(err, ErrInvalidRefreshToken) {
			t.Fatalf("token %q: expected invalid refresh token, got %v", token, err)
		}
	}
	if _, err := manager.Start(context.Background(), uuid.Nil); err == nil {
		t.Fatal("expected nil user id to fail")
	}
}
