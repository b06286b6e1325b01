package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/darzi-doorstep/darzi-backend/pkg/config"
	redisclient "github.com/darzi-doorstep/darzi-backend/pkg/redis"
)

const (
	refreshTokenBytes = 32
	tokenSeparator    = "."
)

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
}

// Session is the refresh state bound to one access token id. The refresh token
// handed to clients is "<access id>.<secret>" so it can be looked up on its own.
type Session struct {
	AccessID     string
	RefreshToken string
	UserID       uuid.UUID
}

type storedSession struct {
	UserID string `json:"user_id"`
	Secret string `json:"secret"`
}

// Manager handles refresh token creation, storage, and rotation.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("refresh token ttl must be positive")
	}
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}

	return &Manager{
		store: client,
		keyer: client,
		ttl:   ttl,
	}, nil
}

// Start opens a new session for the user and returns its refresh token.
func (m *Manager) Start(ctx context.Context, userID uuid.UUID) (Session, error) {
	if userID == uuid.Nil {
		return Session{}, fmt.Errorf("user id is required")
	}
	return m.save(ctx, NewAccessID(), userID)
}

// Rotate validates the provided refresh token, invalidates the prior session, and
// opens a new one for the same user.
func (m *Manager) Rotate(ctx context.Context, provided string) (Session, error) {
	accessID, secret, ok := splitToken(provided)
	if !ok {
		return Session{}, ErrInvalidRefreshToken
	}

	key := m.keyer.AccessSessionKey(accessID)
	current, err := m.load(ctx, key)
	if err != nil {
		return Session{}, err
	}
	if subtle.ConstantTimeCompare([]byte(current.Secret), []byte(secret)) != 1 {
		return Session{}, ErrInvalidRefreshToken
	}
	userID, err := uuid.Parse(current.UserID)
	if err != nil {
		return Session{}, ErrInvalidRefreshToken
	}

	next, err := m.save(ctx, NewAccessID(), userID)
	if err != nil {
		return Session{}, err
	}
	if err := m.store.Del(ctx, key); err != nil {
		return Session{}, err
	}
	return next, nil
}

// Revoke deletes the refresh mapping tied to the access identifier.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return m.store.Del(ctx, m.keyer.AccessSessionKey(accessID))
}

// HasSession reports whether the provided access ID still has an active refresh session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	if _, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NewAccessID produces a stable identifier used as the JWT jti/Redis key.
func NewAccessID() string {
	return uuid.NewString()
}

func (m *Manager) save(ctx context.Context, accessID string, userID uuid.UUID) (Session, error) {
	secret, err := generateSecret()
	if err != nil {
		return Session{}, err
	}
	raw, err := json.Marshal(storedSession{UserID: userID.String(), Secret: secret})
	if err != nil {
		return Session{}, fmt.Errorf("encoding session: %w", err)
	}
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), string(raw), m.ttl); err != nil {
		return Session{}, err
	}
	return Session{
		AccessID:     accessID,
		RefreshToken: accessID + tokenSeparator + secret,
		UserID:       userID,
	}, nil
}

func (m *Manager) load(ctx context.Context, key string) (storedSession, error) {
	raw, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return storedSession{}, ErrInvalidRefreshToken
		}
		return storedSession{}, err
	}
	var stored storedSession
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return storedSession{}, ErrInvalidRefreshToken
	}
	return stored, nil
}

func splitToken(token string) (string, string, bool) {
	accessID, secret, ok := strings.Cut(strings.TrimSpace(token), tokenSeparator)
	if !ok || accessID == "" || secret == "" {
		return "", "", false
	}
	return accessID, secret, true
}

func generateSecret() (string, error) {
	bytes := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
