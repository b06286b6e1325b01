package cart

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
	redisclient "github.com/darzi-doorstep/darzi-backend/pkg/redis"
)

// DeviceStore persists the cart held for one device.
type DeviceStore interface {
	Load(ctx context.Context, deviceID string) (*Cart, error)
	Save(ctx context.Context, deviceID string, c *Cart) error
	Delete(ctx context.Context, deviceID string) error
}

type kvStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	DeviceCartKey(deviceID string) string
}

type redisDeviceStore struct {
	kv  kvStore
	ttl time.Duration
}

// NewDeviceStore stores device carts as JSON documents that expire after ttl of inactivity.
func NewDeviceStore(kv kvStore, ttl time.Duration) (DeviceStore, error) {
	if kv == nil {
		return nil, errors.New("device cart kv store required")
	}
	if ttl <= 0 {
		return nil, errors.New("device cart ttl must be positive")
	}
	return &redisDeviceStore{kv: kv, ttl: ttl}, nil
}

type deviceDocument struct {
	Items     []Item    `json:"items"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *redisDeviceStore) Load(ctx context.Context, deviceID string) (*Cart, error) {
	key, err := s.key(deviceID)
	if err != nil {
		return nil, err
	}
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redisclient.Nil) {
			return &Cart{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load device cart")
	}
	var doc deviceDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		// an unreadable document is treated as an empty cart and overwritten on the next save
		return &Cart{}, nil
	}
	return &Cart{Items: sanitizeItems(doc.Items), Version: doc.Version}, nil
}

func (s *redisDeviceStore) Save(ctx context.Context, deviceID string, c *Cart) error {
	key, err := s.key(deviceID)
	if err != nil {
		return err
	}
	doc := deviceDocument{Items: c.Items, Version: c.Version, UpdatedAt: time.Now().UTC()}
	if doc.Items == nil {
		doc.Items = []Item{}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode device cart")
	}
	if err := s.kv.Set(ctx, key, string(raw), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save device cart")
	}
	return nil
}

func (s *redisDeviceStore) Delete(ctx context.Context, deviceID string) error {
	key, err := s.key(deviceID)
	if err != nil {
		return err
	}
	if err := s.kv.Del(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete device cart")
	}
	return nil
}

func (s *redisDeviceStore) key(deviceID string) (string, error) {
	if strings.TrimSpace(deviceID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "device id is required")
	}
	return s.kv.DeviceCartKey(deviceID), nil
}
