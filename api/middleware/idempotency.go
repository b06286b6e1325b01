package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/darzi-doorstep/darzi-backend/api/responses"
	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
	"github.com/darzi-doorstep/darzi-backend/pkg/logger"
	pkgredis "github.com/darzi-doorstep/darzi-backend/pkg/redis"
)

const (
	idempotencyHeader     = "Idempotency-Key"
	defaultIdempotencyTTL = 24 * time.Hour
	inFlightTTL           = time.Minute
	maxIdempotencyKeyLen  = 128
)

// IdempotencyOptions tunes the replay window per surface.
type IdempotencyOptions struct {
	BookingTTL time.Duration
}

type idempotencyRule struct {
	method string
	match  func(pattern string) bool
	ttl    time.Duration
	// optional rules only engage when the client sends a key.
	optional bool
}

func idempotencyRules(opts IdempotencyOptions) []idempotencyRule {
	bookingTTL := opts.BookingTTL
	if bookingTTL <= 0 {
		bookingTTL = defaultIdempotencyTTL
	}
	return []idempotencyRule{
		{
			method:   http.MethodPost,
			match:    func(p string) bool { return p == "/api/v1/bookings" },
			ttl:      bookingTTL,
			optional: true,
		},
		{
			method: http.MethodPatch,
			match: func(p string) bool {
				return strings.HasPrefix(p, "/api/admin/v1/orders/") && strings.HasSuffix(p, "/status")
			},
			ttl:      defaultIdempotencyTTL,
			optional: true,
		},
	}
}

func matchRule(rules []idempotencyRule, method, pattern string) (idempotencyRule, bool) {
	if pattern == "" {
		return idempotencyRule{}, false
	}
	for _, rule := range rules {
		if rule.method == method && rule.match(pattern) {
			return rule, true
		}
	}
	return idempotencyRule{}, false
}

// replayRecord is what lands in Redis under the scoped key. A record with
// Pending set marks a request still being handled.
type replayRecord struct {
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
	RequestHash string `json:"request_hash"`
}

// Idempotency replays the stored response when a write is retried with the
// same Idempotency-Key, and rejects a reused key carrying a different body.
func Idempotency(store pkgredis.IdempotencyStore, opts IdempotencyOptions, logg *logger.Logger) func(http.Handler) http.Handler {
	rules := idempotencyRules(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, ok := matchRule(rules, r.Method, routePattern(r))
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			switch {
			case clientKey == "" && rule.optional:
				next.ServeHTTP(w, r)
				return
			case clientKey == "":
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, idempotencyHeader+" header required"))
				return
			case len(clientKey) > maxIdempotencyKeyLen:
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, idempotencyHeader+" header too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			sum := sha256.Sum256(body)
			guard := replayGuard{
				store: store,
				key:   store.IdempotencyKey(requestScope(r), clientKey),
				hash:  base64.StdEncoding.EncodeToString(sum[:]),
			}

			existing, claimed, err := guard.claim(ctx)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if !claimed {
				switch {
				case existing.RequestHash != guard.hash:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
				case existing.Pending:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still in progress"))
				default:
					existing.replay(w)
				}
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			// failed attempts release the key so the client can retry with it
			if capture.status >= http.StatusBadRequest {
				if err := guard.release(ctx); err != nil && logg != nil {
					logg.Error(ctx, "release idempotency key", err)
				}
				return
			}
			status := capture.status
			if status == 0 {
				status = http.StatusOK
			}
			done := replayRecord{
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
				RequestHash: guard.hash,
			}
			if err := guard.complete(ctx, done, rule.ttl); err != nil && logg != nil {
				logg.Error(ctx, "persist idempotency record", err)
			}
		})
	}
}

type replayGuard struct {
	store pkgredis.IdempotencyStore
	key   string
	hash  string
}

// claim reserves the key for this request. When the key is already taken the
// stored record is returned instead.
func (g replayGuard) claim(ctx context.Context) (replayRecord, bool, error) {
	marker, err := json.Marshal(replayRecord{Pending: true, RequestHash: g.hash})
	if err != nil {
		return replayRecord{}, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode idempotency marker")
	}
	ok, err := g.store.SetNX(ctx, g.key, string(marker), inFlightTTL)
	if err != nil {
		return replayRecord{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key")
	}
	if ok {
		return replayRecord{}, true, nil
	}

	raw, err := g.store.Get(ctx, g.key)
	if errors.Is(err, redis.Nil) {
		// expired between the two calls; treat it as in flight rather than racing
		return replayRecord{Pending: true, RequestHash: g.hash}, false, nil
	}
	if err != nil {
		return replayRecord{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	var stored replayRecord
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return replayRecord{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return stored, false, nil
}

func (g replayGuard) complete(ctx context.Context, record replayRecord, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := g.store.Del(ctx, g.key); err != nil {
		return err
	}
	_, err = g.store.SetNX(ctx, g.key, string(payload), ttl)
	return err
}

func (g replayGuard) release(ctx context.Context) error {
	return g.store.Del(ctx, g.key)
}

func (rec replayRecord) replay(w http.ResponseWriter) {
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}

// requestScope keeps keys from colliding across callers and endpoints.
func requestScope(r *http.Request) string {
	owner := UserIDFromContext(r.Context())
	if owner == "" {
		owner = "device:" + DeviceIDFromContext(r.Context())
	}
	return owner + "|" + r.Method + "|" + r.URL.Path
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
