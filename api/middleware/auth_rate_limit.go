package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/darzi-doorstep/darzi-backend/api/responses"
	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
	"github.com/darzi-doorstep/darzi-backend/pkg/logger"
	"github.com/darzi-doorstep/darzi-backend/pkg/types"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// AuthRateLimitPolicy caps login attempts per caller address and per phone
// number inside a fixed window.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	phoneLimit int
}

// NewAuthRateLimitPolicy builds a policy. The phone limit keys on the "phone"
// field of the JSON body after normalization, so "+91 98765 43210" and
// "9876543210" share a counter.
func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, phoneLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, phoneLimit: phoneLimit}
}

// counter is one throttled dimension resolved for a single request.
type counter struct {
	dimension string
	subject   string
	limit     int
}

func (p AuthRateLimitPolicy) key(c counter) string {
	return "rl:" + c.dimension + ":" + p.name + ":" + c.subject
}

// AuthRateLimit enforces per-IP and per-phone counters for auth endpoints.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || policy.window <= 0 || (policy.ipLimit <= 0 && policy.phoneLimit <= 0) {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			counters, err := policy.countersFor(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			for _, c := range counters {
				attempts, err := store.IncrWithTTL(ctx, policy.key(c), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if attempts > int64(c.limit) {
					if logg != nil {
						logCtx := logg.WithFields(ctx, map[string]any{
							"policy":         policy.name,
							"scope":          c.dimension,
							"subject":        c.subject,
							"attempts":       attempts,
							"limit":          c.limit,
							"window_seconds": int(policy.window.Seconds()),
						})
						logg.Warn(logCtx, "auth.rate_limit.blocked")
					}
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// countersFor resolves the dimensions that apply to r. Reading the phone
// leaves r.Body rewound for the handler.
func (p AuthRateLimitPolicy) countersFor(r *http.Request) ([]counter, error) {
	var counters []counter
	if p.ipLimit > 0 {
		if ip := ClientIP(r); ip != "" {
			counters = append(counters, counter{dimension: "ip", subject: ip, limit: p.ipLimit})
		}
	}
	if p.phoneLimit <= 0 {
		return counters, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		Phone string `json:"phone"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return counters, nil
	}
	if phone, ok := types.NormalizeIndianMobile(payload.Phone); ok {
		// raw numbers never reach redis or the logs
		sum := sha256.Sum256([]byte(phone))
		counters = append(counters, counter{dimension: "phone", subject: hex.EncodeToString(sum[:]), limit: p.phoneLimit})
	}
	return counters, nil
}
