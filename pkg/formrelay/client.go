package formrelay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/darzi-doorstep/darzi-backend/pkg/config"
	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://formspree.io/f"
	defaultTimeout              = 15 * time.Second
	responseBodyReadLimit int64 = 1024
)

// ErrRejected marks a submission the relay refused outright; resending it will not help.
var ErrRejected = errors.New("form relay rejected submission")

// Client posts key/value submissions to a hosted form endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds a relay client for the configured form id.
func NewClient(cfg config.FormRelayConfig, opts ...Option) (*Client, error) {
	formID := strings.TrimSpace(cfg.FormID)
	if formID == "" {
		return nil, errors.New("form relay form id is required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   base + "/" + url.PathEscape(formID),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Endpoint returns the URL submissions are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Submit posts the fields as JSON. Empty values are dropped.
func (c *Client) Submit(ctx context.Context, fields map[string]string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "form relay client not configured")
	}
	body := make(map[string]string, len(fields))
	for k, v := range fields {
		if strings.TrimSpace(v) == "" {
			continue
		}
		body[k] = v
	}
	if len(body) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "submission has no fields")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal form submission")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build form relay request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute form relay request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusRequestTimeout {
		cause = fmt.Errorf("%w: %w", ErrRejected, cause)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "form relay request failed")
}
