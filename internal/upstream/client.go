// Package upstream is the HTTP client for the sports data provider.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrRejected means the provider refused the request parameters.
var ErrRejected = errors.New("upstream: request rejected")

const maxBodySize = 16 << 20

// Config configures a Client.
type Config struct {
	// BaseURL is the provider root. A {sport} placeholder is replaced per request.
	BaseURL string
	// APIKey is sent in KeyHeader when not empty.
	APIKey    string
	KeyHeader string
	Timeout   time.Duration
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// Client fetches payloads from the provider.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *zap.Logger
}

// NewClient creates a new upstream client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.KeyHeader == "" {
		cfg.KeyHeader = "x-apisports-key"
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	c := &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: logger,
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "upstream",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return c
}

// Fetch requests path for sport and returns the provider payload.
//
// The request is bounded by the configured timeout and is not cancelled when
// ctx is, so a fetch started for a disconnected client can still fill the cache.
func (c *Client) Fetch(ctx context.Context, sport, path string, query url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
	defer cancel()

	payload, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, sport, path, query)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &UnavailableError{Err: err}
	}

	return payload, err
}

func (c *Client) do(ctx context.Context, sport, path string, query url.Values) ([]byte, error) {
	target := strings.TrimRight(strings.ReplaceAll(c.cfg.BaseURL, "{sport}", sport), "/") + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if c.cfg.APIKey != "" {
		req.Header.Set(c.cfg.KeyHeader, c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UnavailableError{Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, &UnavailableError{Status: resp.StatusCode}
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &UnavailableError{Timeout: isTimeout(err), Err: err}
	}

	return extractPayload(body)
}

// envelope is the provider's response wrapper.
type envelope struct {
	Errors   json.RawMessage `json:"errors"`
	Response json.RawMessage `json:"response"`
}

func extractPayload(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] != '{' {
		if !json.Valid(trimmed) {
			return nil, &UnavailableError{Err: errors.New("malformed response")}
		}

		return trimmed, nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &UnavailableError{Err: fmt.Errorf("malformed response: %w", err)}
	}

	if !IsEmpty(env.Errors) {
		return nil, fmt.Errorf("%w: %s", ErrRejected, string(env.Errors))
	}

	if len(env.Response) > 0 {
		return env.Response, nil
	}

	return body, nil
}

// IsEmpty reports whether payload carries no data.
func IsEmpty(payload []byte) bool {
	switch string(bytes.TrimSpace(payload)) {
	case "", "null", "[]", "{}":
		return true
	default:
		return false
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}
