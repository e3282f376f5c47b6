package aiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/sevigo/rate-my-mr/internal/config"
)

//go:generate mockgen -destination=../../mocks/mock_sender.go -package=mocks . Sender

// Sender sends one request to an AI backend.
type Sender interface {
	Send(ctx context.Context, req Request) (*Envelope, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Client is the HTTP sender with retry for the legacy and gateway endpoints.
type Client struct {
	endpoint    string
	shape       wireShape
	session     *Session
	httpClient  *http.Client
	maxAttempts int
	baseDelay   time.Duration
	sleep       SleepFunc
	logger      *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithSleep replaces the backoff sleep.
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithHTTPClient replaces the base HTTP client. Its transport is wrapped with
// the session's bearer token.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewLegacyClient returns a client for the legacy endpoint. It sends no token.
func NewLegacyClient(cfg config.AIConfig, logger *slog.Logger, opts ...Option) *Client {
	return newClient(cfg.ServiceURL, legacyShape{}, nil, cfg, logger, opts...)
}

// NewGatewayClient returns a client for the gateway endpoint authenticated by session.
func NewGatewayClient(cfg config.AIConfig, meta RunMetadata, session *Session, logger *slog.Logger, opts ...Option) *Client {
	return newClient(cfg.GatewayURL, gatewayShape{meta: meta}, session, cfg, logger, opts...)
}

func newClient(endpoint string, shape wireShape, session *Session, cfg config.AIConfig, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		endpoint:    endpoint,
		shape:       shape,
		session:     session,
		maxAttempts: cfg.MaxRetries,
		baseDelay:   cfg.BaseDelay,
		sleep:       contextSleep,
		logger:      logger,
	}
	if c.maxAttempts < 1 {
		c.maxAttempts = 3
	}
	if c.baseDelay <= 0 {
		c.baseDelay = 2 * time.Second
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if session != nil {
		base := c.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		wrapped := *c.httpClient
		wrapped.Transport = &oauth2.Transport{Source: session, Base: base}
		c.httpClient = &wrapped
	}
	return c
}

// Send posts req and returns the normalized response. 5xx, 429 and transport
// errors are retried with exponential backoff. A 401 invalidates the session
// and is retried once with a fresh token. Other 4xx responses are terminal.
func (c *Client) Send(ctx context.Context, req Request) (*Envelope, error) {
	body, err := c.shape.encode(req)
	if err != nil {
		return nil, &RequestError{Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	if c.session != nil {
		if _, err := c.session.TokenContext(ctx); err != nil {
			return nil, &RequestError{Err: err}
		}
	}

	var (
		lastErr      error
		lastStatus   int
		reauthorized bool
		skipBackoff  bool
		backoffs     int
	)
	// The single re-authorized retry does not use up a retry attempt.
	limit := c.maxAttempts
	attempt := 0
	for attempt < limit {
		attempt++
		if attempt > 1 && !skipBackoff {
			delay := c.baseDelay << backoffs
			backoffs++
			c.logger.WarnContext(ctx, "retrying ai request", "attempt", attempt, "delay", delay, "error", lastErr)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, &RequestError{Status: lastStatus, Attempts: attempt - 1, Err: err}
			}
		}
		skipBackoff = false

		status, respBody, err := c.post(ctx, body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &RequestError{Attempts: attempt, Err: ctx.Err()}
			}
			lastErr, lastStatus = err, 0
			continue
		}
		lastStatus = status

		switch {
		case status >= 200 && status < 300:
			env, err := c.shape.decode(respBody)
			if err != nil {
				return nil, &RequestError{Status: status, Attempts: attempt, Err: err}
			}
			return env, nil

		case status == http.StatusUnauthorized && c.session != nil:
			c.session.Invalidate()
			if reauthorized || !c.session.CanRefresh() {
				return nil, &RequestError{Status: status, Attempts: attempt, Err: ErrUnauthorized}
			}
			reauthorized = true
			if _, err := c.session.TokenContext(ctx); err != nil {
				return nil, &RequestError{Status: status, Attempts: attempt, Err: err}
			}
			c.logger.InfoContext(ctx, "session token refreshed after 401", "subject", c.session.Subject())
			lastErr = ErrUnauthorized
			skipBackoff = true
			limit++

		case status == http.StatusTooManyRequests || status >= 500:
			lastErr = fmt.Errorf("server returned %d: %s", status, truncate(respBody))

		default:
			return nil, &RequestError{
				Status:   status,
				Attempts: attempt,
				Err:      fmt.Errorf("%w: %s", ErrRejected, truncate(respBody)),
			}
		}
	}

	return nil, &RequestError{
		Status:   lastStatus,
		Attempts: attempt,
		Err:      fmt.Errorf("%w: %w", ErrAttemptsExhausted, lastErr),
	}
}

func (c *Client) post(ctx context.Context, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, data, nil
}
