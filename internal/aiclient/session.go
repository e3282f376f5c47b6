package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// State is the lifecycle state of a session token.
type State int

const (
	NoToken State = iota
	Acquiring
	Cached
	Invalidated
)

func (s State) String() string {
	switch s {
	case NoToken:
		return "no_token"
	case Acquiring:
		return "acquiring"
	case Cached:
		return "cached"
	case Invalidated:
		return "invalidated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session holds the bearer token of one run. Concurrent callers share a
// single acquisition. A Session satisfies oauth2.TokenSource so it can back
// an oauth2.Transport.
type Session struct {
	subject    string
	tokenURL   string
	httpClient *http.Client
	logger     *slog.Logger

	group singleflight.Group

	mu    sync.Mutex
	state State
	token string
}

var _ oauth2.TokenSource = (*Session)(nil)

// NewSession creates a session for subject. A non-empty staticToken starts the
// session in the Cached state; tokenURL may be empty in that case, which
// makes the token non-refreshable.
func NewSession(subject, tokenURL, staticToken string, httpClient *http.Client, logger *slog.Logger) *Session {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	s := &Session{
		subject:    subject,
		tokenURL:   tokenURL,
		httpClient: httpClient,
		logger:     logger,
	}
	if staticToken != "" {
		s.token = staticToken
		s.state = Cached
	}
	return s
}

// Subject returns the subject key the token is issued for.
func (s *Session) Subject() string {
	return s.subject
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CanRefresh reports whether a new token can be acquired.
func (s *Session) CanRefresh() bool {
	return s.tokenURL != ""
}

// Invalidate drops the cached token, typically after a 401.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.state = Invalidated
}

// Token implements oauth2.TokenSource.
func (s *Session) Token() (*oauth2.Token, error) {
	tok, err := s.TokenContext(context.Background())
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}

// TokenContext returns the cached token or acquires a new one.
func (s *Session) TokenContext(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.state == Cached {
		tok := s.token
		s.mu.Unlock()
		return tok, nil
	}
	s.mu.Unlock()

	if !s.CanRefresh() {
		return "", fmt.Errorf("%w: no token endpoint configured", ErrTokenAcquisition)
	}

	v, err, _ := s.group.Do(s.subject, func() (any, error) {
		s.setState(Acquiring, "")
		tok, err := s.acquire(ctx)
		if err != nil {
			s.setState(NoToken, "")
			return "", err
		}
		s.setState(Cached, tok)
		return tok, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenAcquisition, err)
	}
	return v.(string), nil
}

func (s *Session) setState(state State, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.token = token
}

type tokenRequest struct {
	Subject string `json:"subject"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (s *Session) acquire(ctx context.Context) (string, error) {
	body, err := json.Marshal(tokenRequest{Subject: s.subject})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, truncate(data))
	}

	var tr tokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.Token == "" {
		return "", fmt.Errorf("%w: token", ErrMissingField)
	}
	s.logger.Debug("acquired session token", "subject", s.subject)
	return tr.Token, nil
}

func truncate(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
