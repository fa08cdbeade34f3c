// Package session holds the state of one signed-in admin: who they are,
// whether the calendar is authorized and the cached access token.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrNoSession = errors.New("no admin signed in")
	ErrNoToken   = errors.New("calendar is not authorized")
)

// TokenStore is the durable home of the access token.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

type Options struct {
	TokenInfoURL string
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

type Session struct {
	mu sync.RWMutex

	tokens  TokenStore
	infoURL string
	client  *http.Client
	logger  *zap.Logger

	user       string
	token      string
	authorized bool
	validated  bool
	bulkMode   bool
}

func New(tokens TokenStore, opts Options) *Session {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Session{
		tokens:  tokens,
		infoURL: opts.TokenInfoURL,
		client:  opts.HTTPClient,
		logger:  opts.Logger,
	}
}

// Begin starts the session for user after sign-in and picks up a calendar
// token cached by an earlier session.
func (s *Session) Begin(user string) error {
	if user == "" {
		return ErrNoSession
	}
	tok, err := s.tokens.Load()
	if err != nil {
		return fmt.Errorf("load cached token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.token = tok
	s.authorized = tok != ""
	s.validated = false
	s.bulkMode = false
	s.logger.Info("session started", zap.String("user", user), zap.Bool("calendar_authorized", s.authorized))
	return nil
}

// End tears the session down on sign-out. The cached token stays on disk.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("session ended", zap.String("user", s.user))
	s.user = ""
	s.token = ""
	s.authorized = false
	s.validated = false
	s.bulkMode = false
}

func (s *Session) User() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) Active() bool {
	return s.User() != ""
}

func (s *Session) Authorized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authorized
}

func (s *Session) BulkMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bulkMode
}

func (s *Session) SetBulkMode(on bool) {
	s.mu.Lock()
	s.bulkMode = on
	s.mu.Unlock()
}

// Store caches a freshly obtained token and marks the calendar authorized.
func (s *Session) Store(token string) error {
	if token == "" {
		return ErrNoToken
	}
	if err := s.tokens.Save(token); err != nil {
		return fmt.Errorf("cache token: %w", err)
	}
	s.mu.Lock()
	s.token = token
	s.authorized = true
	s.validated = true
	s.mu.Unlock()
	s.logger.Info("calendar authorized")
	return nil
}

// Invalidate forgets the token, both in memory and on disk.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.authorized = false
	s.validated = false
	s.mu.Unlock()
	if err := s.tokens.Clear(); err != nil {
		s.logger.Error("clear cached token", zap.Error(err))
	}
	s.logger.Warn("calendar token invalidated")
}

// Token returns the access token, validating a cached one against the
// token-info endpoint the first time it is used in this session.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	tok, validated := s.token, s.validated
	s.mu.RUnlock()

	if tok == "" {
		return "", ErrNoToken
	}
	if validated {
		return tok, nil
	}
	ok, err := s.Validate(ctx)
	if err != nil {
		// Introspection unreachable: keep the token, the calendar call will tell.
		return tok, nil
	}
	if !ok {
		return "", ErrNoToken
	}
	return tok, nil
}

type tokenInfo struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Scope            string `json:"scope"`
	ExpiresIn        string `json:"expires_in"`
}

// Validate asks the token-info endpoint about the current token. An error
// in the response invalidates it; transport errors leave state unchanged.
func (s *Session) Validate(ctx context.Context) (bool, error) {
	s.mu.RLock()
	tok := s.token
	s.mu.RUnlock()
	if tok == "" {
		return false, nil
	}

	u, err := url.Parse(s.infoURL)
	if err != nil {
		return false, fmt.Errorf("token info url: %w", err)
	}
	q := u.Query()
	q.Set("access_token", tok)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return false, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("token check failed", zap.Error(err))
		return false, err
	}
	defer resp.Body.Close()

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		s.logger.Error("token check: unreadable response", zap.Int("status", resp.StatusCode), zap.Error(err))
		return false, err
	}
	if info.Error != "" || info.ErrorDescription != "" {
		s.logger.Info("cached token rejected", zap.String("error", info.Error))
		s.Invalidate()
		return false, nil
	}

	s.mu.Lock()
	if s.token == tok {
		s.validated = true
	}
	s.mu.Unlock()
	return true, nil
}
