// Package authflow runs the calendar authorization as an explicit
// request/response exchange: Begin hands out a URL and a state, the provider
// redirect (or a token message) resolves the request, Await collects it.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scope grants event read/write on the user's calendars.
const Scope = "https://www.googleapis.com/auth/calendar.events"

const DefaultTimeout = 5 * time.Minute

var (
	ErrUnknownRequest = errors.New("authorization request not found")
	ErrCanceled       = errors.New("authorization window closed")
	ErrTimeout        = errors.New("authorization timed out")
	ErrDenied         = errors.New("authorization denied")
)

// Request identifies one authorization attempt.
type Request struct {
	State string `json:"state"`
	URL   string `json:"url"`
}

type result struct {
	token *oauth2.Token
	err   error
}

type pending struct {
	done    chan result
	created time.Time
}

type Broker struct {
	cfg     *oauth2.Config
	timeout time.Duration
	logger  *zap.Logger

	mu       sync.Mutex
	requests map[string]*pending
}

// NewOAuthConfig mirrors the web client registered for the calendar.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{Scope},
		Endpoint:     google.Endpoint,
	}
}

func NewBroker(cfg *oauth2.Config, timeout time.Duration, logger *zap.Logger) *Broker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		cfg:      cfg,
		timeout:  timeout,
		logger:   logger,
		requests: make(map[string]*pending),
	}
}

// Begin registers a new authorization request.
func (b *Broker) Begin() Request {
	b.Sweep()
	state := uuid.NewString()
	b.mu.Lock()
	b.requests[state] = &pending{done: make(chan result, 1), created: time.Now()}
	b.mu.Unlock()

	url := b.cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "consent"))
	b.logger.Debug("authorization requested", zap.String("state", state))
	return Request{State: state, URL: url}
}

// Await blocks until the request identified by state resolves, the window is
// closed, the timeout passes or ctx ends. The request is gone afterwards.
func (b *Broker) Await(ctx context.Context, state string) (*oauth2.Token, error) {
	b.mu.Lock()
	p, ok := b.requests[state]
	b.mu.Unlock()
	if !ok {
		return nil, ErrUnknownRequest
	}
	defer b.forget(state)

	wait := b.timeout - time.Since(p.created)
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case r := <-p.done:
		return r.token, r.err
	case <-timer.C:
		b.logger.Info("authorization timed out", zap.String("state", state))
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Complete exchanges the code from the provider redirect.
func (b *Broker) Complete(ctx context.Context, state, code string) error {
	if !b.known(state) {
		return ErrUnknownRequest
	}
	tok, err := b.cfg.Exchange(ctx, code)
	if err != nil {
		b.logger.Error("token exchange failed", zap.Error(err))
		return b.resolve(state, result{err: fmt.Errorf("exchange code: %w", err)})
	}
	return b.resolve(state, result{token: tok})
}

// Deliver resolves the request with a token captured directly.
func (b *Broker) Deliver(state, accessToken string) error {
	if accessToken == "" {
		return b.resolve(state, result{err: ErrDenied})
	}
	return b.resolve(state, result{token: &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}})
}

// Fail resolves the request with the provider's error.
func (b *Broker) Fail(state, reason string) error {
	return b.resolve(state, result{err: fmt.Errorf("%w: %s", ErrDenied, reason)})
}

// Cancel resolves the request because the external window was closed.
func (b *Broker) Cancel(state string) error {
	return b.resolve(state, result{err: ErrCanceled})
}

func (b *Broker) known(state string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.requests[state]
	return ok
}

func (b *Broker) resolve(state string, r result) error {
	b.mu.Lock()
	p, ok := b.requests[state]
	b.mu.Unlock()
	if !ok {
		return ErrUnknownRequest
	}
	select {
	case p.done <- r:
		return nil
	default:
		// already resolved
		return nil
	}
}

func (b *Broker) forget(state string) {
	b.mu.Lock()
	delete(b.requests, state)
	b.mu.Unlock()
}

// Sweep drops requests nobody awaited within the timeout.
func (b *Broker) Sweep() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for state, p := range b.requests {
		if time.Since(p.created) > b.timeout {
			delete(b.requests, state)
			n++
		}
	}
	return n
}
