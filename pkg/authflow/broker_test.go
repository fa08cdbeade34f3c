package authflow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/oauth2"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func testConfig(tokenURL string) *oauth2.Config {
	cfg := NewOAuthConfig("client-id", "secret", "http://localhost:8000/google/redirect")
	if tokenURL != "" {
		cfg.Endpoint = oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth", TokenURL: tokenURL}
	}
	return cfg
}

func TestBeginBuildsConsentURL(t *testing.T) {
	b := NewBroker(testConfig(""), time.Minute, nil)
	req := b.Begin()
	require.NotEmpty(t, req.State)

	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, req.State, q.Get("state"))
	assert.Equal(t, Scope, q.Get("scope"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "http://localhost:8000/google/redirect", q.Get("redirect_uri"))
}

func TestDeliverThenAwait(t *testing.T) {
	b := NewBroker(testConfig(""), time.Minute, nil)
	req := b.Begin()

	require.NoError(t, b.Deliver(req.State, "ya29.direct"))
	tok, err := b.Await(context.Background(), req.State)
	require.NoError(t, err)
	assert.Equal(t, "ya29.direct", tok.AccessToken)

	_, err = b.Await(context.Background(), req.State)
	assert.ErrorIs(t, err, ErrUnknownRequest, "a request resolves once")
}

func TestAwaitWhileDelivering(t *testing.T) {
	b := NewBroker(testConfig(""), time.Minute, nil)
	req := b.Begin()

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = b.Deliver(req.State, "late")
	}()
	tok, err := b.Await(context.Background(), req.State)
	require.NoError(t, err)
	assert.Equal(t, "late", tok.AccessToken)
}

func TestCompleteExchangesCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "auth-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"exchanged","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	b := NewBroker(testConfig(srv.URL), time.Minute, nil)
	req := b.Begin()
	require.NoError(t, b.Complete(context.Background(), req.State, "auth-code"))

	tok, err := b.Await(context.Background(), req.State)
	require.NoError(t, err)
	assert.Equal(t, "exchanged", tok.AccessToken)
}

func TestCancelAndFail(t *testing.T) {
	b := NewBroker(testConfig(""), time.Minute, nil)

	closed := b.Begin()
	require.NoError(t, b.Cancel(closed.State))
	_, err := b.Await(context.Background(), closed.State)
	assert.ErrorIs(t, err, ErrCanceled)

	denied := b.Begin()
	require.NoError(t, b.Fail(denied.State, "access_denied"))
	_, err = b.Await(context.Background(), denied.State)
	assert.ErrorIs(t, err, ErrDenied)
	assert.Contains(t, err.Error(), "access_denied")
}

func TestTimeout(t *testing.T) {
	b := NewBroker(testConfig(""), 20*time.Millisecond, nil)
	req := b.Begin()
	_, err := b.Await(context.Background(), req.State)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestAwaitContextCanceled(t *testing.T) {
	b := NewBroker(testConfig(""), time.Minute, nil)
	req := b.Begin()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Await(ctx, req.State)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnknownState(t *testing.T) {
	b := NewBroker(testConfig(""), time.Minute, nil)
	assert.ErrorIs(t, b.Deliver("nope", "tok"), ErrUnknownRequest)
	assert.ErrorIs(t, b.Cancel("nope"), ErrUnknownRequest)
	assert.ErrorIs(t, b.Complete(context.Background(), "nope", "code"), ErrUnknownRequest)
}

func TestSweepDropsStaleRequests(t *testing.T) {
	b := NewBroker(testConfig(""), 10*time.Millisecond, nil)
	b.Begin()
	b.Begin()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, b.Sweep())
}
