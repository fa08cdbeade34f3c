package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTokens struct {
	tok     string
	cleared int
	failOn  error
}

func (m *memTokens) Load() (string, error) { return m.tok, m.failOn }
func (m *memTokens) Save(t string) error   { m.tok = t; return nil }
func (m *memTokens) Clear() error          { m.tok = ""; m.cleared++; return nil }

func tokenInfoServer(t *testing.T, valid string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("access_token") == valid {
			w.Write([]byte(`{"scope":"https://www.googleapis.com/auth/calendar.events","expires_in":"3599"}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_token","error_description":"Invalid Value"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBeginPicksUpCachedToken(t *testing.T) {
	tokens := &memTokens{tok: "cached"}
	s := New(tokens, Options{})

	require.NoError(t, s.Begin("admin@example.com"))
	assert.True(t, s.Active())
	assert.True(t, s.Authorized())
	assert.Equal(t, "admin@example.com", s.User())

	s.SetBulkMode(true)
	s.End()
	assert.False(t, s.Active())
	assert.False(t, s.Authorized())
	assert.False(t, s.BulkMode())
	assert.Equal(t, "cached", tokens.tok, "sign-out keeps the cached calendar token")
}

func TestBeginWithoutToken(t *testing.T) {
	s := New(&memTokens{}, Options{})
	require.NoError(t, s.Begin("admin@example.com"))
	assert.False(t, s.Authorized())

	_, err := s.Token(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestBeginLoadError(t *testing.T) {
	s := New(&memTokens{failOn: errors.New("disk")}, Options{})
	assert.Error(t, s.Begin("admin@example.com"))
}

func TestTokenValidatedOncePerSession(t *testing.T) {
	var hits int32
	srv := tokenInfoServer(t, "good", &hits)
	s := New(&memTokens{tok: "good"}, Options{TokenInfoURL: srv.URL})
	require.NoError(t, s.Begin("admin"))

	for i := 0; i < 3; i++ {
		tok, err := s.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "good", tok)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	require.NoError(t, s.Begin("admin"))
	_, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestInvalidTokenIsCleared(t *testing.T) {
	var hits int32
	srv := tokenInfoServer(t, "good", &hits)
	tokens := &memTokens{tok: "expired"}
	s := New(tokens, Options{TokenInfoURL: srv.URL})
	require.NoError(t, s.Begin("admin"))
	require.True(t, s.Authorized())

	_, err := s.Token(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
	assert.False(t, s.Authorized())
	assert.Empty(t, tokens.tok)
	assert.Equal(t, 1, tokens.cleared)
}

func TestIntrospectionUnreachableKeepsToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	s := New(&memTokens{tok: "cached"}, Options{TokenInfoURL: srv.URL})
	require.NoError(t, s.Begin("admin"))

	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached", tok)
	assert.True(t, s.Authorized())
}

func TestStoreAndInvalidate(t *testing.T) {
	tokens := &memTokens{}
	s := New(tokens, Options{})
	require.NoError(t, s.Begin("admin"))

	assert.ErrorIs(t, s.Store(""), ErrNoToken)
	require.NoError(t, s.Store("fresh"))
	assert.True(t, s.Authorized())
	assert.Equal(t, "fresh", tokens.tok)

	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)

	s.Invalidate()
	assert.False(t, s.Authorized())
	assert.Empty(t, tokens.tok)
}

func TestBeginNeedsUser(t *testing.T) {
	s := New(&memTokens{tok: "cached"}, Options{})
	assert.ErrorIs(t, s.Begin(""), ErrNoSession)
	assert.False(t, s.Authorized())
}
