package admin

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"shiftcalendar/pkg/models"
)

var (
	ErrInvalidEmail       = errors.New("malformed email")
	ErrUnknownUser        = errors.New("unknown user")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyRequests    = errors.New("too many sign-in attempts")
	ErrBadToken           = errors.New("invalid token")
	ErrRevokedToken       = errors.New("token revoked by sign-out")
)

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

const tokenTTL = 12 * time.Hour

// Authenticator admits the single configured administrator.
type Authenticator struct {
	email   string
	hash    string
	secret  []byte
	limiter *RateLimiter
	now     func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // token id -> expiry
}

func NewAuthenticator(email, passwordHash, secret string, limiter *RateLimiter) *Authenticator {
	return &Authenticator{
		email:   strings.ToLower(strings.TrimSpace(email)),
		hash:    passwordHash,
		secret:  []byte(secret),
		limiter: limiter,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

// SignIn checks credentials for client (an address used for throttling) and
// returns a signed session token.
func (a *Authenticator) SignIn(client, email, password string) (string, error) {
	if a.limiter != nil && !a.limiter.Allow(client) {
		return "", ErrTooManyRequests
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if !models.ValidEmail(email) {
		return "", ErrInvalidEmail
	}
	if email != a.email {
		return "", ErrUnknownUser
	}
	if !CheckPassword(a.hash, password) {
		return "", ErrInvalidCredentials
	}
	return a.MakeToken(email)
}

func (a *Authenticator) MakeToken(email string) (string, error) {
	now := a.now()
	c := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.secret)
}

func (a *Authenticator) ParseToken(raw string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, ErrBadToken
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || c.Email != a.email || c.ID == "" {
		return nil, ErrBadToken
	}
	if a.isRevoked(c.ID) {
		return nil, ErrRevokedToken
	}
	return c, nil
}

// Revoke rejects the token from now until it would have expired anyway.
func (a *Authenticator) Revoke(c *Claims) {
	if c == nil || c.ID == "" {
		return
	}
	exp := a.now().Add(tokenTTL)
	if c.ExpiresAt != nil {
		exp = c.ExpiresAt.Time
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	for id, until := range a.revoked {
		if !until.After(now) {
			delete(a.revoked, id)
		}
	}
	a.revoked[c.ID] = exp
}

func (a *Authenticator) isRevoked(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.revoked[id]
	return ok
}
