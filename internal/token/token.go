// Package token issues and verifies HS256 session tokens. The server keeps no
// session state: everything a token asserts lives in its claims.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/myflix/internal/errs"
	"github.com/and161185/myflix/internal/model"
)

const issuer = "myflix"

// Claims are the registered claims plus the account's token version.
type Claims struct {
	jwt.RegisteredClaims
	Ver int64 `json:"ver"`
}

// Manager signs and verifies tokens with a server-held secret.
type Manager struct {
	key    []byte
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLeeway allows for clock skew when checking exp/iat.
func WithLeeway(d time.Duration) Option { return func(m *Manager) { m.leeway = d } }

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// NewManager constructs a Manager. key must not be empty.
func NewManager(key []byte, ttl time.Duration, opts ...Option) (*Manager, error) {
	if len(key) == 0 {
		return nil, errors.New("token: empty signing key")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token: bad ttl %s", ttl)
	}
	m := &Manager{key: key, ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// Issue creates a signed token for the account's username and token version.
func (m *Manager) Issue(a *model.Account) (model.Tokens, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return model.Tokens{}, err
	}
	now := m.now()
	exp := now.Add(m.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   a.Username,
			ID:        jti.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Ver: a.TokenVersion,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: signed, ExpiresAt: exp}, nil
}

// Verify checks signature, algorithm, issuer and expiry, and returns the claimed identity.
// Every failure is reported as errs.ErrInvalidToken.
func (m *Manager) Verify(raw string) (model.Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.leeway),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", errs.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return model.Identity{}, fmt.Errorf("%w: empty subject", errs.ErrInvalidToken)
	}
	return model.Identity{Username: claims.Subject, Version: claims.Ver}, nil
}

// Authorize allows an identity to act only on its own account.
func Authorize(id model.Identity, target string) error {
	if id.Username == "" || id.Username != target {
		return errs.ErrPermissionDenied
	}
	return nil
}
