package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 12 * time.Hour

// Claims carry the athlete's stage as last issued by the server.
type Claims struct {
	Stage Stage  `json:"stage"`
	Sport string `json:"sport,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 stage tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption configures a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithTTL sets how long issued tokens stay valid.
func WithTTL(ttl time.Duration) TokenOption {
	return func(t *TokenIssuer) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenIssuer) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTokenIssuer creates an issuer for secret.
func NewTokenIssuer(secret string, opts ...TokenOption) *TokenIssuer {
	t := &TokenIssuer{secret: []byte(secret), ttl: defaultTokenTTL, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Issue signs a token for subject at stage.
func (t *TokenIssuer) Issue(subject string, stage Stage, sport string) (string, error) {
	now := t.now()
	claims := Claims{
		Stage: stage,
		Sport: sport,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign stage token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature and expiry and returns the claims.
func (t *TokenIssuer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" || !claims.Stage.Valid() {
		return nil, fmt.Errorf("%w: missing subject or stage", ErrInvalidToken)
	}
	return claims, nil
}

// Verify checks a parsed token against the authoritative server stage.
func Verify(claims *Claims, server Stage) error {
	if claims == nil {
		return ErrInvalidToken
	}
	if claims.Stage != server {
		return fmt.Errorf("%w: token at %s, server at %s", ErrStaleToken, claims.Stage, server)
	}
	return nil
}

// Expired reports whether err is an expired-token failure.
func Expired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
