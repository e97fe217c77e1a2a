// Package token signs and verifies the compact identity tokens issued at
// login and account creation.
//
// There is no server-side revocation: a password change does not invalidate
// previously issued tokens, they remain valid until natural expiry.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoToken indicates the caller supplied no token at all.
	ErrNoToken = errors.New("token: missing")
	// ErrInvalidToken indicates the token failed signature, algorithm, or
	// expiry validation.
	ErrInvalidToken = errors.New("token: invalid")
)

// Claims are the identity claims embedded in every issued token.
type Claims struct {
	AccountID    string `json:"accountId,omitempty"`
	CredentialID string `json:"credentialId,omitempty"`
	jwt.RegisteredClaims
}

// Codec issues and verifies HS256-signed identity tokens.
type Codec struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewCodec constructs a Codec using the shared signing secret and the
// configured token lifetime.
func NewCodec(secret string, lifetime time.Duration) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret is not configured")
	}
	if lifetime <= 0 {
		return nil, errors.New("token lifetime must be greater than zero")
	}
	return &Codec{
		secret:   []byte(secret),
		lifetime: lifetime,
		now:      time.Now,
	}, nil
}

// Issue signs a time-bounded token for the given account and credential.
func (c *Codec) Issue(accountID, credentialID string) (string, error) {
	if strings.TrimSpace(accountID) == "" {
		return "", errors.New("accountID is required")
	}
	if strings.TrimSpace(credentialID) == "" {
		return "", errors.New("credentialID is required")
	}

	now := c.now().UTC()
	claims := Claims{
		AccountID:    accountID,
		CredentialID: credentialID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// DecodeUnverified best-effort decodes the claims without checking the
// signature or expiry. Malformed input yields empty claims, never an error;
// the authoritative check is Verify.
func (c *Codec) DecodeUnverified(raw string) Claims {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}
	}
	var claims Claims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		return Claims{}
	}
	return claims
}

// Verify checks signature, signing algorithm, and expiry. It returns
// ErrNoToken for an absent token and ErrInvalidToken for everything else
// that fails validation.
func (c *Codec) Verify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrNoToken
	}

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.now().UTC() }))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
