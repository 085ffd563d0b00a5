// Package token implements the signed-token primitive used by the social
// login flow: compact, expiring, tamper-evident tokens carrying a small
// claims payload, plus helpers for opaque session identifiers.
package token

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned by Verify when the token is malformed,
// tampered with, expired, or was issued for a different purpose.
var ErrInvalidToken = errors.New("invalid token")

// minSecretLen guards against HMAC keys short enough to brute-force.
const minSecretLen = 32

// registered claim keys managed by the service itself; application
// claims may not use them.
var reservedClaims = map[string]struct{}{
	"iss": {}, "aud": {}, "exp": {}, "iat": {}, "nbf": {},
}

// Service issues and verifies HMAC-signed tokens. It is a pure
// cryptographic primitive: no I/O, no mutable state beyond the secret,
// safe for concurrent use.
type Service struct {
	secret []byte
	issuer string

	now func() time.Time
}

// NewService creates a token service. The secret is process-wide and
// must be at least 32 bytes.
func NewService(secret []byte, issuer string) (*Service, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("token secret must be at least %d bytes, got %d", minSecretLen, len(secret))
	}
	if issuer == "" {
		return nil, errors.New("token issuer is required")
	}
	return &Service{secret: secret, issuer: issuer, now: time.Now}, nil
}

// Issue signs a token for the given purpose carrying the given claims,
// expiring at now+ttl. The purpose travels in the audience claim and is
// checked again on Verify, so a token minted for one step of the flow
// cannot be replayed into another.
func (s *Service) Issue(purpose string, claims map[string]any, ttl time.Duration) (string, error) {
	if purpose == "" {
		return "", errors.New("token purpose is required")
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}

	now := s.now().UTC()
	mc := jwtv5.MapClaims{
		"iss": s.issuer,
		"aud": purpose,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	for k, v := range claims {
		if _, reserved := reservedClaims[k]; reserved {
			return "", fmt.Errorf("claim key %q is reserved", k)
		}
		mc[k] = v
	}

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, mc)
	return tk.SignedString(s.secret)
}

// Verify parses the token, checks signature, expiry and purpose, and
// returns the application claims. Numeric claim values come back as
// float64 (JSON semantics). Any failure yields ErrInvalidToken.
func (s *Service) Verify(tokenString, purpose string) (map[string]any, error) {
	tk, err := jwtv5.Parse(tokenString,
		func(*jwtv5.Token) (any, error) { return s.secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithIssuer(s.issuer),
		jwtv5.WithAudience(purpose),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(func() time.Time { return s.now() }),
	)
	if err != nil || !tk.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mc, ok := tk.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	claims := make(map[string]any, len(mc))
	for k, v := range mc {
		if _, reserved := reservedClaims[k]; reserved {
			continue
		}
		claims[k] = v
	}
	return claims, nil
}
