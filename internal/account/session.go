// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package account

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	DefaultSessionTTL = 24 * time.Hour
	sessionIssuer     = "accountd"
	minSecretLength   = 16
)

// SessionIssuer mints and verifies signed session tokens. Tokens are
// stateless HS256 JWTs whose subject is the user ID.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// SessionOption configures a SessionIssuer.
type SessionOption func(*SessionIssuer)

// WithSessionTTL overrides the token lifetime.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(s *SessionIssuer) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionIssuer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSessionIssuer creates a SessionIssuer signing with secret.
func NewSessionIssuer(secret string, opts ...SessionOption) (*SessionIssuer, error) {
	if len(secret) < minSecretLength {
		return nil, oops.Code("SESSION_INVALID_SECRET").
			With("min_length", minSecretLength).
			Errorf("session secret must be at least %d bytes", minSecretLength)
	}
	s := &SessionIssuer{
		secret: []byte(secret),
		ttl:    DefaultSessionTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the configured token lifetime.
func (s *SessionIssuer) TTL() time.Duration {
	return s.ttl
}

// Issue mints a token for userID. Returns the token and its expiry.
func (s *SessionIssuer) Issue(userID ulid.ULID) (string, time.Time, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return "", time.Time{}, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    sessionIssuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("SESSION_SIGN_FAILED").Wrap(err)
	}
	return signed, expiresAt, nil
}

// Verify checks the token signature and expiry and returns the user ID.
func (s *SessionIssuer) Verify(token string) (ulid.ULID, error) {
	if token == "" {
		return ulid.ULID{}, oops.Code("SESSION_TOKEN_EMPTY").Wrapf(ErrTokenMalformed, "session token cannot be empty")
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return ulid.ULID{}, oops.Code("SESSION_EXPIRED").Wrap(ErrTokenExpired)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return ulid.ULID{}, oops.Code("SESSION_BAD_SIGNATURE").Wrap(ErrTokenInvalidSignature)
		default:
			return ulid.ULID{}, oops.Code("SESSION_MALFORMED").Wrapf(ErrTokenMalformed, "%v", err)
		}
	}

	userID, err := ulid.Parse(claims.Subject)
	if err != nil {
		return ulid.ULID{}, oops.Code("SESSION_MALFORMED").
			With("subject", claims.Subject).
			Wrapf(ErrTokenMalformed, "invalid subject")
	}
	return userID, nil
}
