// Package session issues and validates signed, time-bounded session tokens.
//
// Tokens are self-contained: subject, issued-at, and expiry, base64url
// encoded with an HMAC-SHA256 signature over the encoded payload (JWT
// HS256). The server keeps no session table, so validation needs only the
// signing key; that statelessness is what lets the gate scale horizontally.
package session

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/authgate/apperr"
)

// Codec issues and verifies session tokens under the current signing key.
// The key sits behind an atomically swappable reference so a reload never
// tears a verification in progress.
type Codec struct {
	key    atomic.Pointer[[]byte]
	ttl    time.Duration
	issuer string

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewCodec creates a Codec from configuration. Bad key material is a
// startup-fatal configuration error.
func NewCodec(cfg Config) (*Codec, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, apperr.Config("%v", err)
	}
	c := &Codec{
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	key := []byte(cfg.Secret)
	c.key.Store(&key)
	return c, nil
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue creates a signed token for the subject with the configured TTL.
func (c *Codec) Issue(subject string) (string, error) {
	return c.IssueTTL(subject, c.ttl)
}

// IssueTTL creates a signed token for the subject with an explicit TTL.
func (c *Codec) IssueTTL(subject string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if c.issuer != "" {
		claims.Issuer = c.issuer
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(*c.key.Load())
	if err != nil {
		return "", apperr.Internal(err)
	}
	return signed, nil
}

// Verify validates a token and returns its subject. Structural or
// signature failures yield a token-malformed error; a good signature past
// its expiry yields a token-expired error, so callers can log "log in
// again" apart from "tampering detected". Both carry a 401 status.
func (c *Codec) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, c.keyFunc, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperr.TokenExpired()
		}
		return "", apperr.TokenMalformed(err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", apperr.TokenMalformed(errors.New("session: missing subject"))
	}
	return claims.Subject, nil
}

// SwapKey atomically installs a new signing key. Tokens issued under the
// old key stop verifying; there is no key ring or grace window.
func (c *Codec) SwapKey(secret []byte) error {
	if len(secret) < minSecretLen {
		return apperr.Config("session key must be at least %d bytes (got: %d)", minSecretLen, len(secret))
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	c.key.Store(&key)
	return nil
}

func (c *Codec) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, errors.New("session: unexpected signing method")
	}
	return *c.key.Load(), nil
}
