// Package token issues and validates the HS256-signed bearer tokens
// handed out on login. A token carries the username as its subject and
// an expiry; it is signed, not encrypted.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// DefaultLifetime is how long an issued token stays valid.
const DefaultLifetime = 30 * time.Minute

// ErrInvalidToken wraps every validation failure: bad signature,
// malformed structure, unexpected algorithm or expiry.
var ErrInvalidToken = errors.New("invalid token")

// Issuer signs and verifies tokens with a shared secret.
type Issuer struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// New creates an Issuer. A non-positive lifetime falls back to DefaultLifetime.
func New(secret []byte, lifetime time.Duration) *Issuer {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}

	return &Issuer{
		secret:   secret,
		lifetime: lifetime,
		now:      time.Now,
	}
}

// Issue returns a compact signed token for subject.
func (i *Issuer) Issue(subject string) (string, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.lifetime)),
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("in internal/token/token.go/Issue(): error while `token.SignedString()` calling: %w", err)
	}

	return tokenString, nil
}

// Validate checks signature and expiry and returns the subject claim.
// The subject is empty when the token does not carry one.
func (i *Issuer) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
