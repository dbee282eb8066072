// Package password hashes and verifies user passwords with bcrypt.
//
// Input is truncated to MaxPasswordBytes before hashing and verification,
// so bytes past the cutoff never influence the digest.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the bcrypt input limit.
const MaxPasswordBytes = 72

// Hasher produces salted bcrypt digests at a fixed cost.
type Hasher struct {
	cost int
}

// InitOption configures a Hasher.
type InitOption func(*Hasher)

// WithCost overrides bcrypt.DefaultCost.
func WithCost(cost int) InitOption {
	return func(h *Hasher) {
		h.cost = cost
	}
}

// New returns a Hasher using bcrypt.DefaultCost unless overridden.
func New(optionsProto ...InitOption) *Hasher {
	h := &Hasher{
		cost: bcrypt.DefaultCost,
	}
	for _, protoOption := range optionsProto {
		protoOption(h)
	}

	return h
}

// Hash returns a bcrypt digest of the truncated plaintext. A fresh salt is
// generated on every call.
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(truncate(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("in internal/password/password.go/Hash(): error while `bcrypt.GenerateFromPassword()` calling: %w", err)
	}

	return string(digest), nil
}

// Verify reports whether plaintext, truncated the same way as in Hash,
// matches digest. A malformed digest never matches.
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), truncate(plaintext)) == nil
}

func truncate(plaintext string) []byte {
	b := []byte(plaintext)
	if len(b) > MaxPasswordBytes {
		b = b[:MaxPasswordBytes]
	}

	return b
}
