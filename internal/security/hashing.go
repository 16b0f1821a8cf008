package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt cost bounds accepted for BCRYPT_COST. DefaultCost applies when the setting is unset.
const (
	MinCost     = bcrypt.MinCost
	MaxCost     = bcrypt.MaxCost
	DefaultCost = 12
)

// Member password bounds. bcrypt only reads the first 72 bytes, so longer passwords are refused
// instead of being silently truncated.
const (
	MinPasswordLength = 6
	MaxPasswordBytes  = 72
)

// ErrPasswordPolicy is returned by HashPassword for passwords outside the length bounds.
var ErrPasswordPolicy = errors.New("password does not meet policy")

// Hasher hashes and verifies member passwords (users.password_hash) using bcrypt.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with cost clamped to [MinCost, MaxCost]; zero means DefaultCost.
func NewHasher(cost int) *Hasher {
	switch {
	case cost == 0:
		cost = DefaultCost
	case cost < MinCost:
		cost = MinCost
	case cost > MaxCost:
		cost = MaxCost
	}
	return &Hasher{Cost: cost}
}

// HashPassword checks a member password against the policy and hashes it.
func (h *Hasher) HashPassword(password string) (string, error) {
	if n := len([]rune(password)); n < MinPasswordLength {
		return "", fmt.Errorf("%w: at least %d characters", ErrPasswordPolicy, MinPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return "", fmt.Errorf("%w: at most %d bytes", ErrPasswordPolicy, MaxPasswordBytes)
	}
	return h.Hash([]byte(password))
}

// Hash produces a bcrypt hash of password without policy checks.
func (h *Hasher) Hash(password []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(password, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare returns nil when password matches hash; bcrypt.ErrMismatchedHashAndPassword otherwise.
func (h *Hasher) Compare(hash string, password []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), password)
}
