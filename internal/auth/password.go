package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const DefaultBcryptCost = 12

// MaxPasswordBytes is the longest input bcrypt reads. Longer inputs would be
// silently truncated, so they never verify.
const MaxPasswordBytes = 72

// equalizerPassword only feeds the dummy hash used to keep failure paths as
// slow as a real comparison.
const equalizerPassword = "skillswap-equalizer"

var ErrCorruptCredential = errors.New("stored credential is unreadable")

// PasswordHasher turns passwords into bcrypt credentials. The output embeds
// algorithm version, cost and salt, so verification needs nothing else.
type PasswordHasher struct {
	cost  int
	dummy []byte
}

func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(equalizerPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash equalizer: %w", err)
	}

	return &PasswordHasher{cost: cost, dummy: dummy}, nil
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether password matches credential. A mismatch is not an
// error. An unreadable credential returns false with ErrCorruptCredential
// after spending the same time as a mismatch would. A password longer than
// MaxPasswordBytes never matches.
func (h *PasswordHasher) Verify(password, credential string) (bool, error) {
	if len(password) > MaxPasswordBytes {
		h.Equalize(password[:MaxPasswordBytes])
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(credential), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		h.Equalize(password)
		return false, fmt.Errorf("%w: %v", ErrCorruptCredential, err)
	}
}

// Equalize burns one comparison against the dummy hash.
func (h *PasswordHasher) Equalize(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
}
