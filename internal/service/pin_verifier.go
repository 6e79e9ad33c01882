package service

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PINVerifier checks the shared security PIN against a bcrypt hash.
type PINVerifier struct {
	hash []byte
}

// NewPINVerifier builds a verifier from a bcrypt hash, or hashes plain when
// no hash is configured. With neither, every PIN is rejected.
func NewPINVerifier(plain, hash string) (*PINVerifier, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("invalid pin hash: %w", err)
		}
		return &PINVerifier{hash: []byte(hash)}, nil
	}
	if plain == "" {
		return &PINVerifier{}, nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}
	return &PINVerifier{hash: h}, nil
}

// Configured reports whether a PIN has been set up.
func (v *PINVerifier) Configured() bool {
	return v != nil && len(v.hash) > 0
}

// Verify reports whether pin matches.
func (v *PINVerifier) Verify(pin string) bool {
	if !v.Configured() || pin == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(v.hash, []byte(pin)) == nil
}
