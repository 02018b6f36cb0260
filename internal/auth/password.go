// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package auth

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost factor for stored password hashes.
const PasswordCost = 12

// MinPasswordLength matches the registration validator.
const MinPasswordLength = 8

// dummyHash is compared against when the account does not exist so that
// unknown usernames take as long to reject as wrong passwords.
var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("auditwire-timing-equalizer"), PasswordCost)
	return hash
})

// HashPassword returns a bcrypt hash of password at PasswordCost.
func HashPassword(password string) ([]byte, error) {
	return HashPasswordWithCost(password, PasswordCost)
}

// HashPasswordWithCost is HashPassword with an explicit bcrypt cost. Costs
// below bcrypt.MinCost fall back to bcrypt.DefaultCost.
func HashPasswordWithCost(password string, cost int) ([]byte, error) {
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters for security", MinPasswordLength)
	}
	// Inputs over 72 bytes are rejected with bcrypt.ErrPasswordTooLong.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// CheckPassword reports whether password matches hash. A nil hash is
// compared against a fixed dummy so the call costs the same either way.
func CheckPassword(hash []byte, password string) bool {
	if hash == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
