// Package domain defines domain-level errors for the auth feature.
package domain

import "errors"

// Domain errors for authentication operations.
// These errors represent business logic failures and should be handled appropriately by upper layers.
var (
	// ErrInvalidCredentials indicates that the provided credentials are incorrect.
	// Login returns it for an unknown email and for a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrWeakPassword indicates a password outside the accepted length range.
	// Passwords over 72 bytes are rejected here because bcrypt cannot hash them.
	ErrWeakPassword = errors.New("invalid password length")
)
