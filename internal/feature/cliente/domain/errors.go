// Package domain defines domain-level errors for the cliente feature.
package domain

import "errors"

var (
	// ErrClienteNotFound indicates that no Cliente with the given ID is owned by the caller.
	// Records owned by someone else are reported the same way.
	ErrClienteNotFound = errors.New("cliente not found")

	// ErrInvalidCliente indicates that required fields are missing.
	ErrInvalidCliente = errors.New("invalid cliente")

	// ErrEmptyPatch indicates an update request that changes nothing.
	ErrEmptyPatch = errors.New("no fields to update")
)
