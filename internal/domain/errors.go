package domain

import "errors"

var (
	// ErrNotFound is returned by point lookups that match nothing.
	ErrNotFound = errors.New("not found")

	// ErrImmutabilityViolation is returned when a persisted block or stored
	// block would be changed after creation.
	ErrImmutabilityViolation = errors.New("immutability violation")
)
