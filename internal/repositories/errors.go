package repositories

import "errors"

var (
	// ErrRecordNotFound is returned when a lookup for a single record matches nothing.
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned when an insert violates a unique constraint.
	ErrDuplicateKey = errors.New("duplicate key")
)
