package store

import "errors"

var (
	// ErrNotFound is returned when a referenced borrower, loan or payment id
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an operation would break a referential
	// invariant, such as deleting a borrower that still has unpaid loans.
	ErrConflict = errors.New("conflict")

	// ErrValidation is returned for malformed input: non-positive amounts,
	// missing required fields, incomplete import payloads.
	ErrValidation = errors.New("validation error")
)
