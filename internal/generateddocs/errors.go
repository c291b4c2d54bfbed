package generateddocs

import "errors"

var (
	// ErrNotFound indicates no record exists for the session, or it belongs to another user.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")
)
