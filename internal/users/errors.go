package users

import "errors"

var (
	ErrNotFound = errors.New("user not found")

	// ErrEmailTaken indicates another account already uses the email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrInvalidInput = errors.New("invalid input")
)
