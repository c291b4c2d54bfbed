package cvgen

import "errors"

var (
	// ErrAIUnavailable indicates no completion provider is configured.
	ErrAIUnavailable = errors.New("AI service not configured")

	// ErrInvalidInput indicates a missing or empty job description.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPDFNotReady indicates the session exists but the requested PDF was not produced.
	ErrPDFNotReady = errors.New("pdf not available for this session")
)
