package profile

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the user has no stored profile.
	ErrNotFound = errors.New("profile not found")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")
)

// Repo persists one profile per user. Writes are last-writer-wins.
type Repo interface {
	Upsert(ctx context.Context, stored StoredProfile) error
	GetByUser(ctx context.Context, userID string) (StoredProfile, error)
	DeleteByUser(ctx context.Context, userID string) error
	Reassign(ctx context.Context, fromUserID, toUserID string) (int, error)
}
