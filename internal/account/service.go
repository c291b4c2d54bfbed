// Package account covers whole-account operations that span several stores:
// deleting everything a user owns and moving guest data to a registered user.
package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cv-tailor/internal/shared/telemetry"
	"cv-tailor/internal/users"
)

// ErrInvalidInput indicates missing user ids.
var ErrInvalidInput = errors.New("invalid input")

// ProfileStore is the profile side of account operations.
type ProfileStore interface {
	DeleteByUser(ctx context.Context, userID string) error
	Reassign(ctx context.Context, fromUserID, toUserID string) (int, error)
}

// HistoryStore is the generation history side of account operations.
type HistoryStore interface {
	DeleteUser(ctx context.Context, userID string) (int, error)
	Reassign(ctx context.Context, fromUserID, toUserID string) (int, error)
}

// UserStore removes account rows.
type UserStore interface {
	Delete(ctx context.Context, userID string) error
}

type Service struct {
	Profiles ProfileStore
	History  HistoryStore
	Users    UserStore
	// DB, when set, makes ClaimGuest a single transaction over both tables.
	DB *sql.DB
}

type ClaimResult struct {
	MigratedProfile     bool `json:"migrated_profile"`
	MigratedGenerations int  `json:"migrated_generations"`
}

type DeleteResult struct {
	DeletedGenerations int `json:"deleted_generations"`
}

// DeleteAccount removes generated documents, the stored profile and the user row.
// Guests have no user row; a missing row is not an error.
func (s *Service) DeleteAccount(ctx context.Context, userID string) (DeleteResult, error) {
	if strings.TrimSpace(userID) == "" {
		return DeleteResult{}, ErrInvalidInput
	}

	deleted, err := s.History.DeleteUser(ctx, userID)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete generations: %w", err)
	}
	if err := s.Profiles.DeleteByUser(ctx, userID); err != nil {
		return DeleteResult{}, fmt.Errorf("delete profile: %w", err)
	}
	if s.Users != nil {
		if err := s.Users.Delete(ctx, userID); err != nil && !errors.Is(err, users.ErrNotFound) {
			return DeleteResult{}, fmt.Errorf("delete user: %w", err)
		}
	}

	telemetry.Info("account.deleted", map[string]any{
		"user_id":     userID,
		"generations": deleted,
	})
	return DeleteResult{DeletedGenerations: deleted}, nil
}

// ClaimGuest moves a guest's profile and generation history to authedUserID.
// An existing profile of the registered user is kept.
func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (ClaimResult, error) {
	if strings.TrimSpace(guestUserID) == "" || strings.TrimSpace(authedUserID) == "" {
		return ClaimResult{}, fmt.Errorf("%w: guestUserID and authedUserID are required", ErrInvalidInput)
	}

	if s.DB != nil {
		return claimWithTx(ctx, s.DB, guestUserID, authedUserID)
	}

	profiles, err := s.Profiles.Reassign(ctx, guestUserID, authedUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	generations, err := s.History.Reassign(ctx, guestUserID, authedUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{MigratedProfile: profiles > 0, MigratedGenerations: generations}, nil
}

func claimWithTx(ctx context.Context, db *sql.DB, guestUserID, authedUserID string) (ClaimResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return ClaimResult{}, err
	}
	defer tx.Rollback()

	profileRes, err := tx.ExecContext(ctx, `
UPDATE profiles SET user_id = $1, updated_at = now()
WHERE user_id = $2 AND NOT EXISTS (SELECT 1 FROM profiles WHERE user_id = $1)`, authedUserID, guestUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	profileCount, _ := profileRes.RowsAffected()

	genRes, err := tx.ExecContext(ctx, `UPDATE cv_generations SET user_id = $1 WHERE user_id = $2`, authedUserID, guestUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	genCount, _ := genRes.RowsAffected()

	if err := tx.Commit(); err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{MigratedProfile: profileCount > 0, MigratedGenerations: int(genCount)}, nil
}
