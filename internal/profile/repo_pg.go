package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Upsert replaces the user's profile in place.
func (r *PGRepo) Upsert(ctx context.Context, stored StoredProfile) error {
	profileJSON, err := json.Marshal(stored.Profile.Normalize())
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	urls := stored.AdditionalURLs
	if urls == nil {
		urls = []string{}
	}
	urlsJSON, err := json.Marshal(urls)
	if err != nil {
		return fmt.Errorf("marshal additional urls: %w", err)
	}

	const query = `
INSERT INTO profiles (user_id, profile_json, additional_urls, personal_summary, onboarding_complete, source_key, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
ON CONFLICT (user_id) DO UPDATE SET
  profile_json = EXCLUDED.profile_json,
  additional_urls = EXCLUDED.additional_urls,
  personal_summary = EXCLUDED.personal_summary,
  onboarding_complete = EXCLUDED.onboarding_complete,
  source_key = EXCLUDED.source_key,
  updated_at = now()`
	_, err = r.DB.ExecContext(ctx, query,
		stored.UserID,
		profileJSON,
		urlsJSON,
		stored.PersonalSummary,
		stored.OnboardingComplete,
		sql.NullString{String: stored.SourceKey, Valid: stored.SourceKey != ""},
	)
	return err
}

// GetByUser returns the stored profile for a user.
func (r *PGRepo) GetByUser(ctx context.Context, userID string) (StoredProfile, error) {
	const query = `
SELECT user_id, profile_json, additional_urls, personal_summary, onboarding_complete, source_key, updated_at
FROM profiles
WHERE user_id = $1
LIMIT 1`
	var (
		stored      StoredProfile
		profileJSON []byte
		urlsJSON    []byte
		summary     sql.NullString
		sourceKey   sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&stored.UserID,
		&profileJSON,
		&urlsJSON,
		&summary,
		&stored.OnboardingComplete,
		&sourceKey,
		&stored.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StoredProfile{}, ErrNotFound
		}
		return StoredProfile{}, err
	}
	if err := json.Unmarshal(profileJSON, &stored.Profile); err != nil {
		return StoredProfile{}, fmt.Errorf("decode profile_json: %w", err)
	}
	stored.Profile = stored.Profile.Normalize()
	if len(urlsJSON) > 0 {
		if err := json.Unmarshal(urlsJSON, &stored.AdditionalURLs); err != nil {
			return StoredProfile{}, fmt.Errorf("decode additional_urls: %w", err)
		}
	}
	stored.PersonalSummary = summary.String
	stored.SourceKey = sourceKey.String
	return stored, nil
}

func (r *PGRepo) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID)
	return err
}

// Reassign moves a profile to another user unless the target already has one.
func (r *PGRepo) Reassign(ctx context.Context, fromUserID, toUserID string) (int, error) {
	const query = `
UPDATE profiles SET user_id = $1, updated_at = now()
WHERE user_id = $2 AND NOT EXISTS (SELECT 1 FROM profiles WHERE user_id = $1)`
	res, err := r.DB.ExecContext(ctx, query, toUserID, fromUserID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

var _ Repo = (*PGRepo)(nil)
