// Package onboarding imports candidate profiles from uploads or a LinkedIn URL
// and manages the stored profile and its generation preferences.
package onboarding

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"cv-tailor/internal/fetch"
	"cv-tailor/internal/normalize"
	"cv-tailor/internal/profile"
	"cv-tailor/internal/shared/metrics"
	"cv-tailor/internal/shared/storage/object"
	"cv-tailor/internal/shared/telemetry"
)

// Normalizer converts raw documents into a profile.
type Normalizer interface {
	Normalize(ctx context.Context, data []byte, format normalize.Format) (profile.Profile, error)
}

// ProfilePageFetcher retrieves public LinkedIn profile HTML.
type ProfilePageFetcher interface {
	FetchProfileHTML(ctx context.Context, profileURL string) (string, error)
}

// Service owns profile import and update. Store is optional; when set the raw
// upload is kept next to the profile.
type Service struct {
	Repo       profile.Repo
	Normalizer Normalizer
	LinkedIn   ProfilePageFetcher
	Store      object.ObjectStore
}

// Update carries the editable fields; nil fields are left unchanged.
type Update struct {
	Profile            *profile.Profile `json:"profile"`
	AdditionalURLs     *[]string        `json:"additional_urls"`
	PersonalSummary    *string          `json:"personal_summary"`
	OnboardingComplete *bool            `json:"onboarding_complete"`
}

const maxPersonalSummary = 4000

// Import normalizes an uploaded file and replaces the user's profile with it.
// Preferences of an existing stored profile are kept.
func (s *Service) Import(ctx context.Context, userID, fileName string, data []byte) (profile.StoredProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return profile.StoredProfile{}, profile.ErrInvalidInput
	}
	format, err := normalize.FormatFromFileName(fileName)
	if err != nil {
		return profile.StoredProfile{}, err
	}
	p, err := s.Normalizer.Normalize(ctx, data, format)
	if err != nil {
		return profile.StoredProfile{}, err
	}

	stored, previousKey, err := s.current(ctx, userID)
	if err != nil {
		return profile.StoredProfile{}, err
	}
	stored.Profile = p

	if s.Store != nil {
		key, _, _, err := s.Store.Save(ctx, userID, fileName, bytes.NewReader(data))
		if err != nil {
			return profile.StoredProfile{}, fmt.Errorf("store upload: %w", err)
		}
		stored.SourceKey = key
	}

	if err := s.Repo.Upsert(ctx, stored); err != nil {
		return profile.StoredProfile{}, err
	}
	if previousKey != "" && previousKey != stored.SourceKey {
		s.deleteObject(ctx, previousKey)
	}

	metrics.IncProfileImports()
	telemetry.Info("profile.imported", map[string]any{
		"user_id":    userID,
		"format":     string(format),
		"bytes":      len(data),
		"experience": len(p.Experience),
		"skills":     len(p.Skills),
	})
	return s.Repo.GetByUser(ctx, userID)
}

// ImportURL scrapes a public LinkedIn profile and replaces the user's profile with it.
func (s *Service) ImportURL(ctx context.Context, userID, profileURL string) (profile.StoredProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return profile.StoredProfile{}, profile.ErrInvalidInput
	}
	profileURL = strings.TrimSpace(profileURL)
	html, err := s.LinkedIn.FetchProfileHTML(ctx, profileURL)
	if err != nil {
		return profile.StoredProfile{}, err
	}
	p, err := normalize.NormalizeHTML(html, profileURL)
	if err != nil {
		return profile.StoredProfile{}, err
	}
	if p.LinkedInURL == "" {
		p.LinkedInURL = profileURL
	}

	stored, _, err := s.current(ctx, userID)
	if err != nil {
		return profile.StoredProfile{}, err
	}
	stored.Profile = p
	if err := s.Repo.Upsert(ctx, stored); err != nil {
		return profile.StoredProfile{}, err
	}

	metrics.IncProfileImports()
	telemetry.Info("profile.imported", map[string]any{
		"user_id":    userID,
		"format":     "linkedin",
		"experience": len(p.Experience),
		"skills":     len(p.Skills),
	})
	return s.Repo.GetByUser(ctx, userID)
}

// Get returns the stored profile.
func (s *Service) Get(ctx context.Context, userID string) (profile.StoredProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return profile.StoredProfile{}, profile.ErrInvalidInput
	}
	return s.Repo.GetByUser(ctx, userID)
}

// Update applies the non-nil fields of u, creating the stored profile if needed.
func (s *Service) Update(ctx context.Context, userID string, u Update) (profile.StoredProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return profile.StoredProfile{}, profile.ErrInvalidInput
	}
	stored, _, err := s.current(ctx, userID)
	if err != nil {
		return profile.StoredProfile{}, err
	}

	if u.Profile != nil {
		stored.Profile = u.Profile.Normalize()
	}
	if u.AdditionalURLs != nil {
		urls, err := validateURLs(*u.AdditionalURLs)
		if err != nil {
			return profile.StoredProfile{}, err
		}
		stored.AdditionalURLs = urls
	}
	if u.PersonalSummary != nil {
		summary := strings.TrimSpace(*u.PersonalSummary)
		if len([]rune(summary)) > maxPersonalSummary {
			return profile.StoredProfile{}, fmt.Errorf("%w: personal_summary exceeds %d characters", profile.ErrInvalidInput, maxPersonalSummary)
		}
		stored.PersonalSummary = summary
	}
	if u.OnboardingComplete != nil {
		stored.OnboardingComplete = *u.OnboardingComplete
	}

	if err := s.Repo.Upsert(ctx, stored); err != nil {
		return profile.StoredProfile{}, err
	}
	return s.Repo.GetByUser(ctx, userID)
}

// DeleteByUser removes the stored profile and its uploaded source file.
func (s *Service) DeleteByUser(ctx context.Context, userID string) error {
	stored, err := s.Repo.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil
		}
		return err
	}
	if stored.SourceKey != "" {
		s.deleteObject(ctx, stored.SourceKey)
	}
	return s.Repo.DeleteByUser(ctx, userID)
}

// Reassign moves a guest profile to a registered user.
func (s *Service) Reassign(ctx context.Context, fromUserID, toUserID string) (int, error) {
	return s.Repo.Reassign(ctx, fromUserID, toUserID)
}

// current loads the stored profile or a fresh one, and returns the existing source key.
func (s *Service) current(ctx context.Context, userID string) (profile.StoredProfile, string, error) {
	stored, err := s.Repo.GetByUser(ctx, userID)
	switch {
	case err == nil:
		return stored, stored.SourceKey, nil
	case errors.Is(err, profile.ErrNotFound):
		return profile.StoredProfile{UserID: userID, AdditionalURLs: []string{}}, "", nil
	default:
		return profile.StoredProfile{}, "", err
	}
}

func (s *Service) deleteObject(ctx context.Context, key string) {
	if s.Store == nil {
		return
	}
	if err := s.Store.Delete(ctx, key); err != nil {
		telemetry.Error("profile.delete_upload_failed", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// validateURLs keeps non-empty entries, which must all be http(s) and at most fetch.MaxURLs.
func validateURLs(in []string) ([]string, error) {
	var nonEmpty []string
	for _, u := range in {
		if u = strings.TrimSpace(u); u != "" {
			if !fetch.IsURL(u) {
				return nil, fmt.Errorf("%w: %q is not an http(s) URL", profile.ErrInvalidInput, u)
			}
			nonEmpty = append(nonEmpty, u)
		}
	}
	out := fetch.ValidURLs(nonEmpty)
	if len(out) < len(dedupe(nonEmpty)) {
		return nil, fmt.Errorf("%w: at most %d additional URLs are allowed", profile.ErrInvalidInput, fetch.MaxURLs)
	}
	return out, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
