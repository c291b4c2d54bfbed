// Package sessions keeps the short-lived result of one CV generation: the
// tailored content and the rendered PDFs, addressed by an opaque id.
package sessions

import (
	"context"
	"errors"
	"time"

	"cv-tailor/internal/profile"
)

// ErrNotFound indicates the session id is unknown or expired.
var ErrNotFound = errors.New("session not found")

// Session is one generation result. PDF slots start empty and are filled once each.
type Session struct {
	ID                 string               `json:"id"`
	UserID             string               `json:"user_id"`
	CreatedAt          time.Time            `json:"created_at"`
	Profile            profile.Profile      `json:"profile"`
	TailoredSummary    string               `json:"tailored_summary"`
	TailoredExperience []profile.Experience `json:"tailored_experience"`
	MotivationLetter   string               `json:"motivation_letter"`
	Keywords           []string             `json:"keywords"`
	JobDescription     string               `json:"job_description"`
	Language           string               `json:"language"`
	Template           string               `json:"template"`

	CVPDF     []byte `json:"-"`
	LetterPDF []byte `json:"-"`
}

// HasCVPDF reports whether the CV slot is filled.
func (s Session) HasCVPDF() bool { return len(s.CVPDF) > 0 }

// HasLetterPDF reports whether the letter slot is filled.
func (s Session) HasLetterPDF() bool { return len(s.LetterPDF) > 0 }

// Clone returns a deep copy so callers cannot mutate stored state.
func (s Session) Clone() Session {
	out := s
	out.Profile = s.Profile.Clone()
	out.TailoredExperience = append([]profile.Experience(nil), s.TailoredExperience...)
	out.Keywords = append([]string(nil), s.Keywords...)
	out.CVPDF = append([]byte(nil), s.CVPDF...)
	out.LetterPDF = append([]byte(nil), s.LetterPDF...)
	return out
}

// Store persists sessions. Implementations are safe for concurrent use.
type Store interface {
	// Create assigns a fresh id and creation time and returns the id.
	Create(ctx context.Context, s Session) (string, error)
	Get(ctx context.Context, id string) (Session, error)
	AttachCV(ctx context.Context, id string, pdf []byte) error
	AttachLetter(ctx context.Context, id string, pdf []byte) error
	// Sweep removes sessions older than ttl and returns how many were removed.
	Sweep(ctx context.Context, ttl time.Duration) (int, error)
}
