package generateddocs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"cv-tailor/internal/shared/storage/object"
	"cv-tailor/internal/shared/telemetry"
)

// Kind selects one of the two generated documents.
type Kind string

const (
	KindCV     Kind = "cv"
	KindLetter Kind = "letter"
)

const (
	jobDescriptionMax = 2000
	pdfContentType    = "application/pdf"
	defaultListLimit  = 20
)

// Artifacts are the inputs for recording one generation.
type Artifacts struct {
	SessionID      string
	UserID         string
	JobDescription string
	Language       string
	Template       string
	CVPDF          []byte
	LetterPDF      []byte
}

// Service keeps durable copies of generated PDFs and their history rows.
type Service struct {
	Repo  Repo
	Store object.ObjectStore
	Now   func() time.Time
}

// Record stores whichever PDFs are present and inserts the history row.
func (s *Service) Record(ctx context.Context, a Artifacts) (GenerationRecord, error) {
	if a.SessionID == "" || a.UserID == "" {
		return GenerationRecord{}, ErrInvalidInput
	}
	if s.Repo == nil || s.Store == nil {
		return GenerationRecord{}, errors.New("missing dependencies")
	}

	rec := GenerationRecord{
		ID:             uuid.NewString(),
		SessionID:      a.SessionID,
		UserID:         a.UserID,
		CreatedAt:      s.now(),
		JobDescription: truncateRunes(strings.TrimSpace(a.JobDescription), jobDescriptionMax),
		Language:       a.Language,
		Template:       a.Template,
	}

	if len(a.CVPDF) > 0 {
		key := StorageKey(a.SessionID, KindCV)
		if _, err := s.Store.SaveWithKey(ctx, key, pdfContentType, bytes.NewReader(a.CVPDF)); err != nil {
			return GenerationRecord{}, fmt.Errorf("store cv pdf: %w", err)
		}
		rec.CVKey = key
	}
	if len(a.LetterPDF) > 0 {
		key := StorageKey(a.SessionID, KindLetter)
		if _, err := s.Store.SaveWithKey(ctx, key, pdfContentType, bytes.NewReader(a.LetterPDF)); err != nil {
			return GenerationRecord{}, fmt.Errorf("store letter pdf: %w", err)
		}
		rec.LetterKey = key
	}

	if err := s.Repo.Create(ctx, rec); err != nil {
		return GenerationRecord{}, err
	}
	return rec, nil
}

// Open returns the stored PDF for a session owned by userID.
// Records owned by another user are reported as ErrNotFound.
func (s *Service) Open(ctx context.Context, userID, sessionID string, kind Kind) ([]byte, error) {
	if userID == "" || sessionID == "" {
		return nil, ErrInvalidInput
	}
	rec, err := s.Repo.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, ErrNotFound
	}

	key := rec.CVKey
	if kind == KindLetter {
		key = rec.LetterKey
	}
	if key == "" {
		return nil, ErrNotFound
	}

	r, err := s.Store.Open(ctx, key)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// List returns a user's generation history, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]GenerationRecord, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.Repo.ListByUser(ctx, userID, limit, 0)
}

// DeleteUser removes every stored PDF and history row owned by userID.
func (s *Service) DeleteUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrInvalidInput
	}
	for offset := 0; ; offset += maxListLimit {
		recs, err := s.Repo.ListByUser(ctx, userID, maxListLimit, offset)
		if err != nil {
			return 0, err
		}
		for _, rec := range recs {
			for _, key := range []string{rec.CVKey, rec.LetterKey} {
				if key == "" {
					continue
				}
				if err := s.Store.Delete(ctx, key); err != nil {
					telemetry.Error("generations.delete_object_failed", map[string]any{
						"key":   key,
						"error": err.Error(),
					})
				}
			}
		}
		if len(recs) < maxListLimit {
			break
		}
	}
	return s.Repo.DeleteByUser(ctx, userID)
}

// Reassign moves guest history to a registered account.
func (s *Service) Reassign(ctx context.Context, fromUserID, toUserID string) (int, error) {
	if fromUserID == "" || toUserID == "" {
		return 0, ErrInvalidInput
	}
	return s.Repo.Reassign(ctx, fromUserID, toUserID)
}

// StorageKey is the durable object key for a session document.
func StorageKey(sessionID string, kind Kind) string {
	return "generated/" + sessionID + "_" + string(kind) + ".pdf"
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
