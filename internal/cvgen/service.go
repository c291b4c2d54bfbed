// Package cvgen runs one CV generation end to end: it resolves the job text and
// reference pages, tailors the profile, renders both PDFs and keeps the result
// in a session.
package cvgen

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cv-tailor/internal/fetch"
	"cv-tailor/internal/generateddocs"
	"cv-tailor/internal/profile"
	"cv-tailor/internal/render"
	"cv-tailor/internal/sessions"
	"cv-tailor/internal/shared/metrics"
	"cv-tailor/internal/shared/telemetry"
	"cv-tailor/internal/tailor"
)

const (
	maxContextChars = 8000
	defaultLanguage = "en"
)

// Tailorer rewrites a profile for a job.
type Tailorer interface {
	Configured() bool
	Tailor(ctx context.Context, in tailor.Input) tailor.Result
}

// Fetcher resolves URLs to readable text. Failures yield "".
type Fetcher interface {
	FetchText(ctx context.Context, url string) string
	FetchMany(ctx context.Context, urls []string) map[string]string
}

// Renderer produces the two PDFs.
type Renderer interface {
	RenderCV(ctx context.Context, in render.CVInput) ([]byte, error)
	RenderLetter(ctx context.Context, in render.LetterInput) ([]byte, error)
}

// Archive keeps durable copies of generated PDFs.
type Archive interface {
	Record(ctx context.Context, a generateddocs.Artifacts) (generateddocs.GenerationRecord, error)
	Open(ctx context.Context, userID, sessionID string, kind generateddocs.Kind) ([]byte, error)
}

// Request is the input of one generation.
type Request struct {
	Profile         profile.Profile
	JobDescription  string
	PersonalSummary string
	AdditionalURLs  []string
	// AdditionalURLsContent holds text the client already fetched, keyed by URL.
	// When present it replaces fetching AdditionalURLs.
	AdditionalURLsContent map[string]string
	Language              string
	Template              string
}

// Result is what the caller sees after a generation.
type Result struct {
	SessionID          string               `json:"session_id"`
	TailoredSummary    string               `json:"tailored_summary"`
	TailoredExperience []profile.Experience `json:"tailored_experience"`
	MotivationLetter   string               `json:"motivation_letter"`
	Keywords           []string             `json:"keywords"`
	HasCVPDF           bool                 `json:"has_cv_pdf"`
	HasLetterPDF       bool                 `json:"has_letter_pdf"`
}

// Service orchestrates generation. Archive is optional.
type Service struct {
	Tailor   Tailorer
	Fetcher  Fetcher
	Renderer Renderer
	Sessions sessions.Store
	Archive  Archive
}

// Configured reports whether generation can run at all.
func (s *Service) Configured() bool {
	return s.Tailor != nil && s.Tailor.Configured()
}

// Generate tailors the profile, renders the PDFs and stores the session.
// Rendering failures leave the PDF slot empty and do not fail the request.
func (s *Service) Generate(ctx context.Context, userID string, req Request) (Result, error) {
	jobInput := strings.TrimSpace(req.JobDescription)
	if jobInput == "" {
		return Result{}, fmt.Errorf("%w: job description is required", ErrInvalidInput)
	}
	if !s.Configured() {
		return Result{}, ErrAIUnavailable
	}

	start := time.Now()
	metrics.IncGenerationStarted()

	jobText := jobInput
	if fetch.IsURL(jobInput) {
		if fetched := strings.TrimSpace(s.Fetcher.FetchText(ctx, jobInput)); fetched != "" {
			jobText = fetched
		}
	}

	refURLs, additional := s.additionalContext(ctx, req)
	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		lang = defaultLanguage
	}
	tmpl := render.ResolveTemplate(req.Template)

	tailored := s.Tailor.Tailor(ctx, tailor.Input{
		Profile:           req.Profile,
		JobText:           jobText,
		PersonalSummary:   req.PersonalSummary,
		AdditionalContext: additional,
		Language:          lang,
	})

	id, err := s.Sessions.Create(ctx, sessions.Session{
		UserID:             userID,
		Profile:            req.Profile,
		TailoredSummary:    tailored.Summary,
		TailoredExperience: tailored.Experience,
		MotivationLetter:   tailored.Letter,
		Keywords:           tailored.Keywords,
		JobDescription:     jobText,
		Language:           lang,
		Template:           tmpl,
	})
	if err != nil {
		metrics.IncGenerationFailed()
		return Result{}, fmt.Errorf("create session: %w", err)
	}

	res := Result{
		SessionID:          id,
		TailoredSummary:    tailored.Summary,
		TailoredExperience: tailored.Experience,
		MotivationLetter:   tailored.Letter,
		Keywords:           tailored.Keywords,
	}

	cvPDF, err := s.Renderer.RenderCV(ctx, render.CVInput{
		Profile:       req.Profile,
		Summary:       tailored.Summary,
		Experience:    tailored.Experience,
		Keywords:      tailored.Keywords,
		Template:      tmpl,
		ReferenceURLs: refURLs,
		Language:      lang,
	})
	if err != nil {
		s.renderFailed("cv", id, err)
		cvPDF = nil
	} else if err := s.Sessions.AttachCV(ctx, id, cvPDF); err != nil {
		s.renderFailed("cv", id, err)
		cvPDF = nil
	}
	res.HasCVPDF = len(cvPDF) > 0

	var letterPDF []byte
	if strings.TrimSpace(tailored.Letter) != "" {
		letterPDF, err = s.Renderer.RenderLetter(ctx, render.LetterInput{
			Profile: req.Profile,
			Letter:  tailored.Letter,
		})
		if err != nil {
			s.renderFailed("letter", id, err)
			letterPDF = nil
		} else if err := s.Sessions.AttachLetter(ctx, id, letterPDF); err != nil {
			s.renderFailed("letter", id, err)
			letterPDF = nil
		}
	}
	res.HasLetterPDF = len(letterPDF) > 0

	if s.Archive != nil && (res.HasCVPDF || res.HasLetterPDF) {
		if _, err := s.Archive.Record(ctx, generateddocs.Artifacts{
			SessionID:      id,
			UserID:         userID,
			JobDescription: jobText,
			Language:       lang,
			Template:       tmpl,
			CVPDF:          cvPDF,
			LetterPDF:      letterPDF,
		}); err != nil {
			telemetry.Error("cvgen.archive_failed", map[string]any{
				"session_id": id,
				"error":      err.Error(),
			})
		}
	}

	metrics.IncGenerationCompleted()
	metrics.ObserveGenerationDurationMs(float64(time.Since(start).Milliseconds()))
	telemetry.Info("cvgen.generated", map[string]any{
		"session_id": id,
		"user_id":    userID,
		"cv_pdf":     res.HasCVPDF,
		"letter_pdf": res.HasLetterPDF,
		"references": len(refURLs),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return res, nil
}

// GetSession returns session metadata. Sessions of other users are reported as not found.
func (s *Service) GetSession(ctx context.Context, userID, id string) (sessions.Session, error) {
	sess, err := s.Sessions.Get(ctx, id)
	if err != nil {
		return sessions.Session{}, err
	}
	if !ownedBy(sess, userID) {
		return sessions.Session{}, sessions.ErrNotFound
	}
	return sess, nil
}

// CVPDF returns the CV PDF of a session.
func (s *Service) CVPDF(ctx context.Context, userID, id string) ([]byte, error) {
	return s.pdf(ctx, userID, id, generateddocs.KindCV)
}

// LetterPDF returns the motivation letter PDF of a session.
func (s *Service) LetterPDF(ctx context.Context, userID, id string) ([]byte, error) {
	return s.pdf(ctx, userID, id, generateddocs.KindLetter)
}

func (s *Service) pdf(ctx context.Context, userID, id string, kind generateddocs.Kind) ([]byte, error) {
	sess, err := s.GetSession(ctx, userID, id)
	if err == nil {
		data := sess.CVPDF
		if kind == generateddocs.KindLetter {
			data = sess.LetterPDF
		}
		if len(data) == 0 {
			return nil, ErrPDFNotReady
		}
		return data, nil
	}
	if !errors.Is(err, sessions.ErrNotFound) || s.Archive == nil {
		return nil, err
	}

	data, archErr := s.Archive.Open(ctx, userID, id, kind)
	if archErr != nil {
		if !errors.Is(archErr, generateddocs.ErrNotFound) {
			telemetry.Error("cvgen.archive_open_failed", map[string]any{
				"session_id": id,
				"kind":       string(kind),
				"error":      archErr.Error(),
			})
		}
		return nil, sessions.ErrNotFound
	}
	return data, nil
}

// additionalContext returns every valid reference URL and the concatenated
// text of the pages that yielded content. A URL stays a reference even when
// its fetch came back empty.
func (s *Service) additionalContext(ctx context.Context, req Request) ([]string, string) {
	refs := fetch.ValidURLs(req.AdditionalURLs)
	var (
		urls  []string
		texts map[string]string
	)
	if len(req.AdditionalURLsContent) > 0 {
		urls = orderedContentKeys(req.AdditionalURLs, req.AdditionalURLsContent)
		texts = req.AdditionalURLsContent
		refs = fetch.ValidURLs(append(refs, urls...))
	} else {
		urls = refs
		if len(urls) > 0 {
			texts = s.Fetcher.FetchMany(ctx, urls)
		}
	}

	blocks := make([]string, 0, len(urls))
	for _, u := range urls {
		text := strings.TrimSpace(texts[u])
		if text == "" {
			continue
		}
		blocks = append(blocks, "Source: "+u+"\n"+truncateRunes(text, maxContextChars))
	}
	return refs, strings.Join(blocks, "\n\n")
}

// orderedContentKeys lists the http(s) keys of content, following the order of
// listed first and then the remaining keys sorted, capped at fetch.MaxURLs.
func orderedContentKeys(listed []string, content map[string]string) []string {
	ordered := make([]string, 0, len(content))
	seen := make(map[string]struct{}, len(content))
	for _, u := range listed {
		u = strings.TrimSpace(u)
		if _, ok := content[u]; ok {
			if _, dup := seen[u]; !dup {
				seen[u] = struct{}{}
				ordered = append(ordered, u)
			}
		}
	}
	rest := make([]string, 0, len(content))
	for u := range content {
		if _, ok := seen[u]; !ok {
			rest = append(rest, u)
		}
	}
	sort.Strings(rest)
	return fetch.ValidURLs(append(ordered, rest...))
}

func (s *Service) renderFailed(kind, sessionID string, err error) {
	metrics.IncRenderFailed()
	telemetry.Error("render.failed", map[string]any{
		"kind":       kind,
		"session_id": sessionID,
		"error":      err.Error(),
	})
}

func ownedBy(sess sessions.Session, userID string) bool {
	return sess.UserID == "" || sess.UserID == userID
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
