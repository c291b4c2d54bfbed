// Package render turns tailored CV content and motivation letters into PDFs
// through HTML templates and a pluggable HTML-to-PDF engine.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"

	"cv-tailor/internal/profile"
	"cv-tailor/internal/shared/telemetry"
)

// ErrRenderFailed indicates the engine produced no usable PDF.
var ErrRenderFailed = errors.New("pdf rendering failed")

// PDFEngine converts a complete HTML document into PDF bytes.
type PDFEngine interface {
	PrintPDF(ctx context.Context, html string) ([]byte, error)
}

// CVInput is the tailored content of one CV.
type CVInput struct {
	Profile       profile.Profile
	Summary       string
	Experience    []profile.Experience
	Keywords      []string
	Template      string
	ReferenceURLs []string
	Language      string
}

// LetterInput is a motivation letter and its sender.
type LetterInput struct {
	Profile profile.Profile
	Letter  string
}

type Renderer struct {
	engine PDFEngine
}

func New(engine PDFEngine) *Renderer {
	return &Renderer{engine: engine}
}

type experienceView struct {
	Title       string
	Company     string
	Location    string
	Dates       string
	Description template.HTML
}

type educationView struct {
	School      string
	Degree      string
	Field       string
	Dates       string
	Description string
}

type certificationView struct {
	Name      string
	Authority string
	Date      string
}

type cvView struct {
	Lang           string
	Name           string
	Headline       string
	Email          string
	Phone          string
	Address        string
	LinkedInURL    string
	Photo          template.URL
	Summary        template.HTML
	Experience     []experienceView
	Education      []educationView
	Skills         []string
	Certifications []certificationView
	Languages      []string
	Keywords       []string
	ReferenceURLs  []string
}

type letterView struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	Paragraphs []string
}

// RenderCVHTML executes the selected CV template.
func (r *Renderer) RenderCVHTML(in CVInput) (string, error) {
	p := in.Profile
	view := cvView{
		Lang:          langOrDefault(in.Language),
		Name:          StripTags(p.FullName),
		Headline:      StripTags(p.Headline),
		Email:         StripTags(p.Email),
		Phone:         StripTags(p.Phone),
		Address:       StripTags(p.Address),
		LinkedInURL:   StripTags(p.LinkedInURL),
		Photo:         template.URL(PhotoDataURL(p.PhotoBase64)),
		Summary:       Emphasize(in.Summary, in.Keywords),
		Keywords:      in.Keywords,
		ReferenceURLs: referenceURLs(in.ReferenceURLs),
	}
	for _, e := range in.Experience {
		view.Experience = append(view.Experience, experienceView{
			Title:       StripTags(e.Title),
			Company:     StripTags(e.Company),
			Location:    StripTags(e.Location),
			Dates:       dateRange(StripTags(e.StartDate), StripTags(e.EndDate), "Present"),
			Description: Emphasize(e.Description, in.Keywords),
		})
	}
	for _, e := range p.Education {
		view.Education = append(view.Education, educationView{
			School:      StripTags(e.School),
			Degree:      StripTags(e.Degree),
			Field:       StripTags(e.Field),
			Dates:       dateRange(StripTags(e.StartDate), StripTags(e.EndDate), ""),
			Description: StripTags(e.Description),
		})
	}
	for _, s := range p.Skills {
		if s = StripTags(s); s != "" {
			view.Skills = append(view.Skills, s)
		}
	}
	for _, c := range p.Certifications {
		view.Certifications = append(view.Certifications, certificationView{
			Name:      StripTags(c.Name),
			Authority: StripTags(c.Authority),
			Date:      StripTags(c.Date),
		})
	}
	for _, l := range p.Languages {
		if l = StripTags(l); l != "" {
			view.Languages = append(view.Languages, l)
		}
	}

	return execute(ResolveTemplate(in.Template), view)
}

// RenderLetterHTML executes the motivation letter template.
func (r *Renderer) RenderLetterHTML(in LetterInput) (string, error) {
	view := letterView{
		Name:       StripTags(in.Profile.FullName),
		Email:      StripTags(in.Profile.Email),
		Phone:      StripTags(in.Profile.Phone),
		Address:    StripTags(in.Profile.Address),
		Paragraphs: paragraphs(StripTags(in.Letter)),
	}
	return execute(templateLetter, view)
}

// RenderCV produces the CV PDF.
func (r *Renderer) RenderCV(ctx context.Context, in CVInput) ([]byte, error) {
	doc, err := r.RenderCVHTML(in)
	if err != nil {
		return nil, err
	}
	return r.print(ctx, "cv", doc)
}

// RenderLetter produces the motivation letter PDF.
func (r *Renderer) RenderLetter(ctx context.Context, in LetterInput) ([]byte, error) {
	doc, err := r.RenderLetterHTML(in)
	if err != nil {
		return nil, err
	}
	return r.print(ctx, "letter", doc)
}

func (r *Renderer) print(ctx context.Context, kind string, doc string) ([]byte, error) {
	start := time.Now()
	pdf, err := r.engine.PrintPDF(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, kind, err)
	}
	if len(pdf) == 0 || !bytes.HasPrefix(pdf, []byte("%PDF")) {
		return nil, fmt.Errorf("%w: %s: engine returned %d bytes without a PDF header", ErrRenderFailed, kind, len(pdf))
	}
	telemetry.Info("render.done", map[string]any{
		"kind":       kind,
		"bytes":      len(pdf),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return pdf, nil
}

func execute(name string, data any) (string, error) {
	tpl, ok := templates[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", name, err)
	}
	return buf.String(), nil
}

func dateRange(start, end, openEnd string) string {
	if end == "" {
		end = openEnd
	}
	switch {
	case start == "" && end == "":
		return ""
	case start == "":
		return end
	case end == "":
		return start
	default:
		return start + " - " + end
	}
}

var blankLines = regexp.MustCompile(`\n\s*\n`)

func paragraphs(letter string) []string {
	letter = strings.ReplaceAll(letter, "\r\n", "\n")
	parts := blankLines.Split(letter, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func langOrDefault(code string) string {
	switch code = strings.ToLower(strings.TrimSpace(code)); code {
	case "de", "fr", "en":
		return code
	default:
		return "en"
	}
}
