// Package normalize converts imported candidate documents (JSON exports, PDFs,
// scraped profile pages) into the canonical profile.Profile.
//
// Each input family has its own strategy; strategies share no state and always
// return a fully shaped profile. Only unreadable input is an error.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"cv-tailor/internal/llm"
	"cv-tailor/internal/profile"
)

// Format names the declared input family.
type Format string

const (
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

var (
	// ErrInputFormat indicates the document could not be decoded at all.
	ErrInputFormat = errors.New("unreadable document")

	// ErrExtractionEmpty indicates the document yielded no usable text.
	ErrExtractionEmpty = errors.New("document appears empty or unreadable")

	// ErrUnsupportedFormat indicates a file type outside the JSON and PDF families.
	ErrUnsupportedFormat = errors.New("unsupported file type")
)

// Normalizer dispatches raw documents to the matching strategy.
type Normalizer struct {
	// LLM is optional; when configured, PDF text is structured by the model
	// before falling back to heuristics.
	LLM llm.Completer
}

// New constructs a Normalizer. c may be nil.
func New(c llm.Completer) *Normalizer {
	return &Normalizer{LLM: c}
}

// FormatFromFileName maps an uploaded file name to its Format. Uploads are
// JSON or PDF only; scraped HTML arrives through NormalizeHTML.
func FormatFromFileName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".json":
		return FormatJSON, nil
	case ".pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// Normalize converts data to a Profile using the strategy for format.
func (n *Normalizer) Normalize(ctx context.Context, data []byte, format Format) (profile.Profile, error) {
	if err := ctx.Err(); err != nil {
		return profile.Profile{}, err
	}
	switch format {
	case FormatJSON:
		return NormalizeJSON(data)
	case FormatPDF:
		return n.NormalizePDF(ctx, data)
	case FormatHTML:
		return NormalizeHTML(string(data), "")
	default:
		return profile.Profile{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
