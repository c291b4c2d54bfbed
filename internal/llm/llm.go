package llm

import (
	"context"
	"errors"
	"strings"
)

// Completer abstracts chat-completion providers used for tailoring and PDF structuring.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is a single-shot completion call.
type Request struct {
	System      string
	User        string
	Temperature float32
	// JSON asks the provider for a JSON object response.
	JSON bool
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("completion service not configured")

// PlaceholderClient stands in when no API key is configured.
type PlaceholderClient struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderClient) Complete(ctx context.Context, req Request) (string, error) {
	_ = ctx
	_ = req
	return "", ErrNotConfigured
}

// Configured reports whether c can reach a real provider.
func Configured(c Completer) bool {
	if c == nil {
		return false
	}
	_, placeholder := c.(PlaceholderClient)
	return !placeholder
}

// StripCodeFences removes a surrounding markdown code fence such as ```json ... ```.
func StripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		lang := strings.TrimSpace(s[:nl])
		if lang == "" || !strings.ContainsAny(lang, "{[\"") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
