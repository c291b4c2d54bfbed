// Package tailor rewrites a candidate profile against a job description with a
// completion model and drafts a matching motivation letter.
package tailor

import (
	"context"
	"time"

	"cv-tailor/internal/llm"
	"cv-tailor/internal/profile"
	"cv-tailor/internal/shared/telemetry"
)

const temperature = 0.5

// Input is everything the model sees for one tailoring request.
type Input struct {
	Profile           profile.Profile
	JobText           string
	PersonalSummary   string
	AdditionalContext string
	Language          string
}

// Result holds the tailored content. Factual fields the model omitted are
// filled from the source profile.
type Result struct {
	Summary    string
	Experience []profile.Experience
	Letter     string
	Keywords   []string
}

// Engine issues the tailoring request and interprets the reply.
type Engine struct {
	llm llm.Completer
}

// New constructs an Engine.
func New(c llm.Completer) *Engine {
	return &Engine{llm: c}
}

// Configured reports whether a real completion provider is wired in.
func (e *Engine) Configured() bool {
	return llm.Configured(e.llm)
}

// Tailor never fails: unusable or missing model output degrades to the source profile.
func (e *Engine) Tailor(ctx context.Context, in Input) Result {
	if !llm.Configured(e.llm) {
		return fallbackResult("", in.Profile)
	}
	system, user, err := buildPrompts(in)
	if err != nil {
		telemetry.Error("tailor.prompt_failed", map[string]any{"error": err.Error()})
		return fallbackResult("", in.Profile)
	}

	start := time.Now()
	raw, err := e.llm.Complete(ctx, llm.Request{
		System:      system,
		User:        user,
		Temperature: temperature,
		JSON:        true,
	})
	if err != nil {
		telemetry.Error("tailor.completion_failed", map[string]any{
			"error":      err.Error(),
			"durationMs": time.Since(start).Milliseconds(),
		})
		return fallbackResult("", in.Profile)
	}

	res, ok := parseResponse(raw, in.Profile)
	telemetry.Info("tailor.done", map[string]any{
		"durationMs": time.Since(start).Milliseconds(),
		"parsed":     ok,
		"keywords":   len(res.Keywords),
		"letter":     res.Letter != "",
	})
	return res
}
