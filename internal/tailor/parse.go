package tailor

import (
	"encoding/json"
	"fmt"
	"strings"

	"cv-tailor/internal/llm"
	"cv-tailor/internal/profile"
)

const (
	rawSummaryLimit   = 1500
	placeholderLetter = "Please generate a motivation letter based on the CV and job description."
)

// parseResponse interprets model output. ok is false when the reply was not a JSON object.
func parseResponse(raw string, original profile.Profile) (Result, bool) {
	content := llm.StripCodeFences(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(content), &data); err != nil || data == nil {
		return fallbackResult(content, original), false
	}

	res := Result{
		Summary:    original.Summary,
		Experience: mergeExperience(data["tailored_experience"], original.Experience),
		Keywords:   coerceKeywords(data["keywords_to_highlight"]),
	}
	if s, ok := data["tailored_summary"].(string); ok && strings.TrimSpace(s) != "" {
		res.Summary = s
	}
	if s, ok := data["motivation_letter"].(string); ok {
		res.Letter = s
	}
	return res, true
}

// fallbackResult is used when the model reply cannot be used at all.
func fallbackResult(content string, original profile.Profile) Result {
	summary := truncateRunes(strings.TrimSpace(content), rawSummaryLimit)
	if summary == "" {
		summary = original.Summary
	}
	return Result{
		Summary:    summary,
		Experience: copyExperience(original.Experience),
		Letter:     placeholderLetter,
		Keywords:   []string{},
	}
}

// mergeExperience reads the tailored list; factual fields the model omitted are
// taken from the original entry at the same index.
func mergeExperience(v any, original []profile.Experience) []profile.Experience {
	items, ok := v.([]any)
	if !ok {
		return copyExperience(original)
	}
	out := make([]profile.Experience, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return copyExperience(original)
		}
		var base profile.Experience
		if i < len(original) {
			base = original[i]
		}
		out = append(out, profile.Experience{
			Title:       stringOr(obj["title"], base.Title),
			Company:     stringOr(obj["company"], base.Company),
			StartDate:   stringOr(obj["start_date"], base.StartDate),
			EndDate:     stringOr(obj["end_date"], base.EndDate),
			Location:    stringOr(obj["location"], base.Location),
			Description: stringOr(obj["description"], base.Description),
		})
	}
	return out
}

func coerceKeywords(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		var s string
		switch t := item.(type) {
		case string:
			s = t
		case float64:
			s = strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%f", t), "0"), ".")
		default:
			s = fmt.Sprintf("%v", t)
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return def
}

func copyExperience(in []profile.Experience) []profile.Experience {
	out := make([]profile.Experience, len(in))
	copy(out, in)
	return out
}
