package tailor

import (
	_ "embed"
	"strings"
	"text/template"
)

var (
	//go:embed prompts/system.txt
	systemPromptText string
	//go:embed prompts/user.txt
	userPromptText string

	systemPrompt = template.Must(template.New("system").Parse(systemPromptText))
	userPrompt   = template.Must(template.New("user").Parse(userPromptText))
)

type promptData struct {
	Language          string
	Profile           string
	AdditionalContext string
	JobText           string
}

func buildPrompts(in Input) (system string, user string, err error) {
	profileCtx := ProfileContext(in.Profile)
	if s := strings.TrimSpace(in.PersonalSummary); s != "" {
		profileCtx += "\n\nAdditional personal summary from the candidate (use this to enrich the CV summary):\n" + s
	}
	data := promptData{
		Language:          LanguageName(in.Language),
		Profile:           profileCtx,
		AdditionalContext: strings.TrimSpace(in.AdditionalContext),
		JobText:           strings.TrimSpace(in.JobText),
	}

	var sb, ub strings.Builder
	if err := systemPrompt.Execute(&sb, data); err != nil {
		return "", "", err
	}
	if err := userPrompt.Execute(&ub, data); err != nil {
		return "", "", err
	}
	return sb.String(), ub.String(), nil
}
