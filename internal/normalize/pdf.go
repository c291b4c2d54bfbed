package normalize

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xeipuuv/gojsonschema"

	"cv-tailor/internal/llm"
	"cv-tailor/internal/profile"
	"cv-tailor/internal/shared/telemetry"
)

const (
	minExtractedText = 30
	maxStructureText = 12000
	structureTemp    = 0.1
)

//go:embed profile_schema.json
var profileSchemaJSON string

var profileSchema = gojsonschema.NewStringLoader(profileSchemaJSON)

const structureSystemPrompt = `You convert CV text into a structured JSON profile.
Return only a JSON object with these keys:
full_name, headline, summary, email, phone, address, linkedin_url,
experience (array of {title, company, start_date, end_date, description, location}),
education (array of {school, degree, field, start_date, end_date, description}),
skills (array of strings), certifications (array of {name, authority, date, url}),
languages (array of strings).
Use empty strings or empty arrays for anything the text does not state. Never invent facts.`

// NormalizePDF extracts text from a PDF and structures it into a Profile.
// When an LLM is configured the model structures the text; any failure there
// falls back to line heuristics.
func (n *Normalizer) NormalizePDF(ctx context.Context, data []byte) (profile.Profile, error) {
	text, err := ExtractPDFText(data)
	if err != nil {
		return profile.Profile{}, err
	}
	return n.structureText(ctx, text), nil
}

// ExtractPDFText runs plain and row-ordered extraction and keeps the longer result.
func ExtractPDFText(data []byte) (string, error) {
	r, err := openPDF(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInputFormat, err)
	}
	plain, _ := plainText(r)
	rows, _ := rowText(r)
	return chooseExtraction(plain, rows)
}

// chooseExtraction picks the longer candidate and rejects text too short to be a CV.
func chooseExtraction(candidates ...string) (string, error) {
	best := ""
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if utf8.RuneCountInString(c) > utf8.RuneCountInString(best) {
			best = c
		}
	}
	if utf8.RuneCountInString(best) < minExtractedText {
		return "", ErrExtractionEmpty
	}
	return best, nil
}

func openPDF(data []byte) (r *pdf.Reader, err error) {
	if len(data) == 0 {
		return nil, errors.New("empty pdf data")
	}
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

func plainText(r *pdf.Reader) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = "", fmt.Errorf("plain extraction: %v", rec)
		}
	}()
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// rowText rebuilds each page line by line, which keeps multi-column layouts readable.
func rowText(r *pdf.Reader) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = "", fmt.Errorf("row extraction: %v", rec)
		}
	}()
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			line := joinRow(row.Content)
			if line != "" {
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
	}
	return b.String(), nil
}

// joinRow concatenates glyph runs, inserting a space where runs are visibly apart.
func joinRow(texts []pdf.Text) string {
	var b strings.Builder
	prevEnd := 0.0
	for i, t := range texts {
		if t.S == "" {
			continue
		}
		if i > 0 && t.X-prevEnd > t.FontSize*0.2 && !strings.HasSuffix(b.String(), " ") {
			b.WriteByte(' ')
		}
		b.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	return strings.TrimSpace(spaceRun.ReplaceAllString(b.String(), " "))
}

func (n *Normalizer) structureText(ctx context.Context, text string) profile.Profile {
	if !llm.Configured(n.LLM) {
		return heuristicProfile(text)
	}
	p, err := n.structureWithLLM(ctx, text)
	if err != nil {
		telemetry.Info("normalize.ai_fallback", map[string]any{"error": err.Error()})
		return heuristicProfile(text)
	}
	return p
}

func (n *Normalizer) structureWithLLM(ctx context.Context, text string) (profile.Profile, error) {
	raw, err := n.LLM.Complete(ctx, llm.Request{
		System:      structureSystemPrompt,
		User:        "CV text:\n" + truncate(text, maxStructureText),
		Temperature: structureTemp,
		JSON:        true,
	})
	if err != nil {
		return profile.Profile{}, err
	}
	doc := llm.StripCodeFences(raw)

	result, err := gojsonschema.Validate(profileSchema, gojsonschema.NewStringLoader(doc))
	if err != nil {
		return profile.Profile{}, fmt.Errorf("structured profile: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return profile.Profile{}, fmt.Errorf("structured profile invalid: %s", strings.Join(msgs, "; "))
	}

	var root map[string]any
	if err := json.Unmarshal([]byte(doc), &root); err != nil {
		return profile.Profile{}, err
	}
	p := fromCustom(root)
	if p.FullName == "" {
		p.FullName = heuristicProfile(text).FullName
	}
	return p, nil
}
