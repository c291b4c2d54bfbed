package normalize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"cv-tailor/internal/profile"
)

const (
	htmlHeadlineMax   = 200
	htmlNameScanDepth = 20
)

// NormalizeHTML builds a Profile from a scraped profile page. sourceURL, when
// set, is recorded as the LinkedIn URL.
func NormalizeHTML(html string, sourceURL string) (profile.Profile, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return profile.Profile{}, err
	}
	doc.Find("script, style, noscript").Remove()

	lines := splitLines(blockText(doc.Find("body")))
	if len(lines) == 0 {
		lines = splitLines(blockText(doc.Selection))
	}
	if len(lines) == 0 {
		return profile.Profile{}, ErrExtractionEmpty
	}

	p := profile.Profile{
		FullName:    pageName(doc, lines),
		Headline:    truncate(pageDescription(doc), htmlHeadlineMax),
		LinkedInURL: strings.TrimSpace(sourceURL),
	}

	parsed := parseSections(lines)
	p.Summary = strings.Join(parsed.summary, " ")
	p.Experience = parsed.experience
	p.Education = parsed.education
	p.Skills = parsed.skills
	p.Certifications = parsed.certifications

	body := strings.Join(lines, "\n")
	p.Email = emailPattern.FindString(body)
	p.Phone = findPhone(body)
	if p.LinkedInURL == "" {
		if m := linkedInPattern.FindString(body); m != "" {
			p.LinkedInURL = "https://www.linkedin.com/" + m[len("linkedin.com/"):]
		}
	}
	return p.Normalize(), nil
}

// blockText renders a selection as text with one line per block element.
func blockText(sel *goquery.Selection) string {
	sel.Find("br, p, li, h1, h2, h3, h4, h5, h6, div, section, article, header, tr, dt, dd").AfterHtml("\n")
	return sel.Text()
}

func pageName(doc *goquery.Document, lines []string) string {
	if title, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		title = strings.TrimSpace(title)
		for _, sep := range []string{" | LinkedIn", " - "} {
			if idx := strings.Index(title, sep); idx >= 0 {
				title = strings.TrimSpace(title[:idx])
			}
		}
		if title != "" {
			return title
		}
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return spaceRun.ReplaceAllString(h1, " ")
	}
	for i := 0; i < len(lines) && i < htmlNameScanDepth; i++ {
		if looksLikeName(lines[i]) && !strings.Contains(strings.ToLower(lines[i]), "linkedin") {
			return lines[i]
		}
	}
	return "Unknown"
}

func pageDescription(doc *goquery.Document) string {
	for _, sel := range []string{`meta[property="og:description"]`, `meta[name="description"]`} {
		if v, ok := doc.Find(sel).Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
