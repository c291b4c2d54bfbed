package tailor

import (
	"fmt"
	"strings"

	"cv-tailor/internal/profile"
)

const (
	maxContextSkills       = 50
	maxExperienceDescChars = 500
	maxEducationDescChars  = 300
)

var languageNames = map[string]string{
	"en": "English",
	"de": "German",
	"fr": "French",
}

// LanguageName maps a language code to the name used in prompts. Unknown codes are English.
func LanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(strings.TrimSpace(code))]; ok {
		return name
	}
	return "English"
}

// ProfileContext renders the factual anchor of a profile as plain text.
// The output depends only on p.
func ProfileContext(p profile.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", p.FullName)
	fmt.Fprintf(&b, "Headline: %s\n", orNA(p.Headline))
	fmt.Fprintf(&b, "Summary: %s\n", p.Summary)
	fmt.Fprintf(&b, "Email: %s, Phone: %s, Address: %s\n", orNA(p.Email), orNA(p.Phone), orNA(p.Address))

	b.WriteString("\nExperience:\n")
	for _, e := range p.Experience {
		fmt.Fprintf(&b, "  - %s at %s (%s - %s)\n", e.Title, e.Company, orDefault(e.StartDate, "?"), orDefault(e.EndDate, "Present"))
		if d := strings.TrimSpace(e.Description); d != "" {
			fmt.Fprintf(&b, "    %s\n", truncateRunes(d, maxExperienceDescChars))
		}
	}

	b.WriteString("\nEducation:\n")
	for _, e := range p.Education {
		fmt.Fprintf(&b, "  - %s in %s, %s (%s - %s)\n", orNA(e.Degree), orNA(e.Field), e.School, orDefault(e.StartDate, "?"), orDefault(e.EndDate, "?"))
		if d := strings.TrimSpace(e.Description); d != "" {
			fmt.Fprintf(&b, "    %s\n", truncateRunes(d, maxEducationDescChars))
		}
	}

	skills := p.Skills
	if len(skills) > maxContextSkills {
		skills = skills[:maxContextSkills]
	}
	fmt.Fprintf(&b, "\nSkills: %s", strings.Join(skills, ", "))

	if len(p.Certifications) > 0 {
		names := make([]string, 0, len(p.Certifications))
		for _, c := range p.Certifications {
			names = append(names, c.Name)
		}
		fmt.Fprintf(&b, "\nCertifications: %s", strings.Join(names, ", "))
	}
	return b.String()
}

func orNA(s string) string { return orDefault(s, "N/A") }

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
