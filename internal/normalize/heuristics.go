package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"cv-tailor/internal/profile"
)

type section int

const (
	sectionNone section = iota
	sectionSummary
	sectionExperience
	sectionEducation
	sectionSkills
	sectionCertifications
)

const (
	headerMaxLen      = 30
	nameMaxLen        = 60
	headlineMaxLen    = 120
	summaryFallback   = 1500
	experienceDateMax = 20
)

var sectionKeywords = map[string]section{
	"certification":  sectionCertifications,
	"certifications": sectionCertifications,
	"certificates":   sectionCertifications,
	"licenses":       sectionCertifications,
	"experience":     sectionExperience,
	"employment":     sectionExperience,
	"work":           sectionExperience,
	"education":      sectionEducation,
	"skills":         sectionSkills,
	"summary":        sectionSummary,
	"about":          sectionSummary,
}

var (
	headerPattern   = regexp.MustCompile(`(?i)\b(certifications?|certificates|licenses|experience|employment|work|education|skills|summary|about)\b`)
	yearOrPresent   = regexp.MustCompile(`(?i)\d{4}|present`)
	experienceSplit = regexp.MustCompile(`\s*[·–\-]\s*`)
	skillSplit      = regexp.MustCompile(`[,;·|•]`)
	emailPattern    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern    = regexp.MustCompile(`\+?\(?\d[\d ().\-]{6,}\d`)
	linkedInPattern = regexp.MustCompile(`(?i)linkedin\.com/in/[\w\-]+`)
	spaceRun        = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
)

// splitLines trims every line, collapses inner whitespace and drops empty lines.
func splitLines(s string) []string {
	raw := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// classifyHeader reports whether line is a section header and which one.
func classifyHeader(line string) (section, bool) {
	if utf8.RuneCountInString(line) >= headerMaxLen {
		return sectionNone, false
	}
	match := headerPattern.FindString(line)
	if match == "" {
		return sectionNone, false
	}
	return sectionKeywords[strings.ToLower(match)], true
}

func looksLikeName(line string) bool {
	if utf8.RuneCountInString(line) >= nameMaxLen {
		return false
	}
	r, _ := utf8.DecodeRuneInString(line)
	if !unicode.IsUpper(r) {
		return false
	}
	if emailPattern.MatchString(line) || strings.Contains(strings.ToLower(line), "http") {
		return false
	}
	if _, isHeader := classifyHeader(line); isHeader {
		return false
	}
	return true
}

// sectionParse holds the result of classifying lines into sections.
type sectionParse struct {
	summary        []string
	experience     []profile.Experience
	education      []profile.Education
	skills         []string
	certifications []profile.Certification
}

// parseSections walks lines and fills each section using the line rules of that section.
func parseSections(lines []string) sectionParse {
	var out sectionParse
	current := sectionNone
	for _, line := range lines {
		if sec, ok := classifyHeader(line); ok {
			current = sec
			continue
		}
		switch current {
		case sectionSummary:
			out.summary = append(out.summary, line)
		case sectionExperience:
			if yearOrPresent.MatchString(line) && hasExperienceSeparator(line) {
				out.experience = append(out.experience, experienceFromLine(line))
			} else if n := len(out.experience); n > 0 {
				prev := &out.experience[n-1]
				if prev.Description == "" {
					prev.Description = line
				} else {
					prev.Description += "\n" + line
				}
			}
		case sectionEducation:
			if utf8.RuneCountInString(line) > 5 && !strings.HasPrefix(strings.ToLower(line), "http") {
				out.education = append(out.education, educationFromLine(line))
			}
		case sectionSkills:
			n := utf8.RuneCountInString(line)
			if n >= 2 && n <= 60 {
				for _, part := range skillSplit.Split(line, -1) {
					if s := strings.TrimSpace(part); utf8.RuneCountInString(s) >= 2 {
						out.skills = append(out.skills, s)
					}
				}
			}
		case sectionCertifications:
			if utf8.RuneCountInString(line) > 5 {
				out.certifications = append(out.certifications, certificationFromLine(line))
			}
		}
	}

	if len(out.experience) > maxExperience {
		out.experience = out.experience[:maxExperience]
	}
	if len(out.education) > maxEducation {
		out.education = out.education[:maxEducation]
	}
	if len(out.certifications) > maxCertifications {
		out.certifications = out.certifications[:maxCertifications]
	}
	out.skills = dedupe(out.skills, maxSkills)
	return out
}

func hasExperienceSeparator(line string) bool {
	return strings.Contains(line, " - ") || strings.Contains(line, "–") || strings.Contains(line, "·")
}

func experienceFromLine(line string) profile.Experience {
	parts := experienceSplit.Split(line, 3)
	exp := profile.Experience{Title: strings.TrimSpace(parts[0])}
	if len(parts) > 1 {
		exp.Company = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		exp.StartDate = truncate(strings.TrimSpace(parts[2]), experienceDateMax)
	}
	return exp
}

func educationFromLine(line string) profile.Education {
	edu := profile.Education{School: line}
	if idx := strings.Index(line, ","); idx > 0 {
		edu.School = strings.TrimSpace(line[:idx])
		edu.Degree = strings.TrimSpace(line[idx+1:])
	}
	return edu
}

func certificationFromLine(line string) profile.Certification {
	cert := profile.Certification{Name: line}
	for _, sep := range []string{" - ", " – ", " · "} {
		if idx := strings.Index(line, sep); idx > 0 {
			cert.Name = strings.TrimSpace(line[:idx])
			cert.Authority = strings.TrimSpace(line[idx+len(sep):])
			break
		}
	}
	return cert
}

// heuristicProfile builds a profile from plain extracted text.
func heuristicProfile(text string) profile.Profile {
	lines := splitLines(text)
	p := profile.Profile{FullName: "Imported from PDF"}

	nameIdx := -1
	for i := 0; i < len(lines) && i < 5; i++ {
		if looksLikeName(lines[i]) {
			p.FullName = lines[i]
			nameIdx = i
			break
		}
	}
	if nameIdx >= 0 && nameIdx+1 < len(lines) {
		next := lines[nameIdx+1]
		if _, isHeader := classifyHeader(next); !isHeader &&
			utf8.RuneCountInString(next) < headlineMaxLen &&
			!emailPattern.MatchString(next) {
			p.Headline = next
		}
	}

	parsed := parseSections(lines)
	p.Experience = parsed.experience
	p.Education = parsed.education
	p.Skills = parsed.skills
	p.Certifications = parsed.certifications
	if len(parsed.summary) > 0 {
		p.Summary = strings.Join(parsed.summary, " ")
	} else {
		p.Summary = truncate(strings.TrimSpace(text), summaryFallback)
	}

	p.Email = emailPattern.FindString(text)
	p.Phone = findPhone(text)
	if m := linkedInPattern.FindString(text); m != "" {
		p.LinkedInURL = "https://www.linkedin.com/" + m[len("linkedin.com/"):]
	}
	return p.Normalize()
}

// findPhone returns the first number-like run that looks like a phone number rather than a date range.
func findPhone(text string) string {
	for _, candidate := range phonePattern.FindAllString(text, -1) {
		digits := 0
		for _, r := range candidate {
			if unicode.IsDigit(r) {
				digits++
			}
		}
		if digits >= 9 || (strings.HasPrefix(candidate, "+") && digits >= 7) {
			return strings.TrimSpace(candidate)
		}
	}
	return ""
}
