package render

import (
	"html"
	"html/template"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	tagPattern    = regexp.MustCompile(`<[^>]+>`)
	entityPattern = regexp.MustCompile(`^&(?:[A-Za-z]+|#[0-9]+|#[xX][0-9A-Fa-f]+);$`)
)

// StripTags decodes entities, removes markup and trims until the text stops
// changing, so StripTags(StripTags(s)) == StripTags(s). Each changing pass
// drops an ampersand or shortens the text, which bounds the loop.
func StripTags(s string) string {
	for {
		next := html.UnescapeString(s)
		next = tagPattern.ReplaceAllString(next, "")
		next = strings.TrimSpace(strings.ReplaceAll(next, "\u00a0", " "))
		if next == s {
			return s
		}
		s = next
	}
}

// Emphasize strips and escapes text, then wraps every case-insensitive keyword
// occurrence in <strong>. Longer keywords win over keywords they contain.
func Emphasize(text string, keywords []string) template.HTML {
	escaped := html.EscapeString(StripTags(text))
	re, escapedKeywords := keywordPattern(keywords)
	if re == nil || escaped == "" {
		return template.HTML(escaped)
	}
	return template.HTML(re.ReplaceAllStringFunc(escaped, func(m string) string {
		if _, isKeyword := escapedKeywords[strings.ToLower(m)]; !isKeyword && entityPattern.MatchString(m) {
			return m
		}
		return "<strong>" + m + "</strong>"
	}))
}

// keywordPattern builds one alternation over escaped keywords, longest first,
// with a trailing entity alternative so escapes such as &amp; are consumed whole.
func keywordPattern(keywords []string) (*regexp.Regexp, map[string]struct{}) {
	escaped := make(map[string]struct{}, len(keywords))
	kws := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = StripTags(kw)
		if utf8.RuneCountInString(kw) < 2 {
			continue
		}
		e := html.EscapeString(kw)
		key := strings.ToLower(e)
		if _, ok := escaped[key]; ok {
			continue
		}
		escaped[key] = struct{}{}
		kws = append(kws, e)
	}
	if len(kws) == 0 {
		return nil, nil
	}
	sort.SliceStable(kws, func(i, j int) bool {
		return len(kws[i]) > len(kws[j])
	})

	alts := make([]string, 0, len(kws)+1)
	for _, kw := range kws {
		alts = append(alts, regexp.QuoteMeta(kw))
	}
	alts = append(alts, `&(?:[A-Za-z]+|#[0-9]+|#[xX][0-9A-Fa-f]+);`)
	return regexp.MustCompile(`(?i)` + strings.Join(alts, "|")), escaped
}

// KeywordMatch reports whether skill equals a keyword or contains one, ignoring case.
func KeywordMatch(skill string, keywords []string) bool {
	sk := strings.ToLower(strings.TrimSpace(skill))
	if sk == "" {
		return false
	}
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if kw == sk || strings.Contains(sk, kw) {
			return true
		}
	}
	return false
}

// PhotoDataURL turns stored photo data into an <img> source.
func PhotoDataURL(photo string) string {
	photo = strings.TrimSpace(photo)
	switch {
	case photo == "":
		return ""
	case strings.HasPrefix(photo, "data:"):
		return photo
	default:
		return "data:image/jpeg;base64," + photo
	}
}

// referenceURLs keeps trimmed http(s) URLs only.
func referenceURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
			out = append(out, u)
		}
	}
	return out
}
