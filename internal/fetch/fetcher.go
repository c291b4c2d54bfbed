// Package fetch retrieves readable text from job postings and reference pages,
// and raw HTML from public LinkedIn profiles.
package fetch

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"cv-tailor/internal/shared/telemetry"
)

const (
	// UserAgent mimics a desktop Chrome 120 browser.
	UserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	acceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	acceptLanguage = "en-US,en;q=0.9"

	DefaultTimeout = 15 * time.Second
	maxTimeout     = 20 * time.Second

	// MaxURLs bounds how many additional URLs a single request fetches.
	MaxURLs = 5
)

// ClampTimeout keeps a configured fetch timeout within 15 to 20 seconds.
func ClampTimeout(d time.Duration) time.Duration {
	if d < DefaultTimeout {
		return DefaultTimeout
	}
	if d > maxTimeout {
		return maxTimeout
	}
	return d
}

// Fetcher downloads pages and reduces them to plain text lines.
type Fetcher struct {
	timeout time.Duration
}

// New constructs a Fetcher with a clamped timeout.
func New(timeout time.Duration) *Fetcher {
	return &Fetcher{timeout: ClampTimeout(timeout)}
}

// IsURL reports whether s is an absolute http(s) URL without whitespace.
func IsURL(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	return !strings.ContainsAny(s, " \t\r\n")
}

// FetchText returns the readable text of url, or "" when the page cannot be retrieved.
func (f *Fetcher) FetchText(ctx context.Context, url string) string {
	url = strings.TrimSpace(url)
	if !IsURL(url) || ctx.Err() != nil {
		return ""
	}

	var out string
	c := f.collector(ctx)
	c.OnResponse(func(r *colly.Response) {
		text, err := pageText(r.Body)
		if err != nil {
			telemetry.Info("fetch.parse_failed", map[string]any{"url": url, "error": err.Error()})
			return
		}
		out = text
	})
	c.OnError(func(r *colly.Response, err error) {
		telemetry.Info("fetch.failed", map[string]any{"url": url, "status": r.StatusCode, "error": err.Error()})
	})

	start := time.Now()
	if err := c.Visit(url); err != nil {
		telemetry.Info("fetch.failed", map[string]any{"url": url, "error": err.Error()})
		return ""
	}
	telemetry.Info("fetch.done", map[string]any{"url": url, "chars": len(out), "ms": time.Since(start).Milliseconds()})
	return out
}

// FetchMany fetches the first MaxURLs valid URLs in order. Every processed URL
// appears in the result, with "" for failures.
func (f *Fetcher) FetchMany(ctx context.Context, urls []string) map[string]string {
	out := make(map[string]string, MaxURLs)
	for _, u := range ValidURLs(urls) {
		out[u] = f.FetchText(ctx, u)
	}
	return out
}

// ValidURLs trims urls, drops non-http(s) entries and duplicates, and keeps at most MaxURLs.
func ValidURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, MaxURLs)
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if !IsURL(u) {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
		if len(out) == MaxURLs {
			break
		}
	}
	return out
}

func (f *Fetcher) collector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(colly.UserAgent(UserAgent))
	c.SetRequestTimeout(f.timeout)
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("Accept", acceptHeader)
		r.Headers.Set("Accept-Language", acceptLanguage)
	})
	return c
}

// pageText drops non-content elements and returns non-empty trimmed lines joined by "\n".
func pageText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find("br, p, li, h1, h2, h3, h4, h5, h6, div, section, article, tr").AfterHtml("\n")

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	return collapseLines(root.Text()), nil
}

func collapseLines(s string) string {
	raw := strings.Split(s, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
