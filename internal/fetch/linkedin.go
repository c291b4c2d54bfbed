package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"cv-tailor/internal/shared/chrome"
	"cv-tailor/internal/shared/telemetry"
)

const (
	statusLinkedInDenied = 999
	minProfileBodyBytes  = 500
	maxProfileBodyBytes  = 5 << 20

	browserTimeout = 20 * time.Second
	browserSettle  = 3 * time.Second
)

var (
	// ErrNotLinkedInURL indicates the URL is not a public linkedin.com/in/ profile.
	ErrNotLinkedInURL = errors.New("URL must be a LinkedIn profile (linkedin.com/in/...)")

	// ErrLinkedInBlocked indicates both the plain and browser fetches were refused.
	ErrLinkedInBlocked = errors.New("Failed to fetch LinkedIn profile. Use PDF import instead: open your profile in a browser, Print / Save as PDF, then upload it.")

	errBlocked = errors.New("blocked")
)

// BrowserFetcher loads a page in a real browser and returns its rendered HTML.
type BrowserFetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}

// LinkedInFetcher retrieves public profile HTML, escalating to a browser when
// the plain request is blocked.
type LinkedInFetcher struct {
	client  *http.Client
	browser BrowserFetcher
}

// NewLinkedInFetcher builds a fetcher. browser may be nil to disable escalation.
func NewLinkedInFetcher(timeout time.Duration, browser BrowserFetcher) *LinkedInFetcher {
	return &LinkedInFetcher{
		client:  &http.Client{Timeout: ClampTimeout(timeout)},
		browser: browser,
	}
}

// IsLinkedInProfileURL reports whether raw points at linkedin.com/in/<handle>.
func IsLinkedInProfileURL(raw string) bool {
	if !IsURL(raw) {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host != "linkedin.com" && !strings.HasSuffix(host, ".linkedin.com") {
		return false
	}
	return strings.HasPrefix(u.Path, "/in/") && len(strings.Trim(u.Path[len("/in/"):], "/")) > 0
}

// FetchProfileHTML returns the raw HTML of a public profile page.
func (f *LinkedInFetcher) FetchProfileHTML(ctx context.Context, profileURL string) (string, error) {
	profileURL = strings.TrimSpace(profileURL)
	if !IsLinkedInProfileURL(profileURL) {
		return "", ErrNotLinkedInURL
	}

	html, err := f.fetchPlain(ctx, profileURL)
	if err == nil {
		return html, nil
	}
	telemetry.Info("linkedin.plain_failed", map[string]any{"url": profileURL, "error": err.Error()})

	if f.browser == nil {
		return "", ErrLinkedInBlocked
	}
	html, err = f.browser.FetchHTML(ctx, profileURL)
	if err != nil || len(html) < minProfileBodyBytes {
		fields := map[string]any{"url": profileURL, "chars": len(html)}
		if err != nil {
			fields["error"] = err.Error()
		}
		telemetry.Info("linkedin.browser_failed", fields)
		return "", ErrLinkedInBlocked
	}
	return html, nil
}

func (f *LinkedInFetcher) fetchPlain(ctx context.Context, profileURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", acceptLanguage)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == statusLinkedInDenied || resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: status %d", errBlocked, resp.StatusCode)
	}
	if isAuthWall(resp.Request.URL) {
		return "", fmt.Errorf("%w: redirected to %s", errBlocked, resp.Request.URL.Path)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBodyBytes))
	if err != nil {
		return "", err
	}
	if len(body) < minProfileBodyBytes {
		return "", fmt.Errorf("%w: body only %d bytes", errBlocked, len(body))
	}
	return string(body), nil
}

func isAuthWall(u *url.URL) bool {
	path := strings.ToLower(u.Path)
	return strings.Contains(path, "authwall") || strings.HasPrefix(path, "/login") || strings.Contains(path, "/uas/login")
}

// ChromeFetcher renders pages with headless Chrome via chromedp.
type ChromeFetcher struct {
	// ExecPath overrides the Chrome binary; empty uses CHROME_PATH or the default lookup.
	ExecPath string
	Timeout  time.Duration
	Settle   time.Duration
}

// NewChromeFetcher returns a ChromeFetcher with a 20s timeout and a 3s settle wait.
func NewChromeFetcher(execPath string) *ChromeFetcher {
	return &ChromeFetcher{ExecPath: execPath, Timeout: browserTimeout, Settle: browserSettle}
}

// FetchHTML navigates to url, waits for scripts to settle and returns the document HTML.
func (b *ChromeFetcher) FetchHTML(ctx context.Context, url string) (string, error) {
	cctx, cancel := chrome.NewContext(ctx, b.ExecPath)
	defer cancel()

	timeout := b.Timeout
	if timeout <= 0 {
		timeout = browserTimeout
	}
	runCtx, cancelRun := context.WithTimeout(cctx, timeout)
	defer cancelRun()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(b.Settle),
		chromedp.Evaluate(`document.documentElement.outerHTML`, &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser fetch: %w", err)
	}
	return html, nil
}
