package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestIsURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://example.com/job", true},
		{"  http://example.com  ", true},
		{"ftp://example.com", false},
		{"example.com", false},
		{"https://example.com/a b", false},
		{"", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			if got := IsURL(tt.in); got != tt.want {
				t.Fatalf("IsURL(%q): expected %v", tt.in, tt.want)
			}
		})
	}
}

func TestClampTimeout(t *testing.T) {
	tests := map[time.Duration]time.Duration{
		0:                15 * time.Second,
		18 * time.Second: 18 * time.Second,
		time.Minute:      20 * time.Second,
	}
	for in, want := range tests {
		if got := ClampTimeout(in); got != want {
			t.Fatalf("ClampTimeout(%v): expected %v, got %v", in, want, got)
		}
	}
}

func TestFetchText_StripsScriptsAndCollapsesLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Chrome/120") {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, `<html><head><style>body{}</style></head><body>
			<script>alert("x")</script>
			<h1>  Senior   Go Engineer </h1>
			<p>Build APIs</p><noscript>enable js</noscript>
		</body></html>`)
	}))
	defer srv.Close()

	got := New(0).FetchText(context.Background(), srv.URL)
	if got != "Senior Go Engineer\nBuild APIs" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestFetchText_ErrorStatusYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if got := New(0).FetchText(context.Background(), srv.URL); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestFetchText_RejectsNonURL(t *testing.T) {
	if got := New(0).FetchText(context.Background(), "not a url"); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestFetchMany_LimitsToFiveValidURLs(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = fmt.Fprintf(w, "<html><body><p>page %s</p></body></html>", r.URL.Path)
	}))
	defer srv.Close()

	urls := []string{"", "mailto:a@b.c", "not-a-url"}
	for i := 0; i < 7; i++ {
		urls = append(urls, fmt.Sprintf("%s/p%d", srv.URL, i))
	}

	got := New(0).FetchMany(context.Background(), urls)
	if len(got) != 5 {
		t.Fatalf("expected 5 results, got %d", len(got))
	}
	if n := atomic.LoadInt32(&hits); n != 5 {
		t.Fatalf("expected 5 requests, got %d", n)
	}
	if got[srv.URL+"/p0"] != "page /p0" {
		t.Fatalf("unexpected first page %q", got[srv.URL+"/p0"])
	}
	if _, sixth := got[srv.URL+"/p5"]; sixth {
		t.Fatalf("expected sixth url to be dropped")
	}
}

func TestValidURLs_Dedupes(t *testing.T) {
	got := ValidURLs([]string{"https://a.example", " https://a.example ", "https://b.example"})
	if want := []string{"https://a.example", "https://b.example"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func stubResponse(r *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
		Request:    r,
	}
}

type fakeBrowser struct {
	html  string
	err   error
	calls int
}

func (b *fakeBrowser) FetchHTML(ctx context.Context, url string) (string, error) {
	b.calls++
	return b.html, b.err
}

func newTestLinkedIn(rt roundTripFunc, browser BrowserFetcher) *LinkedInFetcher {
	f := NewLinkedInFetcher(0, browser)
	f.client.Transport = rt
	return f
}

func TestIsLinkedInProfileURL(t *testing.T) {
	tests := map[string]bool{
		"https://www.linkedin.com/in/janedoe/":  true,
		"https://linkedin.com/in/jane-doe":      true,
		"https://www.linkedin.com/company/acme": false,
		"https://evil-linkedin.com/in/jane":     false,
		"https://www.linkedin.com/in/":          false,
	}
	for in, want := range tests {
		if got := IsLinkedInProfileURL(in); got != want {
			t.Fatalf("IsLinkedInProfileURL(%q): expected %v", in, want)
		}
	}
}

func TestFetchProfileHTML_RejectsOtherURLs(t *testing.T) {
	f := NewLinkedInFetcher(0, nil)
	if _, err := f.FetchProfileHTML(context.Background(), "https://example.com/in/jane"); !errors.Is(err, ErrNotLinkedInURL) {
		t.Fatalf("expected ErrNotLinkedInURL, got %v", err)
	}
}

func TestFetchProfileHTML_PlainSuccess(t *testing.T) {
	page := "<html><body>" + strings.Repeat("profile ", 100) + "</body></html>"
	browser := &fakeBrowser{}
	f := newTestLinkedIn(func(r *http.Request) (*http.Response, error) {
		return stubResponse(r, http.StatusOK, page), nil
	}, browser)

	got, err := f.FetchProfileHTML(context.Background(), "https://www.linkedin.com/in/janedoe")
	if err != nil {
		t.Fatalf("FetchProfileHTML: %v", err)
	}
	if got != page {
		t.Fatalf("expected plain page")
	}
	if browser.calls != 0 {
		t.Fatalf("expected no browser escalation, got %d", browser.calls)
	}
}

func TestFetchProfileHTML_EscalatesWhenBlocked(t *testing.T) {
	rendered := "<html>" + strings.Repeat("x", 600) + "</html>"
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"status 999", statusLinkedInDenied, strings.Repeat("a", 1000)},
		{"too many requests", http.StatusTooManyRequests, strings.Repeat("a", 1000)},
		{"tiny body", http.StatusOK, "<html></html>"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			browser := &fakeBrowser{html: rendered}
			f := newTestLinkedIn(func(r *http.Request) (*http.Response, error) {
				return stubResponse(r, tt.status, tt.body), nil
			}, browser)

			got, err := f.FetchProfileHTML(context.Background(), "https://www.linkedin.com/in/janedoe")
			if err != nil {
				t.Fatalf("FetchProfileHTML: %v", err)
			}
			if got != rendered {
				t.Fatalf("expected browser-rendered page")
			}
			if browser.calls != 1 {
				t.Fatalf("expected one browser call, got %d", browser.calls)
			}
		})
	}
}

func TestFetchProfileHTML_AuthWallRedirect(t *testing.T) {
	browser := &fakeBrowser{err: errors.New("chrome unavailable")}
	f := newTestLinkedIn(func(r *http.Request) (*http.Response, error) {
		wall, _ := http.NewRequest(http.MethodGet, "https://www.linkedin.com/authwall?trk=x", nil)
		return stubResponse(wall, http.StatusOK, strings.Repeat("a", 1000)), nil
	}, browser)

	if _, err := f.FetchProfileHTML(context.Background(), "https://www.linkedin.com/in/janedoe"); !errors.Is(err, ErrLinkedInBlocked) {
		t.Fatalf("expected ErrLinkedInBlocked, got %v", err)
	}
	if browser.calls != 1 {
		t.Fatalf("expected one browser call, got %d", browser.calls)
	}
}

func TestFetchProfileHTML_NoBrowserBlocked(t *testing.T) {
	f := newTestLinkedIn(func(r *http.Request) (*http.Response, error) {
		return stubResponse(r, statusLinkedInDenied, ""), nil
	}, nil)

	if _, err := f.FetchProfileHTML(context.Background(), "https://www.linkedin.com/in/janedoe"); !errors.Is(err, ErrLinkedInBlocked) {
		t.Fatalf("expected ErrLinkedInBlocked, got %v", err)
	}
}
