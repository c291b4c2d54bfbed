package object

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestUserKey(t *testing.T) {
	key, err := UserKey("google:12345", "my cv/v2.pdf")
	if err != nil {
		t.Fatalf("UserKey: %v", err)
	}
	parts := strings.Split(key, "/")
	if len(parts) != 2 {
		t.Fatalf("expected namespace/name, got %q", key)
	}
	if parts[0] != hashUserID("google:12345") || len(parts[0]) != 64 {
		t.Fatalf("unexpected namespace %q", parts[0])
	}
	if strings.Contains(parts[0], "google") {
		t.Fatalf("raw user id leaked into key %q", key)
	}
	if !strings.HasSuffix(parts[1], "_my cv_v2.pdf") {
		t.Fatalf("unexpected file part %q", parts[1])
	}

	other, _ := UserKey("google:12345", "my cv/v2.pdf")
	if other == key {
		t.Fatalf("expected random prefix to differ")
	}
}

func TestUserKeyRejectsBadNames(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", "  "},
		{"traversal", "../etc/passwd"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if _, err := UserKey("u", tt.in); !errors.Is(err, ErrInvalidFileName) {
				t.Fatalf("expected ErrInvalidFileName, got %v", err)
			}
		})
	}
}

func TestSniffKeepsBody(t *testing.T) {
	mime, body, err := Sniff(strings.NewReader("%PDF-1.4 rest of file"))
	if err != nil {
		t.Fatalf("Sniff: %v", err)
	}
	if mime != "application/pdf" {
		t.Fatalf("unexpected mime %q", mime)
	}
	counter := &CountingReader{R: body}
	data, _ := io.ReadAll(counter)
	if string(data) != "%PDF-1.4 rest of file" || counter.N != int64(len(data)) {
		t.Fatalf("unexpected body %q (%d)", data, counter.N)
	}
}
