package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	s, err := NewSigner("secret", true)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	token, err := s.Sign(Claims{Sub: "user-1", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	claims, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Sub != "user-1" || claims.Email != "ada@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Exp-claims.Iat != int64(DefaultTokenTTL/time.Second) {
		t.Fatalf("unexpected ttl: %d", claims.Exp-claims.Iat)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	a, _ := NewSigner("one", false)
	b, _ := NewSigner("two", false)
	token, err := a.Sign(Claims{Sub: "user-1"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"other secret", token},
		{"malformed", "abc.def"},
		{"truncated signature", token[:strings.LastIndex(token, ".")+2]},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if _, err := b.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	s, _ := NewSigner("secret", false)
	token, err := s.Sign(Claims{Sub: "user-1", Iat: 1, Exp: 2})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := s.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestNewSignerRequiresSecretInProduction(t *testing.T) {
	if _, err := NewSigner("", true); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
	if _, err := NewSigner("", false); err != nil {
		t.Fatalf("dev signer: %v", err)
	}
}
