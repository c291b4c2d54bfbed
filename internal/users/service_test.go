package users

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestService() *Service {
	return &Service{Repo: NewMemoryRepo(), Cost: bcrypt.MinCost}
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, " Ada@Example.com ", "correct horse", "Ada Lovelace")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.PasswordHash == "" || user.PasswordHash == "correct horse" {
		t.Fatalf("password not hashed")
	}

	got, err := svc.Login(ctx, "ADA@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"bad email", "not-an-email", "longenough", ErrInvalidInput},
		{"short password", "a@b.co", "short", ErrInvalidInput},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tt.email, tt.password, ""); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := svc.Register(ctx, "a@b.co", "longenough", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, "A@B.co", "longenough", ""); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLoginFailures(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, "a@b.co", "longenough", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.UpsertGoogle(ctx, "g@b.co", "G", ""); err != nil {
		t.Fatalf("UpsertGoogle: %v", err)
	}

	for _, tc := range [][2]string{
		{"a@b.co", "wrong-password"},
		{"missing@b.co", "longenough"},
		{"g@b.co", ""},
	} {
		if _, err := svc.Login(ctx, tc[0], tc[1]); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Login(%s): expected ErrInvalidCredentials, got %v", tc[0], err)
		}
	}
}

func TestUpsertGoogleReusesAccountByEmail(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	registered, err := svc.Register(ctx, "ada@example.com", "longenough", "Ada")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	user, err := svc.UpsertGoogle(ctx, "ADA@example.com", "Ada L.", "https://pics/ada.png")
	if err != nil {
		t.Fatalf("UpsertGoogle: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("expected same account, got %s vs %s", user.ID, registered.ID)
	}
	if user.PictureURL != "https://pics/ada.png" || user.FullName != "Ada L." {
		t.Fatalf("profile not updated: %+v", user)
	}
	if _, err := svc.Login(ctx, "ada@example.com", "longenough"); err != nil {
		t.Fatalf("password login should still work: %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	user, err := svc.Register(ctx, "a@b.co", "longenough", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.GetByID(ctx, user.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
