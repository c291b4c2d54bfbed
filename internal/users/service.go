package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

type Service struct {
	Repo Repo
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// Register creates a password account.
func (s *Service) Register(ctx context.Context, email, password, fullName string) (User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost())
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: string(hash),
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return s.Repo.GetByID(ctx, user.ID)
}

// Login checks the password and returns the account.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	user, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if user.PasswordHash == "" {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// UpsertGoogle finds the account for a Google identity by email, creating it on first sign-in.
func (s *Service) UpsertGoogle(ctx context.Context, email, fullName, pictureURL string) (User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return User{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	user, err := s.Repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if fullName != "" {
			user.FullName = fullName
		}
		if pictureURL != "" {
			user.PictureURL = pictureURL
		}
		if err := s.Repo.Update(ctx, user); err != nil {
			return User{}, err
		}
		return user, nil
	case errors.Is(err, ErrNotFound):
		user = User{
			ID:         uuid.NewString(),
			Email:      email,
			FullName:   fullName,
			PictureURL: pictureURL,
		}
		if err := s.Repo.Create(ctx, user); err != nil {
			return User{}, err
		}
		return s.Repo.GetByID(ctx, user.ID)
	default:
		return User{}, err
	}
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userID)
}

// Delete removes the account row.
func (s *Service) Delete(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidInput
	}
	return s.Repo.Delete(ctx, userID)
}

func (s *Service) cost() int {
	if s.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return s.Cost
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
