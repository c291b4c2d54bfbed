// Package auth implements Google sign-in on top of local accounts.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"cv-tailor/internal/account"
	sharedauth "cv-tailor/internal/shared/auth"
	"cv-tailor/internal/shared/server/middleware"
	"cv-tailor/internal/shared/server/respond"
	"cv-tailor/internal/shared/telemetry"
	"cv-tailor/internal/users"
)

// AccountStore resolves a Google identity to a local account.
type AccountStore interface {
	UpsertGoogle(ctx context.Context, email, fullName, pictureURL string) (users.User, error)
}

// TokenIssuer signs API tokens.
type TokenIssuer interface {
	Sign(claims sharedauth.Claims) (string, error)
}

// GuestClaimer moves a guest's profile and history to a signed-in account.
type GuestClaimer interface {
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (account.ClaimResult, error)
}

// GoogleConfig holds the OAuth client settings.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	UIRedirect   string
}

// GoogleService handles Google OAuth flows and hands the UI an API token.
type GoogleService struct {
	oauthConfig *oauth2.Config
	uiRedirect  string
	stateTTL    time.Duration
	stateStore  *stateStore
	accounts    AccountStore
	tokens      TokenIssuer
	guests      GuestClaimer
	userInfoURL string
}

// NewGoogleService builds a GoogleService. guests may be nil, in which case a
// guest_id passed to the start route is ignored.
func NewGoogleService(cfg GoogleConfig, accounts AccountStore, tokens TokenIssuer, guests GuestClaimer) *GoogleService {
	return &GoogleService{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		uiRedirect:  cfg.UIRedirect,
		stateTTL:    5 * time.Minute,
		stateStore:  newStateStore(),
		accounts:    accounts,
		tokens:      tokens,
		guests:      guests,
		userInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
	}
}

// RegisterRoutes attaches Google auth routes.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", s.start)
	rg.GET("/auth/google/callback", s.callback)
}

func (s *GoogleService) start(c *gin.Context) {
	if s.oauthConfig.ClientID == "" || s.oauthConfig.ClientSecret == "" || s.oauthConfig.RedirectURL == "" {
		respond.Error(c, http.StatusServiceUnavailable, "auth_not_configured", "Google auth not configured", nil)
		return
	}

	// Browsers cannot send X-Guest-Id through the redirect, so the guest id rides in the query.
	var guestUserID string
	if raw := strings.TrimSpace(c.Query("guest_id")); raw != "" {
		if _, err := uuid.Parse(raw); err != nil {
			respond.Error(c, http.StatusBadRequest, "invalid_request", "guest_id must be a UUID", nil)
			return
		}
		guestUserID = middleware.GuestPrefix + strings.ToLower(raw)
	}

	state := uuid.NewString()
	s.stateStore.put(state, pendingLogin{expires: time.Now().Add(s.stateTTL), guestUserID: guestUserID})

	url := s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	c.Redirect(http.StatusFound, url)
}

func (s *GoogleService) callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}

	pending, ok := s.stateStore.consume(state)
	if !ok {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code", nil)
		return
	}

	userInfo, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile", nil)
		return
	}

	if userInfo.Sub == "" || userInfo.Email == "" {
		respond.Error(c, http.StatusBadGateway, "auth_failed", "invalid user profile", nil)
		return
	}

	user, err := s.accounts.UpsertGoogle(ctx, userInfo.Email, userInfo.Name, userInfo.Picture)
	if err != nil {
		telemetry.Error("auth.google_upsert_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store account", nil)
		return
	}

	jwt, err := s.tokens.Sign(sharedauth.Claims{
		Sub:     user.ID,
		Email:   user.Email,
		Name:    user.FullName,
		Picture: user.PictureURL,
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}

	if pending.guestUserID != "" && s.guests != nil {
		s.claimGuest(ctx, pending.guestUserID, user.ID)
	}

	redirectURL, err := appendToken(s.uiRedirect, jwt)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redirect", nil)
		return
	}

	c.Redirect(http.StatusFound, redirectURL)
}

type googleUserInfo struct {
	Sub     string `json:"sub"`
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (s *GoogleService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (googleUserInfo, error) {
	client := s.oauthConfig.Client(ctx, token)
	resp, err := client.Get(s.userInfoURL)
	if err != nil {
		return googleUserInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, err
	}

	// Some responses use "id" instead of "sub".
	if info.Sub == "" {
		info.Sub = info.ID
	}
	return info, nil
}

// claimGuest is best effort: the sign-in succeeds even when the guest data stays behind.
func (s *GoogleService) claimGuest(ctx context.Context, guestUserID, userID string) {
	res, err := s.guests.ClaimGuest(ctx, guestUserID, userID)
	if err != nil {
		telemetry.Error("auth.google_claim_failed", map[string]any{"user_id": userID, "error": err.Error()})
		return
	}
	telemetry.Info("auth.google_claimed_guest", map[string]any{
		"user_id":     userID,
		"profile":     res.MigratedProfile,
		"generations": res.MigratedGenerations,
	})
}

type pendingLogin struct {
	expires     time.Time
	guestUserID string
}

// stateStore holds OAuth states between start and callback. Expired entries
// are dropped whenever a new state is stored.
type stateStore struct {
	items map[string]pendingLogin
	mu    sync.Mutex
	now   func() time.Time
}

func newStateStore() *stateStore {
	return &stateStore{items: make(map[string]pendingLogin), now: time.Now}
}

func (s *stateStore) put(state string, p pendingLogin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, v := range s.items {
		if now.After(v.expires) {
			delete(s.items, k)
		}
	}
	s.items[state] = p
}

func (s *stateStore) consume(state string) (pendingLogin, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[state]
	if !ok {
		return pendingLogin{}, false
	}
	delete(s.items, state)
	if s.now().After(p.expires) {
		return pendingLogin{}, false
	}
	return p, true
}

func (s *stateStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func appendToken(rawURL, token string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
