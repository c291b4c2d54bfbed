package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"cv-tailor/internal/account"
	sharedauth "cv-tailor/internal/shared/auth"
	"cv-tailor/internal/users"
)

const testGuestID = "3f1c2a9e-6b1d-4c8e-9a52-0d7e8f1b2c3d"

type fakeAccounts struct {
	email string
}

func (f *fakeAccounts) UpsertGoogle(ctx context.Context, email, fullName, pictureURL string) (users.User, error) {
	f.email = email
	return users.User{ID: "user-42", Email: email, FullName: fullName}, nil
}

type fakeTokens struct{}

func (fakeTokens) Sign(claims sharedauth.Claims) (string, error) {
	return "signed-" + claims.Sub, nil
}

type fakeGuests struct {
	guest, user string
}

func (f *fakeGuests) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (account.ClaimResult, error) {
	f.guest, f.user = guestUserID, authedUserID
	return account.ClaimResult{MigratedProfile: true}, nil
}

func newGoogleRouter(svc *GoogleService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	svc.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func configured() GoogleConfig {
	return GoogleConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/api/v1/auth/google/callback",
		UIRedirect:   "http://localhost:5173/auth",
	}
}

func startState(t *testing.T, router *gin.Engine, query string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start"+query, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d (%s)", resp.Code, resp.Body.String())
	}
	loc, err := url.Parse(resp.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatalf("missing state in %s", loc)
	}
	return state
}

func TestStartRedirectsWithState(t *testing.T) {
	svc := NewGoogleService(configured(), nil, nil, nil)
	state := startState(t, newGoogleRouter(svc), "?guest_id="+testGuestID)

	pending, ok := svc.stateStore.consume(state)
	if !ok {
		t.Fatalf("state was not stored")
	}
	if pending.guestUserID != "guest:"+testGuestID {
		t.Fatalf("unexpected guest id %q", pending.guestUserID)
	}
}

func TestStartValidation(t *testing.T) {
	tests := []struct {
		name   string
		cfg    GoogleConfig
		query  string
		status int
	}{
		{"not configured", GoogleConfig{}, "", http.StatusServiceUnavailable},
		{"bad guest id", configured(), "?guest_id=not-a-uuid", http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			router := newGoogleRouter(NewGoogleService(tt.cfg, nil, nil, nil))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start"+tt.query, nil)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestCallbackRejectsUnknownState(t *testing.T) {
	router := newGoogleRouter(NewGoogleService(configured(), nil, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state=nope&code=abc", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCallbackIssuesTokenAndClaimsGuest(t *testing.T) {
	google := http.NewServeMux()
	google.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "at", "token_type": "Bearer", "expires_in": 3600})
	})
	google.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "g-1", "email": "ada@example.com", "name": "Ada"})
	})
	upstream := httptest.NewServer(google)
	defer upstream.Close()

	accounts := &fakeAccounts{}
	guests := &fakeGuests{}
	svc := NewGoogleService(configured(), accounts, fakeTokens{}, guests)
	svc.oauthConfig.Endpoint = oauth2.Endpoint{
		AuthURL:   upstream.URL + "/auth",
		TokenURL:  upstream.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	svc.userInfoURL = upstream.URL + "/userinfo"
	router := newGoogleRouter(svc)

	state := startState(t, router, "?guest_id="+testGuestID)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?code=abc&state="+state, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d (%s)", resp.Code, resp.Body.String())
	}
	loc, _ := url.Parse(resp.Header().Get("Location"))
	if loc.Query().Get("token") != "signed-user-42" {
		t.Fatalf("unexpected redirect %s", loc)
	}
	if accounts.email != "ada@example.com" {
		t.Fatalf("unexpected upsert email %q", accounts.email)
	}
	if guests.guest != "guest:"+testGuestID || guests.user != "user-42" {
		t.Fatalf("unexpected claim %+v", guests)
	}
}

func TestStateStoreExpiryAndPruning(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	store := newStateStore()
	store.now = func() time.Time { return now }

	store.put("old", pendingLogin{expires: now.Add(-time.Second)})
	if _, ok := store.consume("old"); ok {
		t.Fatalf("expired state accepted")
	}

	store.put("stale", pendingLogin{expires: now.Add(time.Minute)})
	now = now.Add(2 * time.Minute)
	store.put("fresh", pendingLogin{expires: now.Add(time.Minute)})
	if n := store.len(); n != 1 {
		t.Fatalf("expected stale state pruned, have %d", n)
	}
	if _, ok := store.consume("fresh"); !ok {
		t.Fatalf("fresh state rejected")
	}
	if _, ok := store.consume("fresh"); ok {
		t.Fatalf("state reused")
	}
}

func TestAppendToken(t *testing.T) {
	got, err := appendToken("http://localhost:5173/auth?next=%2Fgenerate", "tok")
	if err != nil {
		t.Fatalf("appendToken: %v", err)
	}
	u, _ := url.Parse(got)
	if u.Query().Get("token") != "tok" || u.Query().Get("next") != "/generate" {
		t.Fatalf("unexpected url: %s", got)
	}
	if _, err := appendToken("", "tok"); err == nil {
		t.Fatalf("expected error for empty redirect")
	}
}
