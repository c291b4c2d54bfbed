package account

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"cv-tailor/internal/generateddocs"
	"cv-tailor/internal/profile"
	"cv-tailor/internal/shared/storage/object/local"
	"cv-tailor/internal/users"
)

type fixture struct {
	profiles *profile.MemoryRepo
	history  *generateddocs.Service
	users    *users.Service
	router   *gin.Engine
}

func newFixture(t *testing.T, userID string, guest bool) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		profiles: profile.NewMemoryRepo(),
		history:  &generateddocs.Service{Repo: generateddocs.NewMemoryRepo(), Store: local.New(t.TempDir())},
		users:    users.NewService(users.NewMemoryRepo()),
	}
	svc := &Service{Profiles: f.profiles, History: f.history, Users: f.users}

	f.router = gin.New()
	f.router.Use(func(c *gin.Context) {
		c.Set("userId", userID)
		c.Set("isGuest", guest)
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(f.router.Group("/api/v1"))
	return f
}

func (f *fixture) seed(t *testing.T, userID, sessionID string) {
	t.Helper()
	ctx := context.Background()
	if err := f.profiles.Upsert(ctx, profile.StoredProfile{UserID: userID, Profile: profile.Profile{FullName: "Guest Person"}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, err := f.history.Record(ctx, generateddocs.Artifacts{SessionID: sessionID, UserID: userID, CVPDF: []byte("%PDF")}); err != nil {
		t.Fatalf("Record: %v", err)
	}
}

func TestClaimGuestMigratesData(t *testing.T) {
	f := newFixture(t, "user-1", false)
	guestID := "11111111-1111-1111-1111-111111111111"
	f.seed(t, "guest:"+guestID, "sess-1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	req.Header.Set("X-Guest-Id", guestID)
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var result ClaimResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.MigratedProfile || result.MigratedGenerations != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	stored, err := f.profiles.GetByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("profile not migrated: %v", err)
	}
	if stored.Profile.FullName != "Guest Person" {
		t.Fatalf("unexpected profile: %+v", stored.Profile)
	}
	list, err := f.history.List(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 migrated generation, got %d", len(list))
	}
}

func TestClaimGuestKeepsExistingProfileAndIsIdempotent(t *testing.T) {
	f := newFixture(t, "user-1", false)
	guestID := "22222222-2222-2222-2222-222222222222"
	f.seed(t, "guest:"+guestID, "sess-2")
	if err := f.profiles.Upsert(context.Background(), profile.StoredProfile{UserID: "user-1", Profile: profile.Profile{FullName: "Registered"}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
		req.Header.Set("X-Guest-Id", guestID)
		resp := httptest.NewRecorder()
		f.router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("call %d: expected status 200, got %d", i+1, resp.Code)
		}
	}

	stored, err := f.profiles.GetByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetByUser: %v", err)
	}
	if stored.Profile.FullName != "Registered" {
		t.Fatalf("existing profile overwritten: %+v", stored.Profile)
	}
}

func TestClaimGuestRejectsGuestsAndBadIDs(t *testing.T) {
	tests := []struct {
		name    string
		guest   bool
		guestID string
		status  int
	}{
		{"guest caller", true, "33333333-3333-3333-3333-333333333333", http.StatusUnauthorized},
		{"missing header", false, "", http.StatusBadRequest},
		{"not a uuid", false, "abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "user-1", tt.guest)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
			if tt.guestID != "" {
				req.Header.Set("X-Guest-Id", tt.guestID)
			}
			resp := httptest.NewRecorder()
			f.router.ServeHTTP(resp, req)
			if resp.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestDeleteAccountRemovesEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "", false)
	user, err := f.users.Register(ctx, "ada@example.com", "longenough", "Ada")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	f.router = gin.New()
	f.router.Use(func(c *gin.Context) {
		c.Set("userId", user.ID)
		c.Next()
	})
	NewHandler(&Service{Profiles: f.profiles, History: f.history, Users: f.users}).RegisterRoutes(f.router.Group("/api/v1"))
	f.seed(t, user.ID, "sess-9")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/account", nil)
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}

	if _, err := f.profiles.GetByUser(ctx, user.ID); !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("profile not deleted: %v", err)
	}
	if _, err := f.users.GetByID(ctx, user.ID); !errors.Is(err, users.ErrNotFound) {
		t.Fatalf("user not deleted: %v", err)
	}
	if _, err := f.history.Open(ctx, user.ID, "sess-9", generateddocs.KindCV); !errors.Is(err, generateddocs.ErrNotFound) {
		t.Fatalf("history not deleted: %v", err)
	}
}

func TestDeleteAccountForGuestWithoutUserRow(t *testing.T) {
	f := newFixture(t, "guest:44444444-4444-4444-4444-444444444444", true)
	f.seed(t, "guest:44444444-4444-4444-4444-444444444444", "sess-g")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/account", nil)
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestClaimWithTxUpdatesBothTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE profiles SET user_id").
		WithArgs("user-1", "guest:abc").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE cv_generations SET user_id").
		WithArgs("user-1", "guest:abc").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	svc := &Service{DB: db}
	result, err := svc.ClaimGuest(context.Background(), "guest:abc", "user-1")
	if err != nil {
		t.Fatalf("ClaimGuest: %v", err)
	}
	if !result.MigratedProfile || result.MigratedGenerations != 4 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
