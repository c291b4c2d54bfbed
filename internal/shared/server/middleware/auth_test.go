package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"cv-tailor/internal/shared/auth"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *auth.Signer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	signer, err := auth.NewSigner("test-secret", false)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	router := gin.New()
	router.Use(Auth(signer))
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": UserIDFromContext(c), "guest": IsGuest(c)})
	}
	router.GET("/api/v1/profile", handler)
	router.GET("/api/v1/health", handler)
	router.OPTIONS("/api/v1/profile", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router, signer
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	router, _ := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/profile", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthIdentities(t *testing.T) {
	router, signer := newAuthRouter(t)
	token, err := signer.Sign(auth.Claims{Sub: "user-1"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		headers map[string]string
		status  int
	}{
		{"bearer", "/api/v1/profile", map[string]string{"Authorization": "Bearer " + token}, http.StatusOK},
		{"bad bearer", "/api/v1/profile", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"non bearer scheme", "/api/v1/profile", map[string]string{"Authorization": "Basic abc"}, http.StatusUnauthorized},
		{"guest uuid", "/api/v1/profile", map[string]string{"X-Guest-Id": testGuestID}, http.StatusOK},
		{"guest not uuid", "/api/v1/profile", map[string]string{"X-Guest-Id": "guest1"}, http.StatusUnauthorized},
		{"anonymous", "/api/v1/profile", nil, http.StatusUnauthorized},
		{"public health", "/api/v1/health", nil, http.StatusOK},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tt.status {
				t.Fatalf("expected %d, got %d (%s)", tt.status, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestIsGuestID(t *testing.T) {
	if !IsGuestID("guest:" + testGuestID) {
		t.Fatalf("expected guest id")
	}
	if IsGuestID("user-1") {
		t.Fatalf("expected registered id")
	}
}
