package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cv-tailor/internal/shared/auth"
	"cv-tailor/internal/shared/server/respond"
)

const (
	userIDKey      = "userId"
	userEmailKey   = "userEmail"
	userNameKey    = "userName"
	userPictureKey = "userPicture"
	isGuestKey     = "isGuest"
	sessionIDKey   = "sessionId"
)

// TokenVerifier checks bearer tokens.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// publicPrefixes are reachable without identity.
var publicPrefixes = []string{
	"/api/v1/health",
	"/api/v1/metrics",
	"/api/v1/auth/",
}

// Auth validates bearer tokens or guest headers and stores identity in context.
// Guests are identified as "guest:<uuid>".
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		for _, prefix := range publicPrefixes {
			if strings.HasPrefix(path, prefix) {
				// Public routes still see a valid token, for example on logout.
				if claims, ok := bearerClaims(c, verifier); ok {
					setClaims(c, claims)
				}
				c.Next()
				return
			}
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader != "" {
			claims, ok := bearerClaims(c, verifier)
			if !ok {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			setClaims(c, claims)
			c.Next()
			return
		}

		guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
		if guestID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}
		if _, err := uuid.Parse(guestID); err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "X-Guest-Id must be a UUID", nil)
			return
		}

		c.Set(userIDKey, GuestPrefix+strings.ToLower(guestID))
		c.Set(isGuestKey, true)
		c.Next()
	}
}

// GuestPrefix marks guest user ids.
const GuestPrefix = "guest:"

// IsGuestID reports whether userID belongs to a guest.
func IsGuestID(userID string) bool {
	return strings.HasPrefix(userID, GuestPrefix)
}

func bearerClaims(c *gin.Context, verifier TokenVerifier) (auth.Claims, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") || verifier == nil {
		return auth.Claims{}, false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
	if token == "" {
		return auth.Claims{}, false
	}
	claims, err := verifier.Verify(token)
	if err != nil {
		return auth.Claims{}, false
	}
	return claims, true
}

func setClaims(c *gin.Context, claims auth.Claims) {
	c.Set(userIDKey, claims.Sub)
	if claims.Email != "" {
		c.Set(userEmailKey, claims.Email)
	}
	if claims.Name != "" {
		c.Set(userNameKey, claims.Name)
	}
	if claims.Picture != "" {
		c.Set(userPictureKey, claims.Picture)
	}
	c.Set(isGuestKey, false)
}

// IsGuest reports whether the caller was identified by X-Guest-Id.
func IsGuest(c *gin.Context) bool {
	v, ok := c.Get(isGuestKey)
	if !ok {
		return false
	}
	guest, _ := v.(bool)
	return guest
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userEmailKey)
	if email, ok := val.(string); ok {
		return email
	}
	return ""
}

// UserNameFromContext fetches the user name set by the auth middleware.
func UserNameFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userNameKey)
	if name, ok := val.(string); ok {
		return name
	}
	return ""
}

// UserPictureFromContext fetches the user picture set by the auth middleware.
func UserPictureFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userPictureKey)
	if picture, ok := val.(string); ok {
		return picture
	}
	return ""
}

// SetSessionID records the generation session handled by this request for logging.
func SetSessionID(c *gin.Context, id string) {
	c.Set(sessionIDKey, id)
}
