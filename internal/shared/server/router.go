package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cv-tailor/internal/account"
	googleauth "cv-tailor/internal/auth"
	"cv-tailor/internal/cvgen"
	"cv-tailor/internal/generateddocs"
	"cv-tailor/internal/onboarding"
	"cv-tailor/internal/services/health"
	"cv-tailor/internal/shared/config"
	"cv-tailor/internal/shared/metrics"
	"cv-tailor/internal/shared/server/middleware"
	"cv-tailor/internal/shared/server/respond"
	"cv-tailor/internal/users"
)

// RouterDeps carries the handlers registered under /api/v1. Nil handlers are skipped.
type RouterDeps struct {
	Config            config.Config
	Tokens            middleware.TokenVerifier
	Health            *health.Service
	UserHandler       *users.Handler
	GoogleAuth        *googleauth.GoogleService
	AccountHandler    *account.Handler
	ProfileHandler    *onboarding.Handler
	GenerateHandler   *cvgen.Handler
	GenerationHandler *generateddocs.Handler
	RateLimiter       *middleware.RateLimiter
}

// DefaultRateLimits bounds the expensive endpoints per caller.
var DefaultRateLimits = map[string]middleware.RateLimitRule{
	middleware.RateGroupGenerate: {Rate: 0.1, Burst: 5},
	middleware.RateGroupFetch:    {Rate: 1, Burst: 10},
	middleware.RateGroupImport:   {Rate: 0.2, Burst: 5},
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Tokens),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    DefaultRateLimits,
			GroupFor: rateGroupFor,
			Limiter:  deps.RateLimiter,
		}),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, deps.Health.Status())
	})
	api.GET("/metrics", metrics.Handler())

	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(api)
	}
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.AccountHandler != nil {
		deps.AccountHandler.RegisterRoutes(api)
	}
	if deps.ProfileHandler != nil {
		deps.ProfileHandler.RegisterRoutes(api)
	}
	if deps.GenerateHandler != nil {
		deps.GenerateHandler.RegisterRoutes(api)
	}
	if deps.GenerationHandler != nil {
		deps.GenerationHandler.RegisterRoutes(api)
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})
	return r
}

// rateGroupFor maps a request to its rate limit group by route.
func rateGroupFor(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return ""
	}
	path := c.FullPath()
	switch {
	case path == "/api/v1/generate":
		return middleware.RateGroupGenerate
	case strings.HasPrefix(path, "/api/v1/fetch/"):
		return middleware.RateGroupFetch
	case strings.HasPrefix(path, "/api/v1/profile/import"):
		return middleware.RateGroupImport
	default:
		return ""
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
