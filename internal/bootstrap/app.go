package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"cv-tailor/internal/account"
	googleauth "cv-tailor/internal/auth"
	"cv-tailor/internal/cvgen"
	"cv-tailor/internal/fetch"
	"cv-tailor/internal/generateddocs"
	"cv-tailor/internal/llm"
	openai "cv-tailor/internal/llm/openai"
	"cv-tailor/internal/normalize"
	"cv-tailor/internal/onboarding"
	"cv-tailor/internal/profile"
	"cv-tailor/internal/render"
	"cv-tailor/internal/services/health"
	"cv-tailor/internal/sessions"
	sharedauth "cv-tailor/internal/shared/auth"
	"cv-tailor/internal/shared/config"
	"cv-tailor/internal/shared/server"
	"cv-tailor/internal/shared/server/middleware"
	"cv-tailor/internal/shared/storage/db"
	"cv-tailor/internal/shared/storage/object"
	localstore "cv-tailor/internal/shared/storage/object/local"
	miniostore "cv-tailor/internal/shared/storage/object/minio"
	s3store "cv-tailor/internal/shared/storage/object/s3"
	"cv-tailor/internal/shared/telemetry"
	"cv-tailor/internal/tailor"
	"cv-tailor/internal/users"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Store    object.ObjectStore
	Sessions sessions.Store
	Sweeper  *sessions.Sweeper
	Signer   *sharedauth.Signer
	LLM      llm.Completer

	UsersRepo       users.Repo
	ProfilesRepo    profile.Repo
	GenerationsRepo generateddocs.Repo

	UsersService       *users.Service
	ProfileService     *onboarding.Service
	GenerationsService *generateddocs.Service
	GenerateService    *cvgen.Service
	AccountService     *account.Service

	PDFEngine render.PDFEngine
	Browser   fetch.BrowserFetcher
}

// Overrides replaces external collaborators, mainly for tests.
type Overrides struct {
	LLM       llm.Completer
	PDFEngine render.PDFEngine
	Browser   fetch.BrowserFetcher
	Fetcher   cvgen.Fetcher
	LinkedIn  onboarding.ProfilePageFetcher
	Store     object.ObjectStore
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	return BuildWith(cfg, Overrides{})
}

// BuildWith is Build with selected collaborators replaced.
func BuildWith(cfg config.Config, ov Overrides) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	signer, err := sharedauth.NewSigner(cfg.JWTSecret, cfg.IsProduction())
	if err != nil {
		return nil, err
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store := ov.Store
	if store == nil {
		if store, err = buildStore(ctx, cfg); err != nil {
			return nil, err
		}
	}

	sessionStore, err := buildSessions(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:    cfg,
		DB:        sqlDB,
		Store:     store,
		Sessions:  sessionStore,
		Sweeper:   sessions.NewSweeper(sessionStore, cfg.SessionTTL, cfg.SessionSweepInterval),
		Signer:    signer,
		LLM:       ov.LLM,
		PDFEngine: ov.PDFEngine,
		Browser:   ov.Browser,
	}
	if app.LLM == nil {
		if app.LLM, err = buildLLM(cfg); err != nil {
			return nil, err
		}
	}
	if app.PDFEngine == nil {
		app.PDFEngine = render.NewChromedpEngine(cfg.ChromePath)
	}
	if app.Browser == nil {
		app.Browser = fetch.NewChromeFetcher(cfg.ChromePath)
	}

	buildServices(app, ov)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:            cfg,
		Tokens:            signer,
		Health:            health.NewService(app.GenerateService.Configured),
		UserHandler:       users.NewHandler(app.UsersService, signer),
		GoogleAuth:        buildGoogleAuth(cfg, app.UsersService, signer, app.AccountService),
		AccountHandler:    account.NewHandler(app.AccountService),
		ProfileHandler:    onboarding.NewHandler(app.ProfileService),
		GenerateHandler:   cvgen.NewHandler(app.GenerateService, app.ProfilesRepo),
		GenerationHandler: generateddocs.NewHandler(app.GenerationsService),
		RateLimiter:       middleware.NewRateLimiter(nil),
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.DefaultServerOptions().Merge(db.Options(cfg.DBPool)))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Error("bootstrap.memory_repositories", map[string]any{
				"reason": "database connect failed",
				"error":  err.Error(),
			})
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, miniostore.Config{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
			Region:    cfg.AWSRegion,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildSessions(ctx context.Context, cfg config.Config) (sessions.Store, error) {
	if cfg.SessionStore != "redis" {
		return sessions.NewMemoryStore(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}
	return sessions.NewRedisStore(client, cfg.SessionTTL)
}

func buildLLM(cfg config.Config) (llm.Completer, error) {
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		telemetry.Info("bootstrap.llm_unconfigured", map[string]any{"reason": "OPENAI_API_KEY empty"})
		return llm.PlaceholderClient{}, nil
	}
	client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
	if err != nil {
		return nil, err
	}
	return llm.WithRetry(client.WithTimeout(cfg.OpenAITimeout)), nil
}

func buildGoogleAuth(cfg config.Config, accounts googleauth.AccountStore, tokens googleauth.TokenIssuer, guests googleauth.GuestClaimer) *googleauth.GoogleService {
	return googleauth.NewGoogleService(googleauth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		UIRedirect:   cfg.UIRedirectURL,
	}, accounts, tokens, guests)
}

func buildServices(app *App, ov Overrides) {
	if app.DB != nil {
		app.UsersRepo = &users.PGRepo{DB: app.DB}
		app.ProfilesRepo = &profile.PGRepo{DB: app.DB}
		app.GenerationsRepo = &generateddocs.PGRepo{DB: app.DB}
	} else {
		app.UsersRepo = users.NewMemoryRepo()
		app.ProfilesRepo = profile.NewMemoryRepo()
		app.GenerationsRepo = generateddocs.NewMemoryRepo()
	}

	var fetcher cvgen.Fetcher = fetch.New(app.Config.FetchTimeout)
	if ov.Fetcher != nil {
		fetcher = ov.Fetcher
	}
	var linkedIn onboarding.ProfilePageFetcher = fetch.NewLinkedInFetcher(app.Config.FetchTimeout, app.Browser)
	if ov.LinkedIn != nil {
		linkedIn = ov.LinkedIn
	}

	app.UsersService = users.NewService(app.UsersRepo)
	app.ProfileService = &onboarding.Service{
		Repo:       app.ProfilesRepo,
		Normalizer: normalize.New(app.LLM),
		LinkedIn:   linkedIn,
		Store:      app.Store,
	}
	app.GenerationsService = &generateddocs.Service{
		Repo:  app.GenerationsRepo,
		Store: app.Store,
	}
	app.GenerateService = &cvgen.Service{
		Tailor:   tailor.New(app.LLM),
		Fetcher:  fetcher,
		Renderer: render.New(app.PDFEngine),
		Sessions: app.Sessions,
		Archive:  app.GenerationsService,
	}
	app.AccountService = &account.Service{
		Profiles: app.ProfileService,
		History:  app.GenerationsService,
		Users:    app.UsersService,
		DB:       app.DB,
	}
}

// Close releases the database pool.
func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
