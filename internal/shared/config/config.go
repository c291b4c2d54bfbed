package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cv-tailor/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string
	DatabaseURL     string
	DBPool          DBPool

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	MinIOEndpoint   string
	MinIOAccessKey  string
	MinIOSecretKey  string
	MinIOBucket     string
	MinIOUseSSL     bool

	SessionStore         string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration

	OpenAIAPIKey  string
	LLMModel      string
	OpenAITimeout time.Duration
	FetchTimeout  time.Duration
	ChromePath    string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
	JWTSecret          string
}

// DBPool tunes the database/sql pool. Zero values keep the process defaults.
type DBPool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// IsProduction reports whether ENV resolved to production.
func (c Config) IsProduction() bool { return c.Env == "production" }

// Load reads configuration from the environment, then the optional YAML file
// named by CONFIG_FILE, then defaults.
func Load() (Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile is Load with an explicit YAML file path. An empty path skips the file.
func LoadFile(path string) (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	file, err := readFile(path)
	if err != nil {
		return Config{}, err
	}
	src := source{file: file}

	cfg := Config{
		Port:            src.str("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(src.str("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:             normalizeEnv(src.str("ENV", "dev")),
		DatabaseURL:     src.str("DATABASE_URL", ""),
		DBPool: DBPool{
			MaxOpenConns:    src.integer("DB_MAX_OPEN_CONNS", 0),
			MaxIdleConns:    src.integer("DB_MAX_IDLE_CONNS", 0),
			ConnMaxLifetime: src.duration("DB_CONN_MAX_LIFETIME", 0),
			ConnMaxIdleTime: src.duration("DB_CONN_MAX_IDLE_TIME", 0),
			PingTimeout:     src.duration("DB_PING_TIMEOUT", 0),
		},

		ObjectStoreType: normalizeStoreType(src.str("OBJECT_STORE", "local")),
		LocalStoreDir:   src.str("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       src.str("AWS_REGION", ""),
		S3Bucket:        src.str("S3_BUCKET", ""),
		S3Prefix:        src.str("S3_PREFIX", ""),
		SSEKMSKeyID:     src.str("SSE_KMS_KEY_ID", ""),
		MinIOEndpoint:   src.str("MINIO_ENDPOINT", ""),
		MinIOAccessKey:  src.str("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:  src.str("MINIO_SECRET_KEY", ""),
		MinIOBucket:     src.str("MINIO_BUCKET", "cv-tailor"),
		MinIOUseSSL:     src.boolean("MINIO_USE_SSL", false),

		SessionStore:         normalizeSessionStore(src.str("SESSION_STORE", "memory")),
		RedisAddr:            src.str("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        src.str("REDIS_PASSWORD", ""),
		RedisDB:              src.integer("REDIS_DB", 0),
		SessionTTL:           src.duration("SESSION_TTL", time.Hour),
		SessionSweepInterval: src.duration("SESSION_SWEEP_INTERVAL", 10*time.Minute),

		OpenAIAPIKey:  src.str("OPENAI_API_KEY", ""),
		LLMModel:      src.str("LLM_MODEL", "gpt-4o-mini"),
		OpenAITimeout: time.Duration(src.integer("OPENAI_TIMEOUT_SECONDS", 120)) * time.Second,
		FetchTimeout:  src.duration("FETCH_TIMEOUT", 15*time.Second),
		ChromePath:    src.str("CHROME_PATH", ""),

		GoogleClientID:     src.str("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: src.str("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  src.str("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      src.str("UI_REDIRECT_URL", ""),
		JWTSecret:          src.str("JWT_SECRET", ""),
	}

	if cfg.IsProduction() && cfg.DatabaseURL == "" {
		telemetry.Error("config.missing_database_url", map[string]any{"env": cfg.Env})
	}
	if cfg.ObjectStoreType == "s3" && cfg.S3Bucket == "" {
		return Config{}, fmt.Errorf("S3_BUCKET is required when OBJECT_STORE=s3")
	}
	if cfg.ObjectStoreType == "minio" && cfg.MinIOEndpoint == "" {
		return Config{}, fmt.Errorf("MINIO_ENDPOINT is required when OBJECT_STORE=minio")
	}
	return cfg, nil
}

// source resolves a key from the environment first, then the YAML file.
type source struct {
	file map[string]string
}

func (s source) lookup(key string) (string, bool) {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val, true
	}
	if val, ok := s.file[key]; ok && val != "" {
		return val, true
	}
	return "", false
}

func (s source) str(key, def string) string {
	if val, ok := s.lookup(key); ok {
		return val
	}
	return def
}

func (s source) integer(key string, def int) int {
	val, ok := s.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		telemetry.Error("config.invalid_value", map[string]any{"key": key, "value": val})
		return def
	}
	return n
}

func (s source) boolean(key string, def bool) bool {
	val, ok := s.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		telemetry.Error("config.invalid_value", map[string]any{"key": key, "value": val})
		return def
	}
	return b
}

// duration accepts Go duration strings ("90s", "1h") or a bare number of seconds.
func (s source) duration(key string, def time.Duration) time.Duration {
	val, ok := s.lookup(key)
	if !ok {
		return def
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		telemetry.Error("config.invalid_value", map[string]any{"key": key, "value": val})
		return def
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeSessionStore(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), "redis") {
		return "redis"
	}
	return "memory"
}
