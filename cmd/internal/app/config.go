package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"taskflow/cmd/internal/dbx"
	"taskflow/cmd/internal/realtime"
	"taskflow/cmd/security/password"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Config contains all runtime configuration loaded from environment variables.
// It is built once by LoadConfig and passed by value afterwards.
type Config struct {
	HTTPAddr    string `env:"TASKFLOW_HTTP_ADDR"`
	LogLevel    string `env:"TASKFLOW_LOG_LEVEL"`
	LogFormat   string `env:"TASKFLOW_LOG_FORMAT"`
	ProjectName string `env:"TASKFLOW_PROJECT_NAME"`
	APIPrefix   string `env:"TASKFLOW_API_PREFIX"`

	SecretKey           string        `env:"TASKFLOW_SECRET_KEY"`
	AccessTokenTTL      time.Duration `env:"TASKFLOW_ACCESS_TOKEN_TTL"`
	RequireStrongSecret bool          `env:"TASKFLOW_REQUIRE_STRONG_SECRET"`

	ReadHeaderTimeout time.Duration `env:"TASKFLOW_HTTP_READ_HEADER_TIMEOUT"`
	ReadTimeout       time.Duration `env:"TASKFLOW_HTTP_READ_TIMEOUT"`
	WriteTimeout      time.Duration `env:"TASKFLOW_HTTP_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `env:"TASKFLOW_HTTP_IDLE_TIMEOUT"`
	ShutdownTimeout   time.Duration `env:"TASKFLOW_HTTP_SHUTDOWN_TIMEOUT"`
	MaxHeaderBytes    int           `env:"TASKFLOW_HTTP_MAX_HEADER_BYTES"`
	MaxBodyBytes      int64         `env:"TASKFLOW_MAX_BODY_BYTES"`
	TrustProxy        bool          `env:"TASKFLOW_TRUST_PROXY"`

	DatabaseURL   string `env:"TASKFLOW_DATABASE_URL"`
	DBMaxConns    int32  `env:"TASKFLOW_DB_MAX_CONNS"`
	DBMinConns    int32  `env:"TASKFLOW_DB_MIN_CONNS"`
	DBSchema      string `env:"TASKFLOW_DB_SCHEMA"`
	RunMigrations bool   `env:"TASKFLOW_RUN_MIGRATIONS"`

	// ReadinessRequireDB makes /readyz return 503 unless a database is
	// configured and reachable.
	ReadinessRequireDB bool `env:"TASKFLOW_READINESS_REQUIRE_DB"`

	// CORSAllowedOrigins entries are exact origins or "scheme://host:*".
	// Empty disables CORS handling entirely.
	CORSAllowedOrigins   []string `env:"TASKFLOW_CORS_ALLOWED_ORIGINS" envSeparator:","`
	CORSAllowCredentials bool     `env:"TASKFLOW_CORS_ALLOW_CREDENTIALS"`
	CORSMaxAgeSeconds    int      `env:"TASKFLOW_CORS_MAX_AGE_SECONDS"`

	// Password and WS are filled by their packages' own loaders so each
	// applies its checks and normalization.
	Password password.Config
	WS       realtime.Config
}

// DefaultConfig returns the configuration used when no variables are set.
// SecretKey has no default.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    "0.0.0.0:8000",
		LogLevel:    "info",
		LogFormat:   "json",
		ProjectName: "TaskFlow API",
		APIPrefix:   "/api/v1",

		AccessTokenTTL: 30 * time.Minute,

		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		MaxHeaderBytes:    1 << 20,
		MaxBodyBytes:      1 << 20,

		DBMaxConns:    10,
		DBSchema:      "public",
		RunMigrations: true,

		CORSMaxAgeSeconds: 600,

		Password: password.DefaultConfig(),
		WS:       realtime.DefaultConfig(),
	}
}

// LoadConfig overlays TASKFLOW_* variables onto DefaultConfig and checks the result.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("app config: %w", err)
	}

	pw, err := password.FromEnv()
	if err != nil {
		return Config{}, err
	}
	cfg.Password = pw

	ws, err := realtime.ConfigFromEnv()
	if err != nil {
		return Config{}, err
	}
	cfg.WS = ws

	cfg = cfg.normalized()
	if err := cfg.Check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Check reports configuration that would make the server unusable.
func (c Config) Check() error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("app config: TASKFLOW_SECRET_KEY is required")
	}
	if c.AccessTokenTTL <= 0 {
		return errors.New("app config: TASKFLOW_ACCESS_TOKEN_TTL must be positive")
	}
	if c.DBMaxConns < 0 || c.DBMinConns < 0 || (c.DBMaxConns > 0 && c.DBMinConns > c.DBMaxConns) {
		return fmt.Errorf("app config: invalid pool bounds min=%d max=%d", c.DBMinConns, c.DBMaxConns)
	}
	if err := dbx.ValidSchema(c.DBSchema); err != nil {
		return fmt.Errorf("app config: TASKFLOW_DB_SCHEMA: %w", err)
	}
	return nil
}

func (c Config) normalized() Config {
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.DBSchema = strings.TrimSpace(c.DBSchema)
	if c.DBSchema == "" {
		c.DBSchema = "public"
	}

	c.APIPrefix = "/" + strings.Trim(strings.TrimSpace(c.APIPrefix), "/")
	if c.APIPrefix == "/" {
		c.APIPrefix = ""
	}

	origins := c.CORSAllowedOrigins[:0:0]
	for _, o := range c.CORSAllowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORSAllowedOrigins = origins
	return c
}
