package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		Driver         string
		DSN            string
		Host           string
		Port           string
		User           string
		Password       string
		Name           string
		SQLitePath     string
		ConnectRetries int
		ConnectBackoff time.Duration
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	HTTP struct {
		Host           string
		Port           string
		RequestTimeout time.Duration
		CORSOrigins    []string
	}

	RateLimit struct {
		Requests int
		Window   time.Duration
		Disabled bool
	}

	GRPC struct {
		Host string
		Port string
	}

	Auth struct {
		JWTSecret     string
		TokenTTL      time.Duration
		ResetTokenTTL time.Duration
	}

	Catalog struct {
		APIKey    string
		BaseURL   string
		Timeout   time.Duration
		RateLimit float64
		CacheTTL  time.Duration
	}
}

func New() *Config {
	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "production")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "movie_api")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", "mysql"))
	cfg.DB.SQLitePath = getEnvDefault("SQLITE_PATH", "movie-rating.db")
	cfg.DB.ConnectRetries = getEnvInt("DB_CONNECT_RETRIES", 10)
	cfg.DB.ConnectBackoff = getEnvDuration("DB_CONNECT_BACKOFF", 5*time.Second)
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "movie_rating")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// HTTP
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "0.0.0.0")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", getEnvDefault("PORT", "5001"))
	cfg.HTTP.RequestTimeout = getEnvDuration("HTTP_REQUEST_TIMEOUT", 30*time.Second)
	cfg.HTTP.CORSOrigins = splitList(getEnvDefault("CORS_ALLOWED_ORIGINS",
		"http://localhost:3000,http://127.0.0.1:3000,http://localhost:5500,http://127.0.0.1:5500"))

	cfg.RateLimit.Requests = getEnvInt("RATE_LIMIT_REQUESTS", 100)
	cfg.RateLimit.Window = getEnvDuration("RATE_LIMIT_WINDOW", time.Minute)
	cfg.RateLimit.Disabled = isTruthy(os.Getenv("RATE_LIMIT_DISABLED"))

	// gRPC health listener
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// Auth
	cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.Auth.TokenTTL = getEnvDuration("TOKEN_TTL", time.Hour)
	cfg.Auth.ResetTokenTTL = getEnvDuration("RESET_TOKEN_TTL", 15*time.Minute)

	// Movie catalog (TMDB)
	cfg.Catalog.APIKey = os.Getenv("TMDB_API_KEY")
	cfg.Catalog.BaseURL = strings.TrimRight(getEnvDefault("TMDB_BASE_URL", "https://api.themoviedb.org/3"), "/")
	cfg.Catalog.Timeout = getEnvDuration("TMDB_TIMEOUT", 10*time.Second)
	cfg.Catalog.RateLimit = getEnvFloat("TMDB_RATE_LIMIT", 40)
	cfg.Catalog.CacheTTL = getEnvDuration("CATALOG_CACHE_TTL", 10*time.Minute)

	return cfg
}

// IsDevelopment reports whether internal error detail may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	return c.App.ENV == "development"
}

// Validate checks settings the process cannot run without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("JWT_SECRET is required")
		}
		c.Auth.JWTSecret = "development-only-secret"
	}
	switch c.DB.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.Auth.TokenTTL <= 0 || c.Auth.ResetTokenTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	return nil
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v, err := strconv.Atoi(getEnvDefault(k, "")); err == nil {
		return v
	}
	return def
}

func getEnvFloat(k string, def float64) float64 {
	if v, err := strconv.ParseFloat(getEnvDefault(k, ""), 64); err == nil {
		return v
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnvDefault(k, "")); err == nil {
		return v
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
