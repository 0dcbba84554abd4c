// Package config builds the process-wide settings once at startup.
// Nothing below the entry points reads the environment directly.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime settings for the API.
type Config struct {
	Port   string
	AppEnv string

	DatabaseURL            string
	DBMaxConns             int32
	DBMinConns             int32
	DBConnMaxLifetime      time.Duration
	DBConnMaxIdleTime      time.Duration
	RunMigrationsOnStartup bool

	SentryDSN string

	JWTSecret           string
	JWTAlgorithm        string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	RefreshCookieMaxAge time.Duration
	CookieSecure        bool
	BcryptCost          int
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads the configuration through getenv. DATABASE_URL, JWT_SECRET
// and JWT_ALGORITHM are required.
func LoadFrom(getenv func(string) string) (*Config, error) {
	e := env{getenv: getenv}

	databaseURL, err := DatabaseURLFrom(getenv)
	if err != nil {
		return nil, err
	}
	jwtSecret, err := e.must("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	jwtAlgorithm, err := e.must("JWT_ALGORITHM")
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:   e.orDefault("PORT", "8080"),
		AppEnv: e.orDefault("APP_ENV", "development"),

		DatabaseURL:            databaseURL,
		DBMaxConns:             int32(e.intOrDefault("DB_MAX_CONNS", 10)),
		DBMinConns:             int32(e.intOrDefault("DB_MIN_CONNS", 0)),
		DBConnMaxLifetime:      time.Duration(e.intOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30)) * time.Minute,
		DBConnMaxIdleTime:      time.Duration(e.intOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10)) * time.Minute,
		RunMigrationsOnStartup: e.boolOrDefault("RUN_MIGRATIONS_ON_STARTUP", false),

		SentryDSN: e.orDefault("SENTRY_DSN", ""),

		JWTSecret:           jwtSecret,
		JWTAlgorithm:        strings.ToUpper(jwtAlgorithm),
		AccessTokenTTL:      time.Duration(e.intOrDefault("ACCESS_TOKEN_TTL_SECONDS", 900)) * time.Second,
		RefreshTokenTTL:     time.Duration(e.intOrDefault("REFRESH_TOKEN_TTL_HOURS", 24)) * time.Hour,
		RefreshCookieMaxAge: time.Duration(e.intOrDefault("REFRESH_COOKIE_MAX_AGE_SECONDS", 604800)) * time.Second,
		CookieSecure:        e.boolOrDefault("COOKIE_SECURE", false),
		BcryptCost:          e.intOrDefault("BCRYPT_COST", 12),
	}, nil
}

// DatabaseURL reads only the connection string, for commands such as
// migrations that need nothing else.
func DatabaseURL() (string, error) {
	return DatabaseURLFrom(os.Getenv)
}

func DatabaseURLFrom(getenv func(string) string) (string, error) {
	return env{getenv: getenv}.must("DATABASE_URL")
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%s", c.Port)
}

type env struct {
	getenv func(string) string
}

func (e env) value(name string) string {
	return strings.TrimSpace(e.getenv(name))
}

func (e env) must(name string) (string, error) {
	value := e.value(name)
	if value == "" {
		return "", fmt.Errorf("missing required env: %s", name)
	}
	return value, nil
}

func (e env) orDefault(name, fallback string) string {
	value := e.value(name)
	if value == "" {
		return fallback
	}
	return value
}

func (e env) intOrDefault(name string, fallback int) int {
	value := e.value(name)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func (e env) boolOrDefault(name string, fallback bool) bool {
	switch strings.ToLower(e.value(name)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
