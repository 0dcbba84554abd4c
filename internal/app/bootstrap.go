package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"skillswap/internal/auth"
	"skillswap/internal/config"
	"skillswap/internal/db"
	"skillswap/internal/observability"
	"skillswap/internal/skill"
)

const (
	Name    = "Skill Exchange API"
	Version = "1.0.0"
)

type Options struct {
	RunMigrations bool
}

type Runtime struct {
	Handler http.Handler
	Close   func() error
}

// Pinger reports database reachability for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies is everything the router needs. Build fills it from a live
// pool; tests fill it with fakes.
type Dependencies struct {
	Logger   *observability.Logger
	Metrics  *observability.Metrics
	Database Pinger
	Auth     *auth.Service
	Cookies  auth.CookieConfig
	Skills   skill.Store
}

func Build(ctx context.Context, cfg *config.Config, options Options) (*Runtime, error) {
	logger := observability.NewLogger()

	if err := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv, Version); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	// Config-derived components fail before the database is touched.
	hasher, err := auth.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("init password hasher: %w", err)
	}

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:     cfg.JWTSecret,
		Algorithm:  cfg.JWTAlgorithm,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("init token service: %w", err)
	}

	metrics := observability.NewMetrics()
	tokens.WithObserver(metrics.ObserveTokenVerification)

	if options.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("migrations_applied", nil)
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{
		DatabaseURL:     cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		return nil, err
	}

	authService := auth.NewService(auth.NewRepository(pool), hasher, tokens, logger)

	handler := NewRouter(Dependencies{
		Logger:   logger,
		Metrics:  metrics,
		Database: pool,
		Auth:     authService,
		Cookies: auth.CookieConfig{
			AccessMaxAge:  cfg.AccessTokenTTL,
			RefreshMaxAge: cfg.RefreshCookieMaxAge,
			Secure:        cfg.CookieSecure,
		},
		Skills: skill.NewRepository(pool),
	})

	return &Runtime{
		Handler: handler,
		Close: func() error {
			observability.FlushSentry()
			pool.Close()
			return nil
		},
	}, nil
}

func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	authHandler := auth.NewHandler(deps.Auth, deps.Cookies, logger)
	skillHandler := skill.NewHandler(deps.Skills, logger)
	guard := func(next http.HandlerFunc) http.Handler {
		return auth.Middleware(deps.Auth.Tokens(), logger, next)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", infoHandler)
	mux.HandleFunc("GET /health", healthHandler(deps.Database))
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	mux.HandleFunc("POST /register", authHandler.Register)
	mux.HandleFunc("POST /login", authHandler.Login)
	mux.HandleFunc("POST /refresh", authHandler.Refresh)
	mux.Handle("GET /me", guard(authHandler.Me))

	mux.HandleFunc("GET /skills", skillHandler.ListSkills)
	mux.HandleFunc("GET /skills/{id}", skillHandler.GetSkill)
	mux.Handle("POST /skills", guard(skillHandler.CreateSkill))
	mux.Handle("PATCH /skills/{id}", guard(skillHandler.UpdateSkill))
	mux.Handle("DELETE /skills/{id}", guard(skillHandler.DeleteSkill))

	return observability.RecoverMiddleware(logger, deps.Metrics, observability.RequestLoggingMiddleware(logger, deps.Metrics, mux))
}

func infoHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    Name,
		"version": Version,
		"endpoints": map[string]string{
			"register": "POST /register",
			"login":    "POST /login",
			"refresh":  "POST /refresh",
			"me":       "GET /me",
			"skills":   "GET|POST /skills, GET|PATCH|DELETE /skills/{id}",
			"health":   "GET /health",
			"metrics":  "GET /metrics",
		},
	})
}

func healthHandler(database Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := database.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		writeJSON(w, status, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
