package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"catalog-api/internal/auth"
	"catalog-api/internal/config"
	"catalog-api/internal/db"
	"catalog-api/internal/maintenance"
	"catalog-api/internal/observability"
	"catalog-api/internal/product"
)

type Runtime struct {
	Handler http.Handler
	Close   func() error
}

// Build opens the database, applies migrations when configured and wires every route.
func Build(cfg *config.Config) (*Runtime, error) {
	logger := observability.NewLogger()

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Env); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	database, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(cfg.DBMaxOpenConns)
	database.SetMaxIdleConns(cfg.DBMaxIdleConns)
	database.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	database.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.RunMigrations(ctx, database); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	loginLimiter := auth.NewLoginRateLimiter(cfg.LoginRateLimitMax, cfg.LoginRateLimitWindow)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		loginLimiter = auth.NewRedisLoginRateLimiter(redisClient, cfg.LoginRateLimitMax, cfg.LoginRateLimitWindow)
		logger.Info("login_rate_limit_backend", map[string]any{"backend": "redis"})
	}

	return &Runtime{
		Handler: NewHandler(cfg, database, loginLimiter, logger),
		Close: func() error {
			observability.FlushSentry()
			var errs []error
			if redisClient != nil {
				errs = append(errs, redisClient.Close())
			}
			errs = append(errs, database.Close())
			return errors.Join(errs...)
		},
	}, nil
}

// NewHandler builds the routed HTTP handler on top of an open database.
func NewHandler(cfg *config.Config, database *sql.DB, loginLimiter *auth.LoginRateLimiter, logger *observability.Logger) http.Handler {
	authRepo := auth.NewRepository(database)
	tokens := auth.NewTokenManager(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := auth.NewService(authRepo, tokens)
	authService.WithBcryptCost(cfg.BcryptCost)
	authHandler := auth.NewHandler(authService)

	productHandler := product.NewHandler(product.NewRepository(database))
	cleanupHandler := maintenance.NewCleanupHandler(authRepo, logger, cfg.CronSecret, cfg.RefreshCleanupBatchSize)

	protected := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(authService, h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users/register", authHandler.Register)
	mux.Handle("POST /api/users/login", loginLimiter.Middleware(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("POST /api/users/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/users/logout", authHandler.Logout)
	mux.Handle("GET /api/user/info", protected(authHandler.Info))
	mux.Handle("GET /api/users/{id}", protected(authHandler.UserByID))

	mux.HandleFunc("GET /api/products", productHandler.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", productHandler.GetProduct)
	mux.Handle("POST /api/products", protected(productHandler.CreateProduct))
	mux.Handle("PUT /api/products/{id}", protected(productHandler.UpdateProduct))
	mux.Handle("DELETE /api/products/{id}", protected(productHandler.DeleteProduct))
	mux.HandleFunc("GET /api/categories", productHandler.ListCategories)

	mux.HandleFunc("GET /internal/maintenance/cleanup", cleanupHandler.Handle)
	mux.HandleFunc("POST /internal/maintenance/cleanup", cleanupHandler.Handle)
	mux.HandleFunc("GET /health", healthHandler(database))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         600,
	}).Handler(mux)

	return observability.RecoverMiddleware(logger, observability.RequestLoggingMiddleware(logger, corsHandler))
}

func healthHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := database.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
