//	@title			Filedrop API
//	@version		1.0
//	@description	Password-gated file upload and sharing service.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/filedrop/service/internal/alias"
	"github.com/filedrop/service/internal/auth"
	"github.com/filedrop/service/internal/botcheck"
	"github.com/filedrop/service/internal/config"
	"github.com/filedrop/service/internal/db"
	appMiddleware "github.com/filedrop/service/internal/middleware"
	"github.com/filedrop/service/internal/object"
	"github.com/filedrop/service/internal/response"
	"github.com/filedrop/service/internal/storage"

	_ "github.com/filedrop/service/docs/swagger"
)

func main() {
	cfg := config.Load()

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
	}

	store, err := storage.NewMinioStore(
		cfg.StorageEndpoint,
		cfg.StorageAccessKey,
		cfg.StorageSecretKey,
		cfg.StorageBucket,
		cfg.StorageUseSSL,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("object storage init failed")
	}

	// The alias index is optional: without a database the service still
	// uploads and serves files, just without short links.
	var aliasSvc *alias.Service
	var alloc *alias.Allocator
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		defer pool.Close()

		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("database migration failed")
		}

		idx := alias.NewRepository(pool)
		alloc = alias.NewAllocator(idx, cfg.SlugRetries)
		aliasSvc = alias.NewService(idx, alloc, store, cfg.PublicBaseURL)
	} else {
		log.Warn().Msg("no DATABASE_URL configured, short links disabled")
	}

	var verifier botcheck.Verifier
	if cfg.TurnstileSecretKey != "" {
		verifier = botcheck.NewTurnstile(cfg.TurnstileSecretKey)
	}

	// Wire dependencies: store/index → service → handler
	objectSvc := object.NewService(store, alloc, cfg)
	objectHandler := object.NewHandler(objectSvc, verifier)

	authSvc := auth.NewService(cfg)
	authHandler := auth.NewHandler(authSvc)

	var aliasHandler *alias.Handler
	if aliasSvc != nil {
		aliasHandler = alias.NewHandler(aliasSvc)
	}

	notConfigured := func(w http.ResponseWriter, r *http.Request) {
		response.BadGateway(w, "short links not configured")
	}

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(appMiddleware.Metrics())
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", promhttp.Handler())

	// Swagger UI — available at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// Public download and short-link resolution
	r.Get("/f/*", objectHandler.Download)
	if aliasHandler != nil {
		r.Get("/s/{slug}", aliasHandler.Resolve)
	} else {
		r.Get("/s/{slug}", notConfigured)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		// Password-gated admin endpoints
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))
			r.Post("/upload", objectHandler.Upload)
			r.Get("/objects", objectHandler.List)
			r.Delete("/objects", objectHandler.Delete)
			if aliasHandler != nil {
				r.Post("/share", aliasHandler.Share)
				r.Delete("/aliases/{slug}", aliasHandler.Unbind)
			} else {
				r.Post("/share", notConfigured)
				r.Delete("/aliases/{slug}", notConfigured)
			}
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Minute,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-quit
	log.Info().Msg("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}
