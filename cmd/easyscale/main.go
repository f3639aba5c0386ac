package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/easyscalepro/easyscale-api/internal/config"
	"github.com/easyscalepro/easyscale-api/internal/domain"
	"github.com/easyscalepro/easyscale-api/internal/handler"
	"github.com/easyscalepro/easyscale-api/internal/infra/cache"
	"github.com/easyscalepro/easyscale-api/internal/infra/observability"
	"github.com/easyscalepro/easyscale-api/internal/infra/resilience"
	"github.com/easyscalepro/easyscale-api/internal/infra/supabase"
	"github.com/easyscalepro/easyscale-api/internal/service"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Int("admin_emails", len(cfg.AdminEmails)),
	)

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		logger.Fatal("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "easyscale-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("supabase")

	// --- Supabase client ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	supabaseClient := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		cb,
		resilienceCfg,
		logger,
	)
	logger.Info("supabase backend configured", zap.String("supabase_url", cfg.SupabaseURL))

	// --- Services ---
	commandCache := cache.New[[]domain.Command](cfg.CacheTTL)
	profileCache := cache.New[[]domain.Profile](cfg.CacheTTL)

	users := service.NewUserContext(supabaseClient, profileCache, metrics, logger)
	commands := service.NewCommandContext(supabaseClient, commandCache, metrics, logger)
	authSvc := service.NewAuthService(supabaseClient, supabaseClient, users, cfg.AdminEmails, metrics, logger)

	svcs := handler.Services{
		Auth:      authSvc,
		Commands:  commands,
		Users:     users,
		Favorites: service.NewFavoriteService(supabaseClient, supabaseClient, logger),
		Admin:     service.NewAdminService(supabaseClient, supabaseClient, supabaseClient, users, cfg.AdminEmails, logger),
		Reports:   service.NewReportService(supabaseClient, supabaseClient, supabaseClient, metrics, logger),
	}

	// --- Router ---
	authMw := handler.NewAuthMiddleware(cfg.SupabaseJWTSecret, authSvc, logger)
	router := handler.NewRouter(svcs, authMw, metrics, logger)

	// --- Warm the catalog snapshot; sign-ins work either way ---
	warmCtx, warmCancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	if err := commands.Load(warmCtx); err != nil {
		logger.Warn("catalog warm-up failed, first listing will fetch", zap.Error(err))
	}
	warmCancel()

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
