// Package main is the entry point for the FixABairro admin dashboard server.
// It serves the responsibles' API: sign-in, the filtered and paginated list of
// assigned problems with its realtime stream, status and field updates,
// reports, push registration and the WhatsApp notification relay.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/emanueledman/fixa-admin/internal/auth"
	"github.com/emanueledman/fixa-admin/internal/config"
	"github.com/emanueledman/fixa-admin/internal/database"
	"github.com/emanueledman/fixa-admin/internal/handlers"
	"github.com/emanueledman/fixa-admin/internal/middleware"
	"github.com/emanueledman/fixa-admin/internal/services"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	sugar.Infow("Starting FixABairro admin server",
		"port", cfg.Server.Port,
		"env", cfg.Server.Environment,
		"relay", cfg.RelayEnabled(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		sugar.Errorw("Server error", "error", err)
		stop()
		_ = logger.Sync()
		os.Exit(1)
	}
	sugar.Info("Server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Server.Environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	sugar := logger.Sugar()

	if cfg.Database.AutoMigrate {
		n, err := database.Migrate(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		sugar.Infow("Migrations applied", "count", n)
	}

	// Initialize database connection pool
	db, err := database.NewPool(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	cache := connectRedis(ctx, cfg.Redis.URL, sugar)

	// Initialize services
	hub := services.NewHub()
	toasts := services.NewToastNotifier(hub)
	problemSvc := services.NewProblemService(db, sugar)
	reportSvc := services.NewReportService(db, sugar)
	push := services.NewPushRegistrar(db, toasts, services.PushPolicy{
		VAPIDKey: cfg.Push.VAPIDKey,
		Attempts: cfg.Push.Attempts,
		Delay:    cfg.Push.Delay,
	}, sugar)
	listener := database.NewListener(db, database.ProblemsChannel, sugar)
	feed := services.NewChangeFeed(hub, problemSvc, listener, sugar)

	var (
		responsibleSvc *services.ResponsibleService
		limiter        middleware.Limiter
		healthCache    redis.Cmdable
	)
	if cache != nil {
		responsibleSvc = services.NewResponsibleService(db, cache, sugar)
		limiter = middleware.NewRedisLimiter(cache, cfg.RateLimit.RPM, time.Minute)
		healthCache = cache
	} else {
		responsibleSvc = services.NewResponsibleService(db, nil, sugar)
		limiter = middleware.NewMemoryLimiter(cfg.RateLimit.RPM, time.Minute)
	}

	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)
	google := auth.NewGoogleVerifier(cfg.Auth.GoogleClientID, cfg.Auth.GoogleClientSecret, cfg.Auth.GoogleRedirectURI, sugar)

	// Initialize handlers
	var relayHandler *handlers.RelayHandler
	if cfg.RelayEnabled() {
		client := services.NewRelayClient(cfg.Relay.BaseURL, cfg.Relay.InstanceID, cfg.Relay.Token, cfg.Relay.Timeout)
		relayHandler = handlers.NewRelayHandler(services.NewRelay(client, sugar), sugar)
	}

	problemHandler := handlers.NewProblemHandler(problemSvc, responsibleSvc, hub, feed, toasts, handlers.ProblemOptions{
		PageSize:   cfg.Dashboard.PageSize,
		Location:   cfg.Location(),
		ListPath:   handlers.ProblemsURL,
		ViewPath:   handlers.ViewURL,
		ActionPath: handlers.ProblemsURL,
	}, sugar)

	router := handlers.NewRouter(handlers.RouterDeps{
		Health:         handlers.NewHealthHandler(db, healthCache, cfg.Server.Version, sugar),
		Auth:           handlers.NewAuthHandler(responsibleSvc, google, tokens, sugar),
		Problems:       problemHandler,
		Reports:        handlers.NewReportHandler(reportSvc, sugar),
		Push:           handlers.NewPushHandler(push, sugar),
		Relay:          relayHandler,
		Tokens:         tokens,
		Profiles:       responsibleSvc,
		Limiter:        limiter,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		DefaultLocale:  cfg.Dashboard.DefaultLocale,
		RequestTimeout: cfg.Server.RequestTimeout,
		Logger:         logger,
	})

	// WriteTimeout stays unset so event streams are not cut off.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	// Open event streams never go idle; end them when shutdown starts.
	srv.RegisterOnShutdown(problemHandler.CloseStreams)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infof("Server listening on :%d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Realtime snapshots for open streams
	g.Go(func() error {
		return feed.Start(gctx, cfg.Dashboard.ResyncEvery)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		sugar.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// connectRedis returns nil when Redis is not configured or not reachable;
// callers fall back to in-process state.
func connectRedis(ctx context.Context, url string, logger *zap.SugaredLogger) *redis.Client {
	if url == "" {
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Warnw("Invalid REDIS_URL, continuing without Redis", "error", err)
		return nil
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warnw("Redis unreachable, continuing without it", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}
