// Package main runs the WhatsApp notification relay on its own port. It
// accepts status-change notifications from any origin and forwards them to
// UltraMsg with server-side credentials.
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

	"go.uber.org/zap"

	"github.com/emanueledman/fixa-admin/internal/config"
	"github.com/emanueledman/fixa-admin/internal/handlers"
	"github.com/emanueledman/fixa-admin/internal/services"
)

func main() {
	cfg, err := config.LoadRelay()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	client := services.NewRelayClient(cfg.Relay.BaseURL, cfg.Relay.InstanceID, cfg.Relay.Token, cfg.Relay.Timeout)
	relay := handlers.NewRelayHandler(services.NewRelay(client, sugar), sugar)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Relay.Port),
		Handler:      handlers.NewRelayRouter(relay, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Relay.Timeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sugar.Infof("Relay listening on :%d", cfg.Relay.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("Relay error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Info("Shutting down relay...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		sugar.Errorf("Relay forced to shutdown: %v", err)
	}
	sugar.Info("Relay stopped")
}
