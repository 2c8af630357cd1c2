// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventrental/internal/app"
	"eventrental/internal/config"
	"eventrental/internal/httpapi"
	"eventrental/internal/logging"
	"eventrental/internal/observability"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	printToken := flag.Bool("print-admin-token", false, "write a 24h admin bearer token to stderr at startup (not in production)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel, config.ServiceName)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, observability.TracingConfig{
		ServiceName:    config.ServiceName,
		ServiceVersion: config.ServiceVersion,
		Endpoint:       cfg.OtelEndpoint,
		Insecure:       cfg.OtelInsecure,
	})
	if err != nil {
		logger.Fatal("Failed to set up tracing", zap.Error(err))
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		logger.Fatal("Failed to create metrics", zap.Error(err))
	}

	container, err := app.NewContainer(ctx, cfg, logger, metrics, app.Options{})
	if err != nil {
		logger.Fatal("Failed to build services", zap.Error(err))
	}
	defer container.Close()

	admin, err := container.SeedAdmin(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to seed admin", zap.Error(err))
	}
	if *printToken && admin != nil {
		if cfg.IsProduction() {
			logger.Warn("-print-admin-token is ignored in production")
		} else if err := printAdminToken(os.Stderr, container.Tokens, admin.ID); err != nil {
			logger.Fatal("Failed to issue development token", zap.Error(err))
		}
	}

	if container.Relay != nil {
		go container.Relay.Start(ctx)
	} else {
		logger.Info("KAFKA_BROKER not set, lifecycle relay disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           container.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("Starting event rental API",
			zap.String("port", cfg.Port),
			zap.String("storage", cfg.Storage),
			zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Tracing shutdown", zap.Error(err))
	}
}

// printAdminToken writes a bearer token for the seeded admin to w.
func printAdminToken(w io.Writer, tokens *httpapi.Tokens, adminID uuid.UUID) error {
	token, err := tokens.Issue(adminID, 24*time.Hour)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "admin token (24h): %s\n", token)
	return err
}
