// cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/your-org/storefront-membership/internal/app"
	"github.com/your-org/storefront-membership/internal/config"
	"github.com/your-org/storefront-membership/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrusLogger := logger.New(cfg)
	logrusLogger.WithField("environment", cfg.App.Environment).
		Infof("Starting %s v%s", cfg.App.Name, cfg.App.Version)

	application, err := app.New(cfg, logrusLogger)
	if err != nil {
		logrusLogger.WithError(err).Fatal("Failed to initialise application")
	}
	defer application.Close()

	if err := application.DB.Health(); err != nil {
		logrusLogger.WithError(err).Fatal("Database health check failed")
	}
	if err := application.Redis.Health(); err != nil {
		logrusLogger.WithError(err).Fatal("Redis health check failed")
	}

	if err := application.Migrate(context.Background(), cfg.IsDevelopment()); err != nil {
		logrusLogger.WithError(err).Fatal("Database migration failed")
	}

	server := application.Server()

	go func() {
		if err := server.Start(); err != nil {
			logrusLogger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logrusLogger.Info("Shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logrusLogger.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	logrusLogger.Info("Server shutdown completed")
}
