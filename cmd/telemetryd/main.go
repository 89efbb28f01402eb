package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"iot-telemetry-backend/config"
	"iot-telemetry-backend/internal/api"
	"iot-telemetry-backend/internal/db"
	"iot-telemetry-backend/internal/history"
	"iot-telemetry-backend/internal/ingest"
	"iot-telemetry-backend/internal/logx"
	"iot-telemetry-backend/internal/notification"
	"iot-telemetry-backend/internal/store"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	logger, err := logx.New(&cfg.Logging)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("configuration loaded", zap.String("path", configPath))

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}
	appStore := store.New(gormDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	archiver, err := history.New(ctx, &cfg.History, logger)
	if err != nil {
		logger.Fatal("history archive init failed", zap.Error(err))
	}
	if archiver != nil {
		logger.Info("history archive enabled", zap.String("database", cfg.History.Database))
	}

	notifier := notification.New(appStore, &cfg.Push, logger)
	if notifier == nil {
		logger.Info("push notifications disabled, no VAPID keys configured")
	}
	notifier.Start(cfg.WorkerPool.Size)

	// The ingestion session is owned here and handed to the router; the
	// control endpoints drive it, nothing reaches it through globals.
	session := ingest.New(appStore, &cfg.Ingest, archiver, notifier, nil, logger)
	if err := session.Start(ctx); err != nil {
		if errors.Is(err, ingest.ErrConfigurationMissing) {
			logger.Warn("ingestion not started, configure and activate profiles first",
				zap.Error(err))
		} else {
			logger.Error("ingestion start failed", zap.Error(err))
		}
	}

	router := api.NewRouter(appStore, session, cfg)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("http server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", zap.Error(err))
	}
	session.Stop()
	notifier.Stop()
	if err := archiver.Close(shutdownCtx); err != nil {
		logger.Warn("history archive close", zap.Error(err))
	}

	logger.Info("stopped")
}
