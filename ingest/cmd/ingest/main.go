package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/transitwire-systems/avl-stack/common/logging"
	natsclient "github.com/transitwire-systems/avl-stack/common/messaging/nats"
	"github.com/transitwire-systems/avl-stack/common/storage"
	"github.com/transitwire-systems/avl-stack/common/subscriptions"
	"github.com/transitwire-systems/avl-stack/ingest/internal/config"
	"github.com/transitwire-systems/avl-stack/ingest/internal/handlers"
	"github.com/transitwire-systems/avl-stack/ingest/internal/server"
	"github.com/transitwire-systems/avl-stack/ingest/internal/service"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("ingest"))
	logging.SetDefault(logger)

	slog.Info("Starting AVL ingest service",
		slog.Int("port", cfg.Server.Port),
		slog.String("bucket", cfg.Ingestion.Bucket),
		slog.String("log_level", cfg.Logging.Level),
	)

	subStore, err := subscriptions.NewRedisStore(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer subStore.Close()

	jsClient, err := natsclient.NewJetStreamClient(natsclient.Config{URL: cfg.NATS.URL})
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer jsClient.Close()

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSetup()

	objectStore, err := storage.NewJetStreamStore(setupCtx, jsClient, cfg.Ingestion.Bucket)
	if err != nil {
		log.Fatalf("Failed to initialize object bucket %q: %v", cfg.Ingestion.Bucket, err)
	}

	notifier, err := service.NewJetStreamNotifier(setupCtx, jsClient)
	if err != nil {
		log.Fatalf("Failed to initialize staging stream: %v", err)
	}

	ingestService := service.NewIngestService(subStore, objectStore, notifier, cfg.Ingestion.Bucket, logger)

	handler := handlers.NewDataHandler(ingestService, logger, cfg.Ingestion.MaxBodySize)
	router := server.NewRouter(handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Ingest service listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down ingest service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", slog.String("error", err.Error()))
	}
	slog.Info("Ingest service stopped")
}
