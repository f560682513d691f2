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

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/transitwire-systems/avl-stack/common/logging"
	natsclient "github.com/transitwire-systems/avl-stack/common/messaging/nats"
	"github.com/transitwire-systems/avl-stack/common/storage"
	"github.com/transitwire-systems/avl-stack/common/subscriptions"
	"github.com/transitwire-systems/avl-stack/processor/internal/config"
	"github.com/transitwire-systems/avl-stack/processor/internal/consumer"
	"github.com/transitwire-systems/avl-stack/processor/internal/diagstore"
	"github.com/transitwire-systems/avl-stack/processor/internal/repository"
	"github.com/transitwire-systems/avl-stack/processor/internal/service"
	"github.com/transitwire-systems/avl-stack/processor/internal/tripmatch"
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
	).With(logging.Service("processor"))
	logging.SetDefault(logger)

	slog.Info("Starting AVL processor service",
		slog.Int("port", cfg.Server.Port),
		slog.String("bucket", cfg.Processing.Bucket),
		slog.String("log_level", cfg.Logging.Level),
	)

	log.Println("Running database migrations...")
	m, err := migrate.New(cfg.Database.MigrationsPath, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to initialize migrations: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	repo, err := repository.NewPostgresRepository(context.Background(), cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer repo.Close()

	subStore, err := subscriptions.NewRedisStore(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer subStore.Close()

	diags, err := diagstore.NewRedisStore(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis diagnostics store: %v", err)
	}
	defer diags.Close()

	matcher, err := tripmatch.NewRedisMatcher(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis trip map: %v", err)
	}
	defer matcher.Close()

	jsClient, err := natsclient.NewJetStreamClient(natsclient.Config{URL: cfg.NATS.URL})
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer jsClient.Close()

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSetup()

	objectStore, err := storage.NewJetStreamStore(setupCtx, jsClient, cfg.Processing.Bucket)
	if err != nil {
		log.Fatalf("Failed to initialize object bucket %q: %v", cfg.Processing.Bucket, err)
	}

	processor := service.NewProcessor(subStore, objectStore, repo, diags, matcher, logger, service.Options{
		EnrichmentConcurrency: cfg.Processing.EnrichmentConcurrency,
		DiagnosticTTL:         cfg.Processing.DiagnosticTTL,
		EnableCancellations:   cfg.Processing.EnableCancellations,
	})

	consumeCtx, cancelConsume := context.WithCancel(context.Background())
	defer cancelConsume()

	cons := consumer.New(jsClient, processor, logger)
	stop, err := cons.Start(consumeCtx)
	if err != nil {
		log.Fatalf("Failed to start consumer: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy"}`))
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Processor metrics listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down processor service")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", slog.String("error", err.Error()))
	}
	slog.Info("Processor service stopped")
}
