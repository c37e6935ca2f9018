package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/vet-clinic/internal/config"
	"github.com/hackgods/vet-clinic/internal/db"
	"github.com/hackgods/vet-clinic/internal/events"
	"github.com/hackgods/vet-clinic/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(logging.ConfigFor(cfg.Env, cfg.LogLevel))
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if len(cfg.KafkaBrokers) == 0 {
		logger.Fatal("KAFKA_BROKERS is required for the event relay")
	}

	logger.Info("event-relay starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.RelayInterval),
		zap.Int("batch_size", cfg.RelayBatchSize),
		zap.Strings("brokers", cfg.KafkaBrokers),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PostgresMaxConn)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	writer := events.NewKafkaWriter(cfg.KafkaBrokers)
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Warn("error closing kafka writer", zap.Error(err))
		}
	}()

	relay := events.NewRelay(events.NewPgStore(pgPool), writer, logger, cfg.RelayBatchSize)

	// Run once at startup
	drain(rootCtx, relay, logger)

	ticker := time.NewTicker(cfg.RelayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping event relay")
			return
		case <-ticker.C:
			drain(rootCtx, relay, logger)
		}
	}
}

// drain publishes full batches until the backlog is empty or a run fails.
func drain(ctx context.Context, relay *events.Relay, logger *zap.Logger) {
	start := time.Now()
	total := 0
	for ctx.Err() == nil {
		runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		n, err := relay.RunOnce(runCtx)
		cancel()
		if err != nil {
			logger.Error("relay run error", zap.Error(err))
			return
		}
		total += n
		if n == 0 {
			break
		}
	}
	if total > 0 {
		logger.Info("relay run complete", zap.Int("published", total), zap.Duration("took", time.Since(start)))
	}
}
