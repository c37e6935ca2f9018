package main

import (
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/hackgods/vet-clinic/internal/config"
	"github.com/hackgods/vet-clinic/internal/db"
	"github.com/hackgods/vet-clinic/internal/logging"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	flag.Parse()

	if *direction != "up" && *direction != "down" {
		log.Fatalf("invalid -direction %q", *direction)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(logging.ConfigFor(cfg.Env, cfg.LogLevel))
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := db.Migrate(cfg.PostgresDSN, *direction); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	logger.Info("migrations applied", zap.String("direction", *direction))
}
