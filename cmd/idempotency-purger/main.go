package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/Apurer/go-retail-ops/internal/app/api"
	orchpostgres "github.com/Apurer/go-retail-ops/internal/orchestrator/adapters/persistence/postgres"
	platformobservability "github.com/Apurer/go-retail-ops/internal/platform/observability"
	platformpostgres "github.com/Apurer/go-retail-ops/internal/platform/postgres"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := platformobservability.NewLogger(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	db, cleanup := platformpostgres.ConnectOrFallback(ctx, cfg.PostgresDSN, api.PoolConfig(cfg), logger)
	defer cleanup()
	if db == nil {
		log.Fatal("POSTGRES_DSN not set or connection failed; cannot purge idempotency keys")
	}

	store := orchpostgres.NewIdempotencyStore(db)
	removed, err := store.Purge(ctx, time.Now())
	if err != nil {
		log.Fatalf("failed to purge idempotency keys: %v", err)
	}
	logger.Info("idempotency purge completed", slog.Int64("removed", removed))
}
