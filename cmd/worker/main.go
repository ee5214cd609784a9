package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-retail-ops/internal/app/api"
	"github.com/Apurer/go-retail-ops/internal/orchestrator/adapters/audit"
	orchpostgres "github.com/Apurer/go-retail-ops/internal/orchestrator/adapters/persistence/postgres"
	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
	"github.com/Apurer/go-retail-ops/internal/platform/migrations"
	platformobservability "github.com/Apurer/go-retail-ops/internal/platform/observability"
	platformpostgres "github.com/Apurer/go-retail-ops/internal/platform/postgres"
	auditactivities "github.com/Apurer/go-retail-ops/internal/platform/temporal/activities/audit"
	auditworkflows "github.com/Apurer/go-retail-ops/internal/platform/temporal/workflows/audit"
)

func main() {
	ctx := context.Background()
	const serviceName = "retail-ops-worker"
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, api.ObservabilityConfig(cfg, serviceName))
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	db, cleanupDB := platformpostgres.ConnectOrFallback(ctx, cfg.PostgresDSN, api.PoolConfig(cfg), logger)
	defer cleanupDB()
	var store ports.AuditSink = audit.NewLogSink(logger)
	if db != nil {
		if err := migrations.Run(db.WithContext(ctx)); err != nil {
			logger.Error("failed to migrate schema", slog.String("error", err.Error()))
			os.Exit(1)
		}
		store = orchpostgres.NewAuditSink(db)
		logger.Info("worker audit trail configured with postgres")
	}
	publisher, closePublisher := api.BuildPublisher(cfg, logger)
	defer closePublisher()
	activities := auditactivities.NewActivities(store, publisher)

	temporalClient, err := api.ConnectTemporalClient(cfg, instruments)
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, auditworkflows.DeliveryTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(auditworkflows.DeliveryWorkflow, workflow.RegisterOptions{Name: auditworkflows.DeliveryWorkflowName})
	w.RegisterActivityWithOptions(activities.StoreEvent, activity.RegisterOptions{Name: auditactivities.StoreAuditEventActivityName})
	w.RegisterActivityWithOptions(activities.PublishEvent, activity.RegisterOptions{Name: auditactivities.PublishAuditEventActivityName})

	logger.Info("worker listening", slog.String("taskQueue", auditworkflows.DeliveryTaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
