package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"gorm.io/gorm"

	retailopsserver "github.com/Apurer/go-retail-ops/go"
	"github.com/Apurer/go-retail-ops/internal/orchestrator"
	"github.com/Apurer/go-retail-ops/internal/orchestrator/adapters/authz"
	orchworkflows "github.com/Apurer/go-retail-ops/internal/orchestrator/adapters/workflows"
	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
	platformmetrics "github.com/Apurer/go-retail-ops/internal/platform/metrics"
	"github.com/Apurer/go-retail-ops/internal/platform/migrations"
	platformobservability "github.com/Apurer/go-retail-ops/internal/platform/observability"
	platformpostgres "github.com/Apurer/go-retail-ops/internal/platform/postgres"
)

const serviceName = "retail-ops-api"

// Run boots the retail operations HTTP API and blocks until ctx is cancelled or the
// server fails.
func Run(ctx context.Context, cfg Config) error {
	instruments, shutdown, err := platformobservability.Init(ctx, ObservabilityConfig(cfg, serviceName))
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	db, cleanupDB := platformpostgres.ConnectOrFallback(ctx, cfg.PostgresDSN, PoolConfig(cfg), logger)
	defer cleanupDB()
	if db != nil {
		if err := migrations.Run(db.WithContext(ctx)); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	services := BuildDomainServices(db, instruments)
	if err := EnsureBootstrapAdmin(ctx, services.Users, cfg.BootstrapAdminID, logger); err != nil {
		return err
	}

	var starter orchworkflows.WorkflowStarter
	if cfg.HasAuditSink(AuditSinkTemporal) {
		temporalClient, err := ConnectTemporalClient(cfg, instruments)
		if err != nil {
			logger.Warn("Temporal unavailable, audit events will not be delivered durably", slog.String("error", err.Error()))
		} else {
			defer temporalClient.Close()
			starter = temporalClient
			logger.Info("Temporal audit delivery enabled", slog.String("namespace", cfg.TemporalNamespace))
		}
	}
	auditSink, closeAudit := BuildAuditSink(cfg, db, starter, logger)
	defer closeAudit()

	idempotency, closeIdempotency := BuildIdempotencyStore(ctx, cfg, db, logger)
	defer closeIdempotency()
	if cfg.IdempotencyPurgeIntervalMinutes > 0 {
		go purgeLoop(ctx, idempotency, time.Duration(cfg.IdempotencyPurgeIntervalMinutes)*time.Minute, logger)
	}

	orch := orchestrator.New(orchestrator.Dependencies{
		Inbound:     services.Inbound,
		Tickets:     services.Tickets,
		Stock:       services.Stock,
		Orders:      services.Orders,
		Users:       services.Users,
		Authorizer:  authz.NewRoleAuthorizer(services.Users, nil),
		Audit:       auditSink,
		Idempotency: idempotency,
	}, orchestrator.WithLogger(logger), orchestrator.WithIdempotencyTTL(cfg.IdempotencyTTL()))

	metrics := platformmetrics.New(platformmetrics.DefaultConfig(serviceName))
	router := retailopsserver.NewRouter(retailopsserver.ApiHandleFunctions{
		InboundAPI:   retailopsserver.NewInboundAPI(orch, metrics),
		TicketAPI:    retailopsserver.NewTicketAPI(orch, metrics),
		StockAPI:     retailopsserver.NewStockAPI(orch, metrics),
		DirectoryAPI: retailopsserver.NewDirectoryAPI(orch, metrics),
	}, retailopsserver.RouterOptions{
		Authenticator: retailopsserver.NewAuthenticator(cfg.JWTSecret),
		Middleware:    []gin.HandlerFunc{otelgin.Middleware(serviceName), metrics.Middleware()},
		Metrics:       metrics.Handler(),
		Ready:         readiness(db),
	})
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, trusting the X-Actor-ID header")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("retail ops API listening", slog.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("retail ops API server exited", slog.String("addr", server.Addr), slog.String("error", err.Error()))
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("retail ops API shutting down")
		return server.Shutdown(shutdownCtx)
	}
}

// ObservabilityConfig maps process settings onto the telemetry setup.
func ObservabilityConfig(cfg Config, service string) platformobservability.Config {
	return platformobservability.Config{
		ServiceName:  service,
		Environment:  cfg.Environment,
		LogLevel:     cfg.LogLevel,
		LogFormat:    cfg.LogFormat,
		OTLPEndpoint: cfg.OTLPEndpoint,
		OTLPInsecure: cfg.OTLPInsecure,
	}
}

func PoolConfig(cfg Config) platformpostgres.PoolConfig {
	return platformpostgres.PoolConfig{
		MaxOpenConns:    cfg.PostgresMaxOpenConns,
		MaxIdleConns:    cfg.PostgresMaxIdleConns,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// ConnectTemporalClient dials Temporal with tracing and structured logging.
func ConnectTemporalClient(cfg Config, instruments *platformobservability.Instruments) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer("temporal-client")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func readiness(db *gorm.DB) func() error {
	if db == nil {
		return nil
	}
	return func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return sqlDB.PingContext(ctx)
	}
}

// purgeLoop drops expired idempotency keys until ctx ends.
func purgeLoop(ctx context.Context, store ports.IdempotencyStore, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := store.Purge(ctx, now)
			if err != nil {
				logger.Warn("idempotency purge failed", slog.String("error", err.Error()))
				continue
			}
			if removed > 0 {
				logger.Info("idempotency keys purged", slog.Int64("removed", removed))
			}
		}
	}
}
