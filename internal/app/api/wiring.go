package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	ticketmemory "github.com/Apurer/go-retail-ops/internal/domains/aftersales/adapters/memory"
	ticketobs "github.com/Apurer/go-retail-ops/internal/domains/aftersales/adapters/observability"
	ticketpostgres "github.com/Apurer/go-retail-ops/internal/domains/aftersales/adapters/persistence/postgres"
	ticketapp "github.com/Apurer/go-retail-ops/internal/domains/aftersales/application"
	ticketports "github.com/Apurer/go-retail-ops/internal/domains/aftersales/ports"
	inboundmemory "github.com/Apurer/go-retail-ops/internal/domains/inbound/adapters/memory"
	inboundobs "github.com/Apurer/go-retail-ops/internal/domains/inbound/adapters/observability"
	inboundpostgres "github.com/Apurer/go-retail-ops/internal/domains/inbound/adapters/persistence/postgres"
	inboundapp "github.com/Apurer/go-retail-ops/internal/domains/inbound/application"
	inboundports "github.com/Apurer/go-retail-ops/internal/domains/inbound/ports"
	ordermemory "github.com/Apurer/go-retail-ops/internal/domains/orders/adapters/memory"
	orderpostgres "github.com/Apurer/go-retail-ops/internal/domains/orders/adapters/persistence/postgres"
	orderapp "github.com/Apurer/go-retail-ops/internal/domains/orders/application"
	orderports "github.com/Apurer/go-retail-ops/internal/domains/orders/ports"
	stockmemory "github.com/Apurer/go-retail-ops/internal/domains/stock/adapters/memory"
	stockobs "github.com/Apurer/go-retail-ops/internal/domains/stock/adapters/observability"
	stockpostgres "github.com/Apurer/go-retail-ops/internal/domains/stock/adapters/persistence/postgres"
	stockapp "github.com/Apurer/go-retail-ops/internal/domains/stock/application"
	stockports "github.com/Apurer/go-retail-ops/internal/domains/stock/ports"
	usermemory "github.com/Apurer/go-retail-ops/internal/domains/users/adapters/memory"
	userobs "github.com/Apurer/go-retail-ops/internal/domains/users/adapters/observability"
	userpostgres "github.com/Apurer/go-retail-ops/internal/domains/users/adapters/persistence/postgres"
	userapp "github.com/Apurer/go-retail-ops/internal/domains/users/application"
	userdomain "github.com/Apurer/go-retail-ops/internal/domains/users/domain"
	userports "github.com/Apurer/go-retail-ops/internal/domains/users/ports"
	"github.com/Apurer/go-retail-ops/internal/orchestrator/adapters/audit"
	orchmemory "github.com/Apurer/go-retail-ops/internal/orchestrator/adapters/memory"
	orchpostgres "github.com/Apurer/go-retail-ops/internal/orchestrator/adapters/persistence/postgres"
	orchredis "github.com/Apurer/go-retail-ops/internal/orchestrator/adapters/redis"
	orchworkflows "github.com/Apurer/go-retail-ops/internal/orchestrator/adapters/workflows"
	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
	platformobservability "github.com/Apurer/go-retail-ops/internal/platform/observability"
	"github.com/Apurer/go-retail-ops/internal/platform/txn"
)

// eventSource identifies this service in published audit envelopes.
const eventSource = "retail-ops/api"

// DomainServices are the workflow services behind the orchestrator.
type DomainServices struct {
	Inbound inboundports.Service
	Tickets ticketports.Service
	Stock   stockports.Service
	Orders  orderports.Service
	Users   userports.Service
}

// BuildDomainServices wires every workflow over PostgreSQL, or over shared in-memory
// stores when db is nil. Services are wrapped in the logging and tracing decorators.
func BuildDomainServices(db *gorm.DB, instruments *platformobservability.Instruments) DomainServices {
	var (
		stockRepo    stockports.Repository
		stockRunner  txn.Runner[stockports.Ledger]
		records      inboundports.Repository
		inboundUnits txn.Runner[inboundports.UnitScope]
		tickets      ticketports.Repository
		ticketUnits  txn.Runner[ticketports.UnitScope]
		orders       *orderapp.Service
		users        *userapp.Service
	)

	if db != nil {
		ledgerFor := func(tx *gorm.DB) stockports.Ledger {
			return stockapp.NewLedger(stockpostgres.NewRepository(tx), nil)
		}
		stockRepo = stockpostgres.NewRepository(db)
		stockRunner = txn.NewGormRunner[stockports.Ledger](db, ledgerFor)
		records = inboundpostgres.NewRepository(db)
		inboundUnits = txn.NewGormRunner[inboundports.UnitScope](db, func(tx *gorm.DB) inboundports.UnitScope {
			return inboundports.UnitScope{Records: inboundpostgres.NewRepository(tx), Ledger: ledgerFor(tx)}
		})
		tickets = ticketpostgres.NewRepository(db)
		ticketUnits = txn.NewGormRunner[ticketports.UnitScope](db, func(tx *gorm.DB) ticketports.UnitScope {
			return ticketports.UnitScope{Tickets: ticketpostgres.NewRepository(tx), Ledger: ledgerFor(tx)}
		})
		orders = orderapp.NewService(orderpostgres.NewRepository(db))
		users = userapp.NewService(userpostgres.NewRepository(db))
	} else {
		// Every memory runner shares one lock so units touching stock never interleave.
		mu := &sync.Mutex{}
		memStock := stockmemory.NewRepository()
		ledger := stockapp.NewLedger(memStock, nil)
		memRecords := inboundmemory.NewRepository()
		memTickets := ticketmemory.NewRepository()

		stockRepo = memStock
		stockRunner = txn.NewMemoryRunner[stockports.Ledger](mu, ledger, memStock)
		records = memRecords
		inboundUnits = txn.NewMemoryRunner[inboundports.UnitScope](mu, inboundports.UnitScope{Records: memRecords, Ledger: ledger}, memRecords, memStock)
		tickets = memTickets
		ticketUnits = txn.NewMemoryRunner[ticketports.UnitScope](mu, ticketports.UnitScope{Tickets: memTickets, Ledger: ledger}, memTickets, memStock)
		orders = orderapp.NewService(ordermemory.NewRepository())
		users = userapp.NewService(usermemory.NewRepository())
	}

	return DomainServices{
		Inbound: inboundobs.New(
			inboundapp.NewService(records, inboundUnits),
			inboundobs.WithLogger(instruments.Logger),
			inboundobs.WithTracer(instruments.Tracer("internal.inbound.application")),
			inboundobs.WithMeter(instruments.Meter("internal.inbound.application")),
		),
		Tickets: ticketobs.New(
			ticketapp.NewService(tickets, orders, ticketUnits),
			ticketobs.WithLogger(instruments.Logger),
			ticketobs.WithTracer(instruments.Tracer("internal.aftersales.application")),
			ticketobs.WithMeter(instruments.Meter("internal.aftersales.application")),
		),
		Stock: stockobs.New(
			stockapp.NewService(stockRunner, stockRepo),
			stockobs.WithLogger(instruments.Logger),
			stockobs.WithTracer(instruments.Tracer("internal.stock.application")),
			stockobs.WithMeter(instruments.Meter("internal.stock.application")),
		),
		Orders: orders,
		Users: userobs.New(
			users,
			userobs.WithLogger(instruments.Logger),
			userobs.WithTracer(instruments.Tracer("internal.users.application")),
			userobs.WithMeter(instruments.Meter("internal.users.application")),
		),
	}
}

// EnsureBootstrapAdmin registers the configured administrator when the directory lacks it.
func EnsureBootstrapAdmin(ctx context.Context, users userports.Service, id string, logger *slog.Logger) error {
	exists, err := users.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("look up bootstrap admin: %w", err)
	}
	if exists {
		return nil
	}
	admin, err := userdomain.NewUser(id, "Bootstrap administrator", userdomain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("build bootstrap admin: %w", err)
	}
	if _, err := users.Register(ctx, admin); err != nil {
		return fmt.Errorf("register bootstrap admin: %w", err)
	}
	logger.Info("bootstrap admin registered", slog.String("userId", id))
	return nil
}

// BuildIdempotencyStore prefers Redis, then PostgreSQL, then memory.
func BuildIdempotencyStore(ctx context.Context, cfg Config, db *gorm.DB, logger *slog.Logger) (ports.IdempotencyStore, func()) {
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: addr})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			logger.Info("idempotency keys stored in redis", slog.String("addr", addr))
			return orchredis.NewIdempotencyStore(client), func() { _ = client.Close() }
		}
		_ = client.Close()
		logger.Warn("redis unavailable, falling back", slog.String("addr", addr), slog.String("error", err.Error()))
	}
	if db != nil {
		logger.Info("idempotency keys stored in postgres")
		return orchpostgres.NewIdempotencyStore(db), func() {}
	}
	logger.Warn("idempotency keys kept in memory")
	return orchmemory.NewIdempotencyStore(), func() {}
}

// BuildAuditSink assembles the sinks named in AUDIT_SINK. Broker sinks sit behind a
// circuit breaker. Sinks whose backend is unavailable are skipped with a warning; the
// log sink is used when nothing else remains.
func BuildAuditSink(cfg Config, db *gorm.DB, starter orchworkflows.WorkflowStarter, logger *slog.Logger) (ports.AuditSink, func()) {
	var (
		sinks    audit.Fanout
		closers  []func() error
		skipSink = func(name, reason string) {
			logger.Warn("audit sink unavailable", slog.String("sink", name), slog.String("reason", reason))
		}
	)
	for _, name := range cfg.AuditSinks {
		switch name {
		case AuditSinkLog:
			sinks = append(sinks, audit.NewLogSink(logger))
		case AuditSinkPostgres:
			if db == nil {
				skipSink(name, "postgres not connected")
				continue
			}
			sinks = append(sinks, orchpostgres.NewAuditSink(db))
		case AuditSinkKafka:
			sink := audit.NewKafkaSink(audit.NewKafkaWriter(audit.KafkaConfig{
				Brokers: cfg.KafkaBrokers,
				Topic:   cfg.KafkaAuditTopic,
				Source:  eventSource,
			}), eventSource)
			closers = append(closers, sink.Close)
			sinks = append(sinks, audit.NewBreakerSink(sink, audit.DefaultBreakerConfig("kafka-audit"), logger))
		case AuditSinkRabbitMQ:
			sink, err := audit.DialRabbit(cfg.RabbitMQURL, cfg.RabbitMQExchange, eventSource)
			if err != nil {
				skipSink(name, err.Error())
				continue
			}
			closers = append(closers, sink.Close)
			sinks = append(sinks, audit.NewBreakerSink(sink, audit.DefaultBreakerConfig("rabbitmq-audit"), logger))
		case AuditSinkTemporal:
			if starter == nil {
				skipSink(name, "temporal client not connected")
				continue
			}
			sinks = append(sinks, orchworkflows.NewTemporalAuditSink(starter))
		}
	}
	cleanup := func() {
		var errs []error
		for _, closeFn := range closers {
			errs = append(errs, closeFn())
		}
		if err := errors.Join(errs...); err != nil {
			logger.Warn("closing audit sinks failed", slog.String("error", err.Error()))
		}
	}
	switch len(sinks) {
	case 0:
		return audit.NewLogSink(logger), cleanup
	case 1:
		return sinks[0], cleanup
	default:
		return sinks, cleanup
	}
}

// BuildPublisher returns the broker sinks among AUDIT_SINK, or nil when none is selected.
// The delivery worker publishes through it after storing the event.
func BuildPublisher(cfg Config, logger *slog.Logger) (ports.AuditSink, func()) {
	brokers := cfg
	brokers.AuditSinks = nil
	for _, name := range cfg.AuditSinks {
		if name == AuditSinkKafka || name == AuditSinkRabbitMQ {
			brokers.AuditSinks = append(brokers.AuditSinks, name)
		}
	}
	if len(brokers.AuditSinks) == 0 {
		return nil, func() {}
	}
	return BuildAuditSink(brokers, nil, nil, logger)
}
