package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/application/types"
	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/ports"
	"github.com/Apurer/go-retail-ops/internal/shared/failures"
)

const tracerName = "github.com/Apurer/go-retail-ops/internal/domains/aftersales/adapters/observability/service"

// Service decorates the ticket service with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) { s.tracer = tr }
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) { s.metrics = newServiceMetrics(m) }
}

func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

func (s *Service) Create(ctx context.Context, input types.CreateTicketInput) (*types.TicketProjection, error) {
	ctx, span := s.tracer.Start(ctx, "Tickets.Create", trace.WithAttributes(
		attribute.String("ticket.type", input.Type),
		attribute.String("order.id", input.OrderID),
	))
	defer span.End()

	result, err := s.inner.Create(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to open ticket", slog.String("order.id", input.OrderID))
	}
	span.SetAttributes(attribute.String("ticket.id", result.Entity.ID))
	addCounter(ctx, s.metrics.opened, 1, attribute.String("ticket.type", string(result.Entity.Type)))
	s.logger.LogAttrs(ctx, slog.LevelInfo, "ticket opened",
		slog.String("ticket.id", result.Entity.ID),
		slog.String("ticket.type", string(result.Entity.Type)),
		slog.String("order.id", result.Entity.OrderID),
	)
	return result, nil
}

func (s *Service) Assign(ctx context.Context, input types.AssignTicketInput) (*types.TicketProjection, error) {
	return s.trackTransition(ctx, "Tickets.Assign", input.TicketID, func(ctx context.Context) (*types.TicketProjection, error) {
		return s.inner.Assign(ctx, input)
	})
}

func (s *Service) AttachEvidence(ctx context.Context, input types.AttachEvidenceInput) (*types.TicketProjection, error) {
	return s.trackTransition(ctx, "Tickets.AttachEvidence", input.TicketID, func(ctx context.Context) (*types.TicketProjection, error) {
		return s.inner.AttachEvidence(ctx, input)
	})
}

func (s *Service) Resolve(ctx context.Context, input types.ResolveTicketInput) (*types.TicketProjection, error) {
	return s.trackTransition(ctx, "Tickets.Resolve", input.TicketID, func(ctx context.Context) (*types.TicketProjection, error) {
		return s.inner.Resolve(ctx, input)
	})
}

func (s *Service) Reject(ctx context.Context, input types.RejectTicketInput) (*types.TicketProjection, error) {
	return s.trackTransition(ctx, "Tickets.Reject", input.TicketID, func(ctx context.Context) (*types.TicketProjection, error) {
		return s.inner.Reject(ctx, input)
	})
}

func (s *Service) Close(ctx context.Context, input types.CloseTicketInput) (*types.TicketProjection, error) {
	return s.trackTransition(ctx, "Tickets.Close", input.TicketID, func(ctx context.Context) (*types.TicketProjection, error) {
		return s.inner.Close(ctx, input)
	})
}

func (s *Service) Get(ctx context.Context, id string) (*types.TicketProjection, error) {
	ctx, span := s.tracer.Start(ctx, "Tickets.Get", trace.WithAttributes(attribute.String("ticket.id", id)))
	defer span.End()

	result, err := s.inner.Get(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load ticket", slog.String("ticket.id", id))
	}
	return result, nil
}

func (s *Service) List(ctx context.Context, input types.ListTicketsInput) ([]*types.TicketProjection, error) {
	ctx, span := s.tracer.Start(ctx, "Tickets.List", trace.WithAttributes(
		attribute.String("ticket.status", input.Status),
		attribute.String("ticket.assigned_to", input.AssignedTo),
	))
	defer span.End()

	result, err := s.inner.List(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list tickets")
	}
	span.SetAttributes(attribute.Int("tickets.count", len(result)))
	return result, nil
}

// trackTransition wraps one workflow step. A replayed step keeps its projection.
func (s *Service) trackTransition(ctx context.Context, op, ticketID string, call func(context.Context) (*types.TicketProjection, error)) (*types.TicketProjection, error) {
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(attribute.String("ticket.id", ticketID)))
	defer span.End()

	result, err := call(ctx)
	if err != nil {
		if errors.Is(err, failures.ErrAlreadyFinalized) {
			span.SetAttributes(attribute.Bool("ticket.already_in_state", true))
			s.logger.LogAttrs(ctx, slog.LevelInfo, "ticket already in requested state",
				slog.String("ticket.id", ticketID),
				slog.String("operation", op),
			)
			return result, err
		}
		return nil, s.handleError(ctx, span, err, "ticket transition failed",
			slog.String("ticket.id", ticketID),
			slog.String("operation", op),
		)
	}
	span.SetAttributes(attribute.String("ticket.status", string(result.Entity.Status)))
	addCounter(ctx, s.metrics.transitions, 1, attribute.String("ticket.status", string(result.Entity.Status)))
	s.logger.LogAttrs(ctx, slog.LevelInfo, "ticket transitioned",
		slog.String("ticket.id", ticketID),
		slog.String("operation", op),
		slog.String("ticket.status", string(result.Entity.Status)),
	)
	return result, nil
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	attrs = append(attrs, slog.String("error", err.Error()))
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
	addCounter(ctx, s.metrics.failures, 1)
	return err
}

type serviceMetrics struct {
	opened      metric.Int64Counter
	transitions metric.Int64Counter
	failures    metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	opened, _ := m.Int64Counter("aftersales.tickets.opened", metric.WithDescription("Number of tickets opened"))
	transitions, _ := m.Int64Counter("aftersales.tickets.transitions", metric.WithDescription("Number of applied ticket transitions"))
	failed, _ := m.Int64Counter("aftersales.tickets.failures", metric.WithDescription("Number of failed ticket operations"))
	return serviceMetrics{opened: opened, transitions: transitions, failures: failed}
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

var _ ports.Service = (*Service)(nil)
