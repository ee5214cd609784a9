package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	userdomain "github.com/Apurer/go-retail-ops/internal/domains/users/domain"
	userports "github.com/Apurer/go-retail-ops/internal/domains/users/ports"
)

const tracerName = "github.com/Apurer/go-retail-ops/internal/domains/users/adapters/observability/service"

// Service decorates the user directory with tracing, logging, and metrics.
type Service struct {
	inner   userports.Service
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

// New wraps the core user directory.
func New(inner userports.Service, opts ...Option) userports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
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
		s.logger = defaultLogger()
	}
	return s
}

func (s *Service) Register(ctx context.Context, user *userdomain.User) (*userdomain.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserDirectory.Register")
	defer span.End()
	if user != nil {
		span.SetAttributes(attribute.String("user.id", user.ID))
	}

	result, err := s.inner.Register(ctx, user)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to register user")
	}
	s.metrics.recordRegistered(ctx)
	s.logger.LogAttrs(ctx, slog.LevelInfo, "user registered", slog.String("user.id", result.ID), slog.Int("roles", len(result.Roles)))
	return result, nil
}

func (s *Service) Get(ctx context.Context, id string) (*userdomain.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserDirectory.Get", trace.WithAttributes(attribute.String("user.id", id)))
	defer span.End()

	result, err := s.inner.Get(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load user", slog.String("user.id", id))
	}
	return result, nil
}

func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "UserDirectory.Exists", trace.WithAttributes(attribute.String("user.id", id)))
	defer span.End()

	ok, err := s.inner.Exists(ctx, id)
	if err != nil {
		return false, s.handleError(ctx, span, err, "failed to resolve user", slog.String("user.id", id))
	}
	span.SetAttributes(attribute.Bool("user.exists", ok))
	if !ok {
		s.metrics.recordUnknown(ctx)
	}
	return ok, nil
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	attrs = append(attrs, slog.String("error", err.Error()))
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
	return err
}

type serviceMetrics struct {
	registered metric.Int64Counter
	unknown    metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	registered, _ := m.Int64Counter("users.directory.registered", metric.WithDescription("Number of users registered"))
	unknown, _ := m.Int64Counter("users.directory.unknown_actor", metric.WithDescription("Number of lookups for unknown or inactive users"))
	return serviceMetrics{registered: registered, unknown: unknown}
}

func (m serviceMetrics) recordRegistered(ctx context.Context) {
	if m.registered != nil {
		m.registered.Add(ctx, 1)
	}
}

func (m serviceMetrics) recordUnknown(ctx context.Context) {
	if m.unknown != nil {
		m.unknown.Add(ctx, 1)
	}
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ userports.Service = (*Service)(nil)
