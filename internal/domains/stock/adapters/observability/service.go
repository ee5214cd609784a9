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

	"github.com/Apurer/go-retail-ops/internal/domains/stock/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/stock/ports"
)

const tracerName = "github.com/Apurer/go-retail-ops/internal/domains/stock/adapters/observability/service"

// Service decorates the stock service with tracing, logging, and metrics.
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

// New wires a decorator around the core service.
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

func (s *Service) GetQuantity(ctx context.Context, productID string) (*domain.Entry, error) {
	ctx, span := s.tracer.Start(ctx, "Stock.GetQuantity", trace.WithAttributes(attribute.String("stock.product_id", productID)))
	defer span.End()

	entry, err := s.inner.GetQuantity(ctx, productID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to read stock", slog.String("product.id", productID))
	}
	return entry, nil
}

func (s *Service) ApplyDelta(ctx context.Context, delta domain.Delta) (*domain.Movement, error) {
	attrs := []attribute.KeyValue{
		attribute.String("stock.product_id", delta.ProductID),
		attribute.Int64("stock.delta", delta.Quantity),
		attribute.String("stock.reason", string(delta.Reason)),
		attribute.String("stock.correlation_id", delta.CorrelationID),
	}
	ctx, span := s.tracer.Start(ctx, "Stock.ApplyDelta", trace.WithAttributes(attrs...))
	defer span.End()

	s.logger.LogAttrs(ctx, slog.LevelInfo, "applying stock delta",
		slog.String("product.id", delta.ProductID),
		slog.Int64("delta", delta.Quantity),
		slog.String("correlation.id", delta.CorrelationID),
	)
	movement, err := s.inner.ApplyDelta(ctx, delta)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to apply stock delta", slog.String("product.id", delta.ProductID))
	}
	span.SetAttributes(attribute.Bool("stock.replayed", movement.Replayed))
	if !movement.Replayed {
		addCounter(ctx, s.metrics.deltasApplied, 1, attribute.String("stock.reason", string(delta.Reason)))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "stock delta applied",
		slog.String("product.id", movement.ProductID),
		slog.Int64("quantity", movement.ResultingQuantity),
		slog.Bool("replayed", movement.Replayed),
	)
	return movement, nil
}

func (s *Service) Register(ctx context.Context, productID string, quantity int64) (*domain.Entry, error) {
	ctx, span := s.tracer.Start(ctx, "Stock.Register", trace.WithAttributes(attribute.String("stock.product_id", productID)))
	defer span.End()

	entry, err := s.inner.Register(ctx, productID, quantity)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to register stock entry", slog.String("product.id", productID))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "stock entry registered", slog.String("product.id", productID), slog.Int64("quantity", quantity))
	return entry, nil
}

func (s *Service) Movements(ctx context.Context, correlationID string) ([]domain.Movement, error) {
	ctx, span := s.tracer.Start(ctx, "Stock.Movements", trace.WithAttributes(attribute.String("stock.correlation_id", correlationID)))
	defer span.End()

	movements, err := s.inner.Movements(ctx, correlationID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list stock movements", slog.String("correlation.id", correlationID))
	}
	span.SetAttributes(attribute.Int("stock.movements.count", len(movements)))
	return movements, nil
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
	deltasApplied metric.Int64Counter
	failures      metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	applied, _ := m.Int64Counter("stock.service.deltas_applied", metric.WithDescription("Number of stock deltas applied"))
	failed, _ := m.Int64Counter("stock.service.failures", metric.WithDescription("Number of failed stock operations"))
	return serviceMetrics{deltasApplied: applied, failures: failed}
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

var _ ports.Service = (*Service)(nil)
