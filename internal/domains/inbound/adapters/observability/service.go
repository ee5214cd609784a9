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

	"github.com/Apurer/go-retail-ops/internal/domains/inbound/application/types"
	"github.com/Apurer/go-retail-ops/internal/domains/inbound/ports"
	"github.com/Apurer/go-retail-ops/internal/shared/failures"
)

const tracerName = "github.com/Apurer/go-retail-ops/internal/domains/inbound/adapters/observability/service"

// Service decorates the inbound service with tracing, logging, and metrics.
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

func (s *Service) Create(ctx context.Context, input types.CreateRecordInput) (*types.RecordProjection, error) {
	ctx, span := s.tracer.Start(ctx, "Inbound.Create", trace.WithAttributes(
		attribute.String("inbound.source_type", input.SourceType),
		attribute.Int("inbound.items", len(input.Items)),
	))
	defer span.End()

	result, err := s.inner.Create(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to create inbound record", slog.String("source.type", input.SourceType))
	}
	span.SetAttributes(attribute.String("inbound.record_id", result.Entity.ID))
	addCounter(ctx, s.metrics.created, 1, attribute.String("inbound.source_type", string(result.Entity.SourceType)))
	s.logger.LogAttrs(ctx, slog.LevelInfo, "inbound record created",
		slog.String("record.id", result.Entity.ID),
		slog.Int64("total.items", result.Entity.TotalItems),
	)
	return result, nil
}

func (s *Service) Approve(ctx context.Context, input types.ApproveRecordInput) (*types.RecordProjection, error) {
	ctx, span := s.tracer.Start(ctx, "Inbound.Approve", trace.WithAttributes(attribute.String("inbound.record_id", input.RecordID)))
	defer span.End()

	result, err := s.inner.Approve(ctx, input)
	if err != nil {
		return result, s.handleTransitionError(ctx, span, err, "failed to approve inbound record", input.RecordID)
	}
	addCounter(ctx, s.metrics.finalized, 1, attribute.String("inbound.status", string(result.Entity.Status)))
	s.logger.LogAttrs(ctx, slog.LevelInfo, "inbound record approved",
		slog.String("record.id", input.RecordID),
		slog.String("approver", input.Approver),
	)
	return result, nil
}

func (s *Service) Reject(ctx context.Context, input types.RejectRecordInput) (*types.RecordProjection, error) {
	ctx, span := s.tracer.Start(ctx, "Inbound.Reject", trace.WithAttributes(attribute.String("inbound.record_id", input.RecordID)))
	defer span.End()

	result, err := s.inner.Reject(ctx, input)
	if err != nil {
		return result, s.handleTransitionError(ctx, span, err, "failed to reject inbound record", input.RecordID)
	}
	addCounter(ctx, s.metrics.finalized, 1, attribute.String("inbound.status", string(result.Entity.Status)))
	s.logger.LogAttrs(ctx, slog.LevelInfo, "inbound record rejected", slog.String("record.id", input.RecordID))
	return result, nil
}

func (s *Service) Get(ctx context.Context, id string) (*types.RecordProjection, error) {
	ctx, span := s.tracer.Start(ctx, "Inbound.Get", trace.WithAttributes(attribute.String("inbound.record_id", id)))
	defer span.End()

	result, err := s.inner.Get(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load inbound record", slog.String("record.id", id))
	}
	return result, nil
}

func (s *Service) List(ctx context.Context, input types.ListRecordsInput) ([]*types.RecordProjection, error) {
	ctx, span := s.tracer.Start(ctx, "Inbound.List", trace.WithAttributes(attribute.String("inbound.status", input.Status)))
	defer span.End()

	result, err := s.inner.List(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list inbound records")
	}
	span.SetAttributes(attribute.Int("inbound.records.count", len(result)))
	return result, nil
}

// handleTransitionError treats a replayed transition as a normal outcome.
func (s *Service) handleTransitionError(ctx context.Context, span trace.Span, err error, msg, recordID string) error {
	if errors.Is(err, failures.ErrAlreadyFinalized) {
		span.SetAttributes(attribute.Bool("inbound.already_finalized", true))
		s.logger.LogAttrs(ctx, slog.LevelInfo, "inbound record already finalized", slog.String("record.id", recordID))
		return err
	}
	return s.handleError(ctx, span, err, msg, slog.String("record.id", recordID))
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
	created   metric.Int64Counter
	finalized metric.Int64Counter
	failures  metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	created, _ := m.Int64Counter("inbound.service.created", metric.WithDescription("Number of inbound records created"))
	finalized, _ := m.Int64Counter("inbound.service.finalized", metric.WithDescription("Number of inbound records approved or rejected"))
	failed, _ := m.Int64Counter("inbound.service.failures", metric.WithDescription("Number of failed inbound operations"))
	return serviceMetrics{created: created, finalized: finalized, failures: failed}
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

var _ ports.Service = (*Service)(nil)
