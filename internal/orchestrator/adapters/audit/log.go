package audit

import (
	"context"
	"log/slog"

	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

var _ ports.AuditSink = (*LogSink)(nil)

// LogSink writes audit events to a structured logger. It never fails.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(ctx context.Context, event ports.AuditEvent) error {
	s.logger.LogAttrs(ctx, slog.LevelInfo, "audit",
		slog.String("audit.id", event.ID),
		slog.String("audit.action", event.Action),
		slog.String("aggregate.type", event.AggregateType),
		slog.String("aggregate.id", event.AggregateID),
		slog.String("actor", event.Actor),
		slog.String("status.from", event.FromStatus),
		slog.String("status.to", event.ToStatus),
		slog.String("correlation.id", event.CorrelationID),
	)
	return nil
}
