package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

// ErrSinkUnavailable is returned while the breaker is open and events are shed.
var ErrSinkUnavailable = errors.New("audit sink unavailable")

// BreakerConfig tunes when a failing sink is taken out of the path.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

var _ ports.AuditSink = (*BreakerSink)(nil)

// BreakerSink stops calling a broker that keeps failing so commands do not wait on it.
type BreakerSink struct {
	inner  ports.AuditSink
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

func NewBreakerSink(inner ports.AuditSink, cfg BreakerConfig, logger *slog.Logger) *BreakerSink {
	if logger == nil {
		logger = slog.Default()
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 1
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("audit sink breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}
	return &BreakerSink{inner: inner, cb: gobreaker.NewCircuitBreaker(settings), logger: logger}
}

func (s *BreakerSink) Record(ctx context.Context, event ports.AuditEvent) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.inner.Record(ctx, event)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %v", ErrSinkUnavailable, s.cb.Name(), err)
	}
	return err
}

// State reports the breaker state for health output.
func (s *BreakerSink) State() string {
	return s.cb.State().String()
}
