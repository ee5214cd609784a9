package memory

import (
	"context"
	"sync"

	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

var _ ports.AuditSink = (*AuditSink)(nil)

// AuditSink keeps audit events in memory in the order they were recorded.
type AuditSink struct {
	mu     sync.Mutex
	events []ports.AuditEvent
}

func NewAuditSink() *AuditSink {
	return &AuditSink{}
}

func (s *AuditSink) Record(_ context.Context, event ports.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything recorded so far.
func (s *AuditSink) Events() []ports.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.AuditEvent(nil), s.events...)
}
