package audit

import (
	"context"
	"errors"

	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

var _ ports.AuditSink = Fanout(nil)

// Fanout records every event in each sink. One sink failing does not stop the others.
type Fanout []ports.AuditSink

func (f Fanout) Record(ctx context.Context, event ports.AuditEvent) error {
	var errs []error
	for _, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
