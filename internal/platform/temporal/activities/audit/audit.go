package audit

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"

	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

const (
	// StoreAuditEventActivityName writes the event to the durable audit trail.
	StoreAuditEventActivityName = "audit.activities.StoreEvent"
	// PublishAuditEventActivityName hands the event to the message brokers.
	PublishAuditEventActivityName = "audit.activities.PublishEvent"
)

// Activities delivers audit events recorded by the API.
type Activities struct {
	store     ports.AuditSink
	publisher ports.AuditSink
}

// NewActivities wires the sinks. Either may be nil, in which case its step is skipped.
func NewActivities(store, publisher ports.AuditSink) *Activities {
	return &Activities{store: store, publisher: publisher}
}

func (a *Activities) StoreEvent(ctx context.Context, event ports.AuditEvent) error {
	logger := activity.GetLogger(ctx)
	if a == nil {
		return errors.New("audit activities not initialized")
	}
	if a.store == nil {
		logger.Info("audit store not configured; skipping", "eventId", event.ID)
		return nil
	}
	if err := a.store.Record(ctx, event); err != nil {
		logger.Error("StoreEvent failed", "eventId", event.ID, "error", err)
		return err
	}
	logger.Info("StoreEvent completed", "eventId", event.ID, "action", event.Action)
	return nil
}

// PublishEvent is retried by Temporal; the heartbeat marks a completed publish so a
// retried attempt does not send the event twice.
func (a *Activities) PublishEvent(ctx context.Context, event ports.AuditEvent) error {
	logger := activity.GetLogger(ctx)
	if a == nil {
		return errors.New("audit activities not initialized")
	}
	if a.publisher == nil {
		logger.Info("audit publisher not configured; skipping", "eventId", event.ID)
		return nil
	}

	var hb publishHeartbeat
	if activity.HasHeartbeatDetails(ctx) {
		_ = activity.GetHeartbeatDetails(ctx, &hb)
	}
	if hb.Completed {
		logger.Info("PublishEvent already completed in prior attempt; skipping", "eventId", event.ID)
		return nil
	}

	if err := a.publisher.Record(ctx, event); err != nil {
		logger.Error("PublishEvent failed", "eventId", event.ID, "error", err)
		return err
	}
	activity.RecordHeartbeat(ctx, publishHeartbeat{Completed: true})
	logger.Info("PublishEvent completed", "eventId", event.ID)
	return nil
}

type publishHeartbeat struct {
	Completed bool
}
