package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
	auditactivities "github.com/Apurer/go-retail-ops/internal/platform/temporal/activities/audit"
)

// RunAuditDeliverySequence stores the event, then publishes it with its own retry budget.
func RunAuditDeliverySequence(ctx workflow.Context, event ports.AuditEvent) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("audit delivery sequence started", "eventId", event.ID)
	storeOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	}
	publishOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    5 * time.Second,
			MaximumAttempts:    3,
		},
	}

	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, storeOptions), auditactivities.StoreAuditEventActivityName, event).Get(ctx, nil)
	if err != nil {
		logger.Error("audit delivery sequence failed to store", "eventId", event.ID, "error", err)
		return err
	}
	err = workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, publishOptions), auditactivities.PublishAuditEventActivityName, event).Get(ctx, nil)
	if err != nil {
		logger.Error("audit delivery sequence failed to publish", "eventId", event.ID, "error", err)
		return err
	}
	logger.Info("audit delivery sequence completed", "eventId", event.ID)
	return nil
}
