package audit

import (
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
	"github.com/Apurer/go-retail-ops/internal/platform/temporal/sequences"
)

const (
	// DeliveryWorkflowName is the public identifier for registering the workflow.
	DeliveryWorkflowName = "audit.workflows.Delivery"
	// DeliveryTaskQueue is the queue consumed by the worker delivering audit events.
	DeliveryTaskQueue = "AUDIT_DELIVERY"
)

type DeliveryWorkflowInput struct {
	Event   ports.AuditEvent
	TraceID string
}

// DeliveryWorkflow carries one audit event to the audit trail and the brokers.
func DeliveryWorkflow(ctx workflow.Context, input DeliveryWorkflowInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("DeliveryWorkflow started", withTraceID(input.TraceID, "eventId", input.Event.ID, "action", input.Event.Action)...)
	if err := sequences.RunAuditDeliverySequence(ctx, input.Event); err != nil {
		logger.Error("DeliveryWorkflow failed", withTraceID(input.TraceID, "eventId", input.Event.ID, "error", err)...)
		return err
	}
	logger.Info("DeliveryWorkflow completed", withTraceID(input.TraceID, "eventId", input.Event.ID)...)
	return nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
