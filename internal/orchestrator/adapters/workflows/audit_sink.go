// Package workflows hands audit events to Temporal for durable delivery.
package workflows

import (
	"context"
	"errors"
	"fmt"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
	auditworkflows "github.com/Apurer/go-retail-ops/internal/platform/temporal/workflows/audit"
)

// WorkflowStarter is the part of client.Client the sink uses.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

var _ ports.AuditSink = (*TemporalAuditSink)(nil)

// TemporalAuditSink starts one delivery workflow per event and returns once it is
// accepted; the worker does the storing and publishing.
type TemporalAuditSink struct {
	client    WorkflowStarter
	taskQueue string
}

func NewTemporalAuditSink(c WorkflowStarter) *TemporalAuditSink {
	return &TemporalAuditSink{client: c, taskQueue: auditworkflows.DeliveryTaskQueue}
}

func (s *TemporalAuditSink) Record(ctx context.Context, event ports.AuditEvent) error {
	if s == nil || s.client == nil {
		return errors.New("temporal audit sink not configured")
	}
	options := client.StartWorkflowOptions{
		ID:        DeliveryWorkflowID(event.ID),
		TaskQueue: s.taskQueue,
	}
	_, err := s.client.ExecuteWorkflow(ctx, options, auditworkflows.DeliveryWorkflowName, auditworkflows.DeliveryWorkflowInput{
		Event:   event,
		TraceID: workflowTraceID(ctx),
	})
	var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &alreadyStarted) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("start audit delivery for %s: %w", event.ID, err)
	}
	return nil
}

// DeliveryWorkflowID is derived from the event id so a re-recorded event starts no second workflow.
func DeliveryWorkflowID(eventID string) string {
	return "audit-delivery-" + eventID
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
