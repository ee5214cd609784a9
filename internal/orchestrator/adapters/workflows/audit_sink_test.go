package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
	auditworkflows "github.com/Apurer/go-retail-ops/internal/platform/temporal/workflows/audit"
)

type fakeStarter struct {
	options  client.StartWorkflowOptions
	workflow interface{}
	args     []interface{}
	err      error
}

func (f *fakeStarter) ExecuteWorkflow(_ context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error) {
	f.options, f.workflow, f.args = options, workflow, args
	return nil, f.err
}

func TestTemporalAuditSink_StartsDeliveryWorkflow(t *testing.T) {
	starter := &fakeStarter{}
	sink := NewTemporalAuditSink(starter)

	require.NoError(t, sink.Record(context.Background(), ports.AuditEvent{ID: "evt-9", Action: "aftersales.ticket.closed"}))

	assert.Equal(t, "audit-delivery-evt-9", starter.options.ID)
	assert.Equal(t, auditworkflows.DeliveryTaskQueue, starter.options.TaskQueue)
	assert.Equal(t, auditworkflows.DeliveryWorkflowName, starter.workflow)
	require.Len(t, starter.args, 1)
	input := starter.args[0].(auditworkflows.DeliveryWorkflowInput)
	assert.Equal(t, "evt-9", input.Event.ID)
}

func TestTemporalAuditSink_AlreadyStartedIsDelivered(t *testing.T) {
	starter := &fakeStarter{err: serviceerror.NewWorkflowExecutionAlreadyStarted("started", "req", "run")}
	sink := NewTemporalAuditSink(starter)

	assert.NoError(t, sink.Record(context.Background(), ports.AuditEvent{ID: "evt-9"}))
}

func TestTemporalAuditSink_StartFailure(t *testing.T) {
	starter := &fakeStarter{err: errors.New("frontend unavailable")}
	sink := NewTemporalAuditSink(starter)

	assert.Error(t, sink.Record(context.Background(), ports.AuditEvent{ID: "evt-9"}))
}
