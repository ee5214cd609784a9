package orchestrator

import (
	"context"
	"net/http"

	inboundmapper "github.com/Apurer/go-retail-ops/internal/domains/inbound/adapters/http/mapper"
	inboundtypes "github.com/Apurer/go-retail-ops/internal/domains/inbound/application/types"
	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

const aggregateInbound = "inbound_record"

// CreateInbound registers received goods for approval.
func (o *Orchestrator) CreateInbound(ctx context.Context, cmd Command[inboundtypes.CreateRecordInput]) Response {
	input := cmd.Input
	input.CreatedBy = cmd.Actor
	return execute(ctx, o, o.inboundOperation(ports.ActionInboundCreate, cmd.Actor, cmd.IdempotencyKey, input, http.StatusCreated,
		func(ctx context.Context) (*inboundtypes.RecordProjection, error) {
			return o.deps.Inbound.Create(ctx, input)
		}))
}

// ApproveInbound approves a pending record and credits its stock.
func (o *Orchestrator) ApproveInbound(ctx context.Context, cmd Command[inboundtypes.ApproveRecordInput]) Response {
	input := cmd.Input
	input.Approver = cmd.Actor
	return execute(ctx, o, o.inboundOperation(ports.ActionInboundApprove, cmd.Actor, cmd.IdempotencyKey, input, http.StatusOK,
		func(ctx context.Context) (*inboundtypes.RecordProjection, error) {
			return o.deps.Inbound.Approve(ctx, input)
		}))
}

// RejectInbound turns a pending record down.
func (o *Orchestrator) RejectInbound(ctx context.Context, cmd Command[inboundtypes.RejectRecordInput]) Response {
	input := cmd.Input
	input.Approver = cmd.Actor
	return execute(ctx, o, o.inboundOperation(ports.ActionInboundReject, cmd.Actor, cmd.IdempotencyKey, input, http.StatusOK,
		func(ctx context.Context) (*inboundtypes.RecordProjection, error) {
			return o.deps.Inbound.Reject(ctx, input)
		}))
}

func (o *Orchestrator) GetInbound(ctx context.Context, actor, id string) Response {
	return execute(ctx, o, operation[*inboundtypes.RecordProjection]{
		action: ports.ActionInboundRead,
		actor:  actor,
		invoke: func(ctx context.Context) (*inboundtypes.RecordProjection, error) {
			return o.deps.Inbound.Get(ctx, id)
		},
		render: renderRecord,
	})
}

func (o *Orchestrator) ListInbound(ctx context.Context, actor string, input inboundtypes.ListRecordsInput) Response {
	return execute(ctx, o, operation[[]*inboundtypes.RecordProjection]{
		action: ports.ActionInboundRead,
		actor:  actor,
		invoke: func(ctx context.Context) ([]*inboundtypes.RecordProjection, error) {
			return o.deps.Inbound.List(ctx, input)
		},
		render: func(list []*inboundtypes.RecordProjection, _ bool) any {
			return inboundmapper.FromProjections(list)
		},
	})
}

func (o *Orchestrator) inboundOperation(action ports.Action, actor, key string, command any, status int, invoke func(context.Context) (*inboundtypes.RecordProjection, error)) operation[*inboundtypes.RecordProjection] {
	return operation[*inboundtypes.RecordProjection]{
		action:        action,
		aggregateType: aggregateInbound,
		actor:         actor,
		key:           key,
		command:       command,
		successStatus: status,
		invoke:        invoke,
		reload: func(ctx context.Context, id string) (*inboundtypes.RecordProjection, error) {
			return o.deps.Inbound.Get(ctx, id)
		},
		aggregateID: recordID,
		audit: func(ctx context.Context, p *inboundtypes.RecordProjection) []ports.AuditEvent {
			events := make([]transitionEvent, 0, len(p.Entity.Events()))
			for _, event := range p.Entity.Events() {
				if te, ok := event.(transitionEvent); ok {
					events = append(events, te)
				}
			}
			return o.auditEvents(ctx, aggregateInbound, p.Entity.ID, actor, key, events)
		},
		render: renderRecord,
	}
}

func recordID(p *inboundtypes.RecordProjection) string {
	if p == nil || p.Entity == nil {
		return ""
	}
	return p.Entity.ID
}

func renderRecord(p *inboundtypes.RecordProjection, finalized bool) any {
	body := inboundmapper.FromProjection(p)
	body.AlreadyFinalized = finalized
	return body
}
