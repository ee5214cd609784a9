package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	ticketmapper "github.com/Apurer/go-retail-ops/internal/domains/aftersales/adapters/http/mapper"
	tickettypes "github.com/Apurer/go-retail-ops/internal/domains/aftersales/application/types"
	userdomain "github.com/Apurer/go-retail-ops/internal/domains/users/domain"
	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
	"github.com/Apurer/go-retail-ops/internal/shared/failures"
)

const aggregateTicket = "aftersales_ticket"

type ticketCall func(ctx context.Context) (*tickettypes.TicketProjection, error)

// ErrNotTicketOwner is returned when a customer acts on another customer's case.
var ErrNotTicketOwner = errors.New("customers may only act on their own tickets")

// CreateTicket opens an after-sales case against an order. Customers always file for
// themselves; staff may file on a customer's behalf.
func (o *Orchestrator) CreateTicket(ctx context.Context, cmd Command[tickettypes.CreateTicketInput]) Response {
	input := cmd.Input
	input.CustomerID = strings.TrimSpace(input.CustomerID)
	if input.CustomerID == "" {
		input.CustomerID = cmd.Actor
	}
	return execute(ctx, o, o.ticketOperation(ports.ActionTicketCreate, cmd.Actor, cmd.IdempotencyKey, input, http.StatusCreated,
		func(ctx context.Context) (*tickettypes.TicketProjection, error) {
			selfService, err := o.customerOnly(ctx, cmd.Actor)
			if err != nil {
				return nil, err
			}
			if selfService && input.CustomerID != cmd.Actor {
				return nil, failures.Wrap(failures.ErrForbidden, fmt.Errorf("%w: %q filed for %q", ErrNotTicketOwner, cmd.Actor, input.CustomerID))
			}
			return o.deps.Tickets.Create(ctx, input)
		}))
}

// AssignTicket hands a ticket to a staff member, the caller when none is named.
func (o *Orchestrator) AssignTicket(ctx context.Context, cmd Command[tickettypes.AssignTicketInput]) Response {
	input := cmd.Input
	if strings.TrimSpace(input.StaffID) == "" {
		input.StaffID = cmd.Actor
	}
	return execute(ctx, o, o.ticketOperation(ports.ActionTicketAssign, cmd.Actor, cmd.IdempotencyKey, input, http.StatusOK,
		func(ctx context.Context) (*tickettypes.TicketProjection, error) {
			if input.StaffID != cmd.Actor {
				if err := o.requireUser(ctx, input.StaffID, ErrUnknownAssignee); err != nil {
					return nil, err
				}
			}
			return o.deps.Tickets.Assign(ctx, input)
		}))
}

func (o *Orchestrator) AttachEvidence(ctx context.Context, cmd Command[tickettypes.AttachEvidenceInput]) Response {
	input := cmd.Input
	input.UploadedBy = cmd.Actor
	return execute(ctx, o, o.ticketOperation(ports.ActionTicketAttachEvidence, cmd.Actor, cmd.IdempotencyKey, input, http.StatusOK,
		func(ctx context.Context) (*tickettypes.TicketProjection, error) {
			if err := o.requireTicketOwner(ctx, cmd.Actor, input.TicketID); err != nil {
				return nil, err
			}
			return o.deps.Tickets.AttachEvidence(ctx, input)
		}))
}

// customerOnly reports whether the actor holds no role beyond customer.
func (o *Orchestrator) customerOnly(ctx context.Context, actor string) (bool, error) {
	user, err := o.deps.Users.Get(ctx, actor)
	if err != nil {
		return false, err
	}
	for _, role := range user.Roles {
		if role != userdomain.RoleCustomer {
			return false, nil
		}
	}
	return true, nil
}

// requireTicketOwner lets customers touch only the tickets they filed.
func (o *Orchestrator) requireTicketOwner(ctx context.Context, actor, ticketID string) error {
	selfService, err := o.customerOnly(ctx, actor)
	if err != nil || !selfService {
		return err
	}
	ticket, err := o.deps.Tickets.Get(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.Entity.CustomerID != actor {
		return failures.Wrap(failures.ErrForbidden, fmt.Errorf("%w: ticket %q", ErrNotTicketOwner, ticketID))
	}
	return nil
}

func (o *Orchestrator) ResolveTicket(ctx context.Context, cmd Command[tickettypes.ResolveTicketInput]) Response {
	input := cmd.Input
	input.StaffID = cmd.Actor
	return execute(ctx, o, o.ticketOperation(ports.ActionTicketResolve, cmd.Actor, cmd.IdempotencyKey, input, http.StatusOK,
		func(ctx context.Context) (*tickettypes.TicketProjection, error) {
			return o.deps.Tickets.Resolve(ctx, input)
		}))
}

func (o *Orchestrator) RejectTicket(ctx context.Context, cmd Command[tickettypes.RejectTicketInput]) Response {
	input := cmd.Input
	input.StaffID = cmd.Actor
	return execute(ctx, o, o.ticketOperation(ports.ActionTicketReject, cmd.Actor, cmd.IdempotencyKey, input, http.StatusOK,
		func(ctx context.Context) (*tickettypes.TicketProjection, error) {
			return o.deps.Tickets.Reject(ctx, input)
		}))
}

func (o *Orchestrator) CloseTicket(ctx context.Context, cmd Command[tickettypes.CloseTicketInput]) Response {
	input := cmd.Input
	input.StaffID = cmd.Actor
	return execute(ctx, o, o.ticketOperation(ports.ActionTicketClose, cmd.Actor, cmd.IdempotencyKey, input, http.StatusOK,
		func(ctx context.Context) (*tickettypes.TicketProjection, error) {
			return o.deps.Tickets.Close(ctx, input)
		}))
}

func (o *Orchestrator) GetTicket(ctx context.Context, actor, id string) Response {
	return execute(ctx, o, operation[*tickettypes.TicketProjection]{
		action: ports.ActionTicketRead,
		actor:  actor,
		invoke: func(ctx context.Context) (*tickettypes.TicketProjection, error) {
			return o.deps.Tickets.Get(ctx, id)
		},
		render: renderTicket,
	})
}

func (o *Orchestrator) ListTickets(ctx context.Context, actor string, input tickettypes.ListTicketsInput) Response {
	return execute(ctx, o, operation[[]*tickettypes.TicketProjection]{
		action: ports.ActionTicketRead,
		actor:  actor,
		invoke: func(ctx context.Context) ([]*tickettypes.TicketProjection, error) {
			return o.deps.Tickets.List(ctx, input)
		},
		render: func(list []*tickettypes.TicketProjection, _ bool) any {
			return ticketmapper.FromProjections(list)
		},
	})
}

func (o *Orchestrator) ticketOperation(action ports.Action, actor, key string, command any, status int, invoke ticketCall) operation[*tickettypes.TicketProjection] {
	return operation[*tickettypes.TicketProjection]{
		action:        action,
		aggregateType: aggregateTicket,
		actor:         actor,
		key:           key,
		command:       command,
		successStatus: status,
		invoke:        invoke,
		reload: func(ctx context.Context, id string) (*tickettypes.TicketProjection, error) {
			return o.deps.Tickets.Get(ctx, id)
		},
		aggregateID: ticketID,
		audit: func(ctx context.Context, p *tickettypes.TicketProjection) []ports.AuditEvent {
			events := make([]transitionEvent, 0, len(p.Entity.Events()))
			for _, event := range p.Entity.Events() {
				if te, ok := event.(transitionEvent); ok {
					events = append(events, te)
				}
			}
			return o.auditEvents(ctx, aggregateTicket, p.Entity.ID, actor, key, events)
		},
		render: renderTicket,
	}
}

func ticketID(p *tickettypes.TicketProjection) string {
	if p == nil || p.Entity == nil {
		return ""
	}
	return p.Entity.ID
}

func renderTicket(p *tickettypes.TicketProjection, finalized bool) any {
	body := ticketmapper.FromProjection(p)
	body.AlreadyFinalized = finalized
	return body
}
