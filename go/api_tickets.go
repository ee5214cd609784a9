package retailopsserver

import (
	"context"

	"github.com/gin-gonic/gin"

	ticketmapper "github.com/Apurer/go-retail-ops/internal/domains/aftersales/adapters/http/mapper"
	tickettypes "github.com/Apurer/go-retail-ops/internal/domains/aftersales/application/types"
	"github.com/Apurer/go-retail-ops/internal/orchestrator"
	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

// TicketOrchestrator is the slice of the orchestrator used by TicketAPI.
type TicketOrchestrator interface {
	CreateTicket(ctx context.Context, cmd orchestrator.Command[tickettypes.CreateTicketInput]) orchestrator.Response
	AssignTicket(ctx context.Context, cmd orchestrator.Command[tickettypes.AssignTicketInput]) orchestrator.Response
	AttachEvidence(ctx context.Context, cmd orchestrator.Command[tickettypes.AttachEvidenceInput]) orchestrator.Response
	ResolveTicket(ctx context.Context, cmd orchestrator.Command[tickettypes.ResolveTicketInput]) orchestrator.Response
	RejectTicket(ctx context.Context, cmd orchestrator.Command[tickettypes.RejectTicketInput]) orchestrator.Response
	CloseTicket(ctx context.Context, cmd orchestrator.Command[tickettypes.CloseTicketInput]) orchestrator.Response
	GetTicket(ctx context.Context, actor, id string) orchestrator.Response
	ListTickets(ctx context.Context, actor string, input tickettypes.ListTicketsInput) orchestrator.Response
}

// TicketAPI exposes the after-sales ticket workflow.
type TicketAPI struct {
	orch TicketOrchestrator
	responder
}

func NewTicketAPI(orch TicketOrchestrator, observer CommandObserver) TicketAPI {
	return TicketAPI{orch: orch, responder: responder{observer: observer}}
}

// Post /v1/tickets
func (api TicketAPI) CreateTicket(c *gin.Context) {
	var payload ticketmapper.CreateTicketRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	actor := actorFrom(c)
	resp := api.orch.CreateTicket(c.Request.Context(), orchestrator.Command[tickettypes.CreateTicketInput]{
		Actor:          actor,
		IdempotencyKey: idempotencyKey(c),
		Input:          ticketmapper.ToCreateInput(payload, actor),
	})
	api.write(c, ports.ActionTicketCreate, resp)
}

// Post /v1/tickets/:id/assign
// An empty body assigns the ticket to the caller.
func (api TicketAPI) AssignTicket(c *gin.Context) {
	var payload ticketmapper.AssignTicketRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			respondBindError(c, err)
			return
		}
	}
	actor := actorFrom(c)
	resp := api.orch.AssignTicket(c.Request.Context(), orchestrator.Command[tickettypes.AssignTicketInput]{
		Actor:          actor,
		IdempotencyKey: idempotencyKey(c),
		Input:          ticketmapper.ToAssignInput(c.Param("id"), payload, actor),
	})
	api.write(c, ports.ActionTicketAssign, resp)
}

// Post /v1/tickets/:id/attachments
func (api TicketAPI) AttachEvidence(c *gin.Context) {
	var payload ticketmapper.AttachEvidenceRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	actor := actorFrom(c)
	resp := api.orch.AttachEvidence(c.Request.Context(), orchestrator.Command[tickettypes.AttachEvidenceInput]{
		Actor:          actor,
		IdempotencyKey: idempotencyKey(c),
		Input:          ticketmapper.ToAttachEvidenceInput(c.Param("id"), payload, actor),
	})
	api.write(c, ports.ActionTicketAttachEvidence, resp)
}

// Post /v1/tickets/:id/resolve
func (api TicketAPI) ResolveTicket(c *gin.Context) {
	var payload ticketmapper.ResolveTicketRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			respondBindError(c, err)
			return
		}
	}
	actor := actorFrom(c)
	resp := api.orch.ResolveTicket(c.Request.Context(), orchestrator.Command[tickettypes.ResolveTicketInput]{
		Actor:          actor,
		IdempotencyKey: idempotencyKey(c),
		Input:          ticketmapper.ToResolveInput(c.Param("id"), payload, actor),
	})
	api.write(c, ports.ActionTicketResolve, resp)
}

// Post /v1/tickets/:id/reject
func (api TicketAPI) RejectTicket(c *gin.Context) {
	var payload ticketmapper.RejectTicketRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	resp := api.orch.RejectTicket(c.Request.Context(), orchestrator.Command[tickettypes.RejectTicketInput]{
		Actor:          actorFrom(c),
		IdempotencyKey: idempotencyKey(c),
		Input:          tickettypes.RejectTicketInput{TicketID: c.Param("id"), Reason: payload.Reason},
	})
	api.write(c, ports.ActionTicketReject, resp)
}

// Post /v1/tickets/:id/close
func (api TicketAPI) CloseTicket(c *gin.Context) {
	resp := api.orch.CloseTicket(c.Request.Context(), orchestrator.Command[tickettypes.CloseTicketInput]{
		Actor:          actorFrom(c),
		IdempotencyKey: idempotencyKey(c),
		Input:          tickettypes.CloseTicketInput{TicketID: c.Param("id")},
	})
	api.write(c, ports.ActionTicketClose, resp)
}

// Get /v1/tickets/:id
func (api TicketAPI) GetTicket(c *gin.Context) {
	api.write(c, ports.ActionTicketRead, api.orch.GetTicket(c.Request.Context(), actorFrom(c), c.Param("id")))
}

// Get /v1/tickets?status=&assignedTo=&orderId=
func (api TicketAPI) ListTickets(c *gin.Context) {
	resp := api.orch.ListTickets(c.Request.Context(), actorFrom(c), tickettypes.ListTicketsInput{
		Status:     c.Query("status"),
		AssignedTo: c.Query("assignedTo"),
		OrderID:    c.Query("orderId"),
	})
	api.write(c, ports.ActionTicketRead, resp)
}
