package retailopsserver

import (
	"context"

	"github.com/gin-gonic/gin"

	inboundmapper "github.com/Apurer/go-retail-ops/internal/domains/inbound/adapters/http/mapper"
	inboundtypes "github.com/Apurer/go-retail-ops/internal/domains/inbound/application/types"
	"github.com/Apurer/go-retail-ops/internal/orchestrator"
	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

// InboundOrchestrator is the slice of the orchestrator used by InboundAPI.
type InboundOrchestrator interface {
	CreateInbound(ctx context.Context, cmd orchestrator.Command[inboundtypes.CreateRecordInput]) orchestrator.Response
	ApproveInbound(ctx context.Context, cmd orchestrator.Command[inboundtypes.ApproveRecordInput]) orchestrator.Response
	RejectInbound(ctx context.Context, cmd orchestrator.Command[inboundtypes.RejectRecordInput]) orchestrator.Response
	GetInbound(ctx context.Context, actor, id string) orchestrator.Response
	ListInbound(ctx context.Context, actor string, input inboundtypes.ListRecordsInput) orchestrator.Response
}

// InboundAPI exposes the inbound record workflow.
type InboundAPI struct {
	orch InboundOrchestrator
	responder
}

func NewInboundAPI(orch InboundOrchestrator, observer CommandObserver) InboundAPI {
	return InboundAPI{orch: orch, responder: responder{observer: observer}}
}

// Post /v1/inbound-records
func (api InboundAPI) CreateRecord(c *gin.Context) {
	var payload inboundmapper.CreateRecordRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	actor := actorFrom(c)
	resp := api.orch.CreateInbound(c.Request.Context(), orchestrator.Command[inboundtypes.CreateRecordInput]{
		Actor:          actor,
		IdempotencyKey: idempotencyKey(c),
		Input:          inboundmapper.ToCreateInput(payload, actor),
	})
	api.write(c, ports.ActionInboundCreate, resp)
}

// Post /v1/inbound-records/:id/approve
func (api InboundAPI) ApproveRecord(c *gin.Context) {
	resp := api.orch.ApproveInbound(c.Request.Context(), orchestrator.Command[inboundtypes.ApproveRecordInput]{
		Actor:          actorFrom(c),
		IdempotencyKey: idempotencyKey(c),
		Input:          inboundtypes.ApproveRecordInput{RecordID: c.Param("id")},
	})
	api.write(c, ports.ActionInboundApprove, resp)
}

// Post /v1/inbound-records/:id/reject
func (api InboundAPI) RejectRecord(c *gin.Context) {
	var payload inboundmapper.RejectRecordRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	resp := api.orch.RejectInbound(c.Request.Context(), orchestrator.Command[inboundtypes.RejectRecordInput]{
		Actor:          actorFrom(c),
		IdempotencyKey: idempotencyKey(c),
		Input:          inboundtypes.RejectRecordInput{RecordID: c.Param("id"), Reason: payload.Reason},
	})
	api.write(c, ports.ActionInboundReject, resp)
}

// Get /v1/inbound-records/:id
func (api InboundAPI) GetRecord(c *gin.Context) {
	api.write(c, ports.ActionInboundRead, api.orch.GetInbound(c.Request.Context(), actorFrom(c), c.Param("id")))
}

// Get /v1/inbound-records?status=
func (api InboundAPI) ListRecords(c *gin.Context) {
	resp := api.orch.ListInbound(c.Request.Context(), actorFrom(c), inboundtypes.ListRecordsInput{Status: c.Query("status")})
	api.write(c, ports.ActionInboundRead, resp)
}
