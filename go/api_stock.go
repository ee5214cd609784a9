package retailopsserver

import (
	"context"

	"github.com/gin-gonic/gin"

	stockmapper "github.com/Apurer/go-retail-ops/internal/domains/stock/adapters/http/mapper"
	"github.com/Apurer/go-retail-ops/internal/orchestrator"
	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

// StockOrchestrator is the slice of the orchestrator used by StockAPI.
type StockOrchestrator interface {
	AdjustStock(ctx context.Context, cmd orchestrator.Command[orchestrator.AdjustStockInput]) orchestrator.Response
	RegisterStock(ctx context.Context, cmd orchestrator.Command[stockmapper.RegisterStockRequest]) orchestrator.Response
	GetStock(ctx context.Context, actor, productID string) orchestrator.Response
	StockMovements(ctx context.Context, actor, correlationID string) orchestrator.Response
}

type StockAPI struct {
	orch StockOrchestrator
	responder
}

func NewStockAPI(orch StockOrchestrator, observer CommandObserver) StockAPI {
	return StockAPI{orch: orch, responder: responder{observer: observer}}
}

// Post /v1/stock
func (api StockAPI) RegisterStock(c *gin.Context) {
	var payload stockmapper.RegisterStockRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	resp := api.orch.RegisterStock(c.Request.Context(), orchestrator.Command[stockmapper.RegisterStockRequest]{
		Actor:          actorFrom(c),
		IdempotencyKey: idempotencyKey(c),
		Input:          payload,
	})
	api.write(c, ports.ActionStockRegister, resp)
}

// Post /v1/stock/:productId/adjustments
func (api StockAPI) AdjustStock(c *gin.Context) {
	var payload stockmapper.AdjustStockRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	resp := api.orch.AdjustStock(c.Request.Context(), orchestrator.Command[orchestrator.AdjustStockInput]{
		Actor:          actorFrom(c),
		IdempotencyKey: idempotencyKey(c),
		Input:          orchestrator.AdjustStockInput{ProductID: c.Param("productId"), Quantity: payload.Quantity, Note: payload.Note},
	})
	api.write(c, ports.ActionStockAdjust, resp)
}

// Get /v1/stock/:productId
func (api StockAPI) GetStock(c *gin.Context) {
	api.write(c, ports.ActionStockRead, api.orch.GetStock(c.Request.Context(), actorFrom(c), c.Param("productId")))
}

// Get /v1/stock/movements/:correlationId
func (api StockAPI) ListMovements(c *gin.Context) {
	api.write(c, ports.ActionStockRead, api.orch.StockMovements(c.Request.Context(), actorFrom(c), c.Param("correlationId")))
}
