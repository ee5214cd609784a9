package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	stockmapper "github.com/Apurer/go-retail-ops/internal/domains/stock/adapters/http/mapper"
	stockdomain "github.com/Apurer/go-retail-ops/internal/domains/stock/domain"
	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

const aggregateStock = "stock_entry"

// AdjustStockInput is a signed manual correction of one product.
type AdjustStockInput struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
	Note      string `json:"note,omitempty"`
}

// AdjustStock applies a manual delta. The idempotency key, when given, doubles as the
// ledger correlation id so a retried adjustment is applied once.
func (o *Orchestrator) AdjustStock(ctx context.Context, cmd Command[AdjustStockInput]) Response {
	input := cmd.Input
	correlation := strings.TrimSpace(cmd.IdempotencyKey)
	if correlation == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return o.fail(ctx, ports.ActionStockAdjust, fmt.Errorf("generate adjustment id: %w", err))
		}
		correlation = id.String()
	}
	correlation = "adjustment:" + correlation
	return execute(ctx, o, operation[*stockdomain.Movement]{
		action:        ports.ActionStockAdjust,
		aggregateType: aggregateStock,
		actor:         cmd.Actor,
		successStatus: http.StatusOK,
		invoke: func(ctx context.Context) (*stockdomain.Movement, error) {
			return o.deps.Stock.ApplyDelta(ctx, stockdomain.Delta{
				ProductID:     input.ProductID,
				Quantity:      input.Quantity,
				Reason:        stockdomain.ReasonManualAdjustment,
				CorrelationID: correlation,
			})
		},
		audit: func(ctx context.Context, m *stockdomain.Movement) []ports.AuditEvent {
			if m.Replayed {
				return nil
			}
			details := struct {
				Movement stockmapper.Movement `json:"movement"`
				Note     string               `json:"note,omitempty"`
			}{Movement: stockmapper.FromMovement(*m), Note: input.Note}
			return []ports.AuditEvent{o.newAuditEvent(ctx, "stock.adjusted", aggregateStock, m.ProductID, cmd.Actor, cmd.IdempotencyKey, "", "", m.CreatedAt, details)}
		},
		render: func(m *stockdomain.Movement, _ bool) any {
			return stockmapper.FromMovement(*m)
		},
	})
}

// RegisterStock seeds a product with its opening quantity.
func (o *Orchestrator) RegisterStock(ctx context.Context, cmd Command[stockmapper.RegisterStockRequest]) Response {
	input := cmd.Input
	return execute(ctx, o, operation[*stockdomain.Entry]{
		action:        ports.ActionStockRegister,
		aggregateType: aggregateStock,
		actor:         cmd.Actor,
		successStatus: http.StatusCreated,
		invoke: func(ctx context.Context) (*stockdomain.Entry, error) {
			return o.deps.Stock.Register(ctx, input.ProductID, input.Quantity)
		},
		audit: func(ctx context.Context, e *stockdomain.Entry) []ports.AuditEvent {
			return []ports.AuditEvent{o.newAuditEvent(ctx, "stock.registered", aggregateStock, e.ProductID, cmd.Actor, cmd.IdempotencyKey, "", "", e.UpdatedAt, stockmapper.FromEntry(e))}
		},
		render: func(e *stockdomain.Entry, _ bool) any {
			return stockmapper.FromEntry(e)
		},
	})
}

func (o *Orchestrator) GetStock(ctx context.Context, actor, productID string) Response {
	return execute(ctx, o, operation[*stockdomain.Entry]{
		action: ports.ActionStockRead,
		actor:  actor,
		invoke: func(ctx context.Context) (*stockdomain.Entry, error) {
			return o.deps.Stock.GetQuantity(ctx, productID)
		},
		render: func(e *stockdomain.Entry, _ bool) any {
			return stockmapper.FromEntry(e)
		},
	})
}

// StockMovements lists the ledger lines a workflow wrote under correlationID.
func (o *Orchestrator) StockMovements(ctx context.Context, actor, correlationID string) Response {
	return execute(ctx, o, operation[[]stockdomain.Movement]{
		action: ports.ActionStockRead,
		actor:  actor,
		invoke: func(ctx context.Context) ([]stockdomain.Movement, error) {
			return o.deps.Stock.Movements(ctx, correlationID)
		},
		render: func(list []stockdomain.Movement, _ bool) any {
			return stockmapper.FromMovements(list)
		},
	})
}
