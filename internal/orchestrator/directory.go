package orchestrator

import (
	"context"
	"net/http"

	ordermapper "github.com/Apurer/go-retail-ops/internal/domains/orders/adapters/http/mapper"
	orderdomain "github.com/Apurer/go-retail-ops/internal/domains/orders/domain"
	usermapper "github.com/Apurer/go-retail-ops/internal/domains/users/adapters/http/mapper"
	userdomain "github.com/Apurer/go-retail-ops/internal/domains/users/domain"
	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

// ImportOrder stores an order placed in the sales channel so tickets can refer to it.
func (o *Orchestrator) ImportOrder(ctx context.Context, cmd Command[*orderdomain.Order]) Response {
	return execute(ctx, o, operation[*orderdomain.Order]{
		action:        ports.ActionOrderImport,
		aggregateType: "order",
		actor:         cmd.Actor,
		successStatus: http.StatusCreated,
		invoke: func(ctx context.Context) (*orderdomain.Order, error) {
			return o.deps.Orders.PlaceOrder(ctx, cmd.Input)
		},
		audit: func(ctx context.Context, order *orderdomain.Order) []ports.AuditEvent {
			return []ports.AuditEvent{o.newAuditEvent(ctx, "order.imported", "order", order.ID, cmd.Actor, cmd.IdempotencyKey, "", string(order.Status), o.now(), ordermapper.FromDomainOrder(order))}
		},
		render: func(order *orderdomain.Order, _ bool) any {
			return ordermapper.FromDomainOrder(order)
		},
	})
}

func (o *Orchestrator) GetOrder(ctx context.Context, actor, id string) Response {
	return execute(ctx, o, operation[*orderdomain.Order]{
		action: ports.ActionOrderRead,
		actor:  actor,
		invoke: func(ctx context.Context) (*orderdomain.Order, error) {
			return o.deps.Orders.GetOrder(ctx, id)
		},
		render: func(order *orderdomain.Order, _ bool) any {
			return ordermapper.FromDomainOrder(order)
		},
	})
}

// RegisterUser adds or updates a directory entry.
func (o *Orchestrator) RegisterUser(ctx context.Context, cmd Command[*userdomain.User]) Response {
	return execute(ctx, o, operation[*userdomain.User]{
		action:        ports.ActionUserRegister,
		aggregateType: "user",
		actor:         cmd.Actor,
		successStatus: http.StatusCreated,
		invoke: func(ctx context.Context) (*userdomain.User, error) {
			return o.deps.Users.Register(ctx, cmd.Input)
		},
		audit: func(ctx context.Context, user *userdomain.User) []ports.AuditEvent {
			return []ports.AuditEvent{o.newAuditEvent(ctx, "user.registered", "user", user.ID, cmd.Actor, cmd.IdempotencyKey, "", "", o.now(), usermapper.FromDomainUser(user))}
		},
		render: func(user *userdomain.User, _ bool) any {
			return usermapper.FromDomainUser(user)
		},
	})
}

func (o *Orchestrator) GetUser(ctx context.Context, actor, id string) Response {
	return execute(ctx, o, operation[*userdomain.User]{
		action: ports.ActionUserRead,
		actor:  actor,
		invoke: func(ctx context.Context) (*userdomain.User, error) {
			return o.deps.Users.Get(ctx, id)
		},
		render: func(user *userdomain.User, _ bool) any {
			return usermapper.FromDomainUser(user)
		},
	})
}
