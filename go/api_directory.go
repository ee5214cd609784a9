package retailopsserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	ordermapper "github.com/Apurer/go-retail-ops/internal/domains/orders/adapters/http/mapper"
	orderdomain "github.com/Apurer/go-retail-ops/internal/domains/orders/domain"
	usermapper "github.com/Apurer/go-retail-ops/internal/domains/users/adapters/http/mapper"
	userdomain "github.com/Apurer/go-retail-ops/internal/domains/users/domain"
	"github.com/Apurer/go-retail-ops/internal/orchestrator"
	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

// DirectoryOrchestrator covers the order and user reference data.
type DirectoryOrchestrator interface {
	ImportOrder(ctx context.Context, cmd orchestrator.Command[*orderdomain.Order]) orchestrator.Response
	GetOrder(ctx context.Context, actor, id string) orchestrator.Response
	RegisterUser(ctx context.Context, cmd orchestrator.Command[*userdomain.User]) orchestrator.Response
	GetUser(ctx context.Context, actor, id string) orchestrator.Response
}

// DirectoryAPI imports orders and maintains the user directory.
type DirectoryAPI struct {
	orch DirectoryOrchestrator
	now  func() time.Time
	responder
}

func NewDirectoryAPI(orch DirectoryOrchestrator, observer CommandObserver) DirectoryAPI {
	return DirectoryAPI{orch: orch, now: time.Now, responder: responder{observer: observer}}
}

// Post /v1/orders
func (api DirectoryAPI) ImportOrder(c *gin.Context) {
	var payload ordermapper.Order
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := ordermapper.ToDomainOrder(payload, api.now())
	if err != nil {
		respondInvalid(c, err)
		return
	}
	resp := api.orch.ImportOrder(c.Request.Context(), orchestrator.Command[*orderdomain.Order]{
		Actor:          actorFrom(c),
		IdempotencyKey: idempotencyKey(c),
		Input:          order,
	})
	api.write(c, ports.ActionOrderImport, resp)
}

// Get /v1/orders/:id
func (api DirectoryAPI) GetOrder(c *gin.Context) {
	api.write(c, ports.ActionOrderRead, api.orch.GetOrder(c.Request.Context(), actorFrom(c), c.Param("id")))
}

// Post /v1/users
func (api DirectoryAPI) RegisterUser(c *gin.Context) {
	var payload usermapper.User
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	user, err := usermapper.ToDomainUser(payload)
	if err != nil {
		respondInvalid(c, err)
		return
	}
	resp := api.orch.RegisterUser(c.Request.Context(), orchestrator.Command[*userdomain.User]{
		Actor:          actorFrom(c),
		IdempotencyKey: idempotencyKey(c),
		Input:          user,
	})
	api.write(c, ports.ActionUserRegister, resp)
}

// Get /v1/users/:id
func (api DirectoryAPI) GetUser(c *gin.Context) {
	api.write(c, ports.ActionUserRead, api.orch.GetUser(c.Request.Context(), actorFrom(c), c.Param("id")))
}
