package retailopsserver

import (
	"github.com/gin-gonic/gin"

	"github.com/Apurer/go-retail-ops/internal/orchestrator"
	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
	sharederrors "github.com/Apurer/go-retail-ops/internal/shared/errors"
	"github.com/Apurer/go-retail-ops/internal/shared/failures"
)

// CommandObserver receives the status of every orchestrated command.
type CommandObserver interface {
	ObserveCommand(action string, status int)
}

// responder writes orchestrator responses and reports them to the observer.
type responder struct {
	observer CommandObserver
}

func (r responder) write(c *gin.Context, action ports.Action, resp orchestrator.Response) {
	if r.observer != nil {
		r.observer.ObserveCommand(string(action), resp.Status)
	}
	if problem, ok := resp.Problem(); ok {
		sharederrors.Respond(c, problem)
		return
	}
	c.JSON(resp.Status, resp.Body)
}

// respondBindError rejects a payload that could not be decoded.
func respondBindError(c *gin.Context, err error) {
	sharederrors.DefaultResponder.BadRequest(c, err.Error())
}

// respondInvalid rejects a payload that decoded but failed transport-level validation.
func respondInvalid(c *gin.Context, err error) {
	sharederrors.RespondError(c, failures.Wrap(failures.ErrValidation, err))
}
