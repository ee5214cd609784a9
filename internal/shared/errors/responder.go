package errors

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/go-retail-ops/internal/shared/failures"
)

// ContentTypeProblemJSON is the media type for Problem Details responses.
const ContentTypeProblemJSON = "application/problem+json"

// Responder provides methods to send Problem Details responses.
type Responder struct {
	// BaseURI is prepended to problem type URIs if they are relative.
	BaseURI string
}

// NewResponder creates a new problem responder with optional base URI.
func NewResponder(baseURI string) *Responder {
	return &Responder{BaseURI: baseURI}
}

// DefaultResponder uses relative URIs for problem types.
var DefaultResponder = NewResponder("")

// Respond sends a ProblemDetail response with proper content type.
func (r *Responder) Respond(c *gin.Context, problem ProblemDetail) {
	if r.BaseURI != "" && len(problem.Type) > 0 && problem.Type[0] == '/' {
		problem.Type = r.BaseURI + problem.Type
	}
	if problem.Instance == "" {
		problem.Instance = c.Request.URL.Path
	}
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.JSON(problem.Status, problem)
}

// RespondError converts err to a ProblemDetail and responds.
func (r *Responder) RespondError(c *gin.Context, err error) {
	r.Respond(c, FromError(err))
}

// BadRequest sends a 400 problem response.
func (r *Responder) BadRequest(c *gin.Context, detail string) {
	r.Respond(c, ErrBadRequest.WithDetail(detail))
}

// Respond is a convenience function using the default responder.
func Respond(c *gin.Context, problem ProblemDetail) {
	DefaultResponder.Respond(c, problem)
}

// RespondError is a convenience function using the default responder.
func RespondError(c *gin.Context, err error) {
	DefaultResponder.RespondError(c, err)
}

// FromError maps an application error onto its problem template. Errors that
// already are a ProblemDetail pass through; uncategorized errors become 500.
func FromError(err error) ProblemDetail {
	var problem ProblemDetail
	if errors.As(err, &problem) {
		return problem
	}
	template := templateFor(failures.Kind(err))
	if err != nil {
		template = template.WithDetail(err.Error())
	}
	var partial *failures.PartialFailureError
	if errors.As(err, &partial) {
		template = template.
			WithExtension("step", partial.Step).
			WithExtension("productId", partial.ProductID).
			WithExtension("line", partial.Line)
	}
	return template
}

func templateFor(kind error) ProblemDetail {
	switch kind {
	case failures.ErrNotFound:
		return ErrNotFound
	case failures.ErrValidation:
		return ErrValidation
	case failures.ErrInvalidTransition:
		return ErrInvalidTransition
	case failures.ErrInvalidState:
		return ErrInvalidState
	case failures.ErrEvidenceRequired:
		return ErrEvidenceRequired
	case failures.ErrInsufficientStock:
		return ErrInsufficientStock
	case failures.ErrPartialFailure:
		return ErrPartialFailure
	case failures.ErrConflict:
		return ErrConflict
	case failures.ErrForbidden:
		return ErrForbidden
	default:
		return ErrInternal
	}
}

// HTTPStatusFromError extracts HTTP status from an error if possible.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, failures.ErrAlreadyFinalized) {
		return http.StatusOK
	}
	return FromError(err).Status
}
