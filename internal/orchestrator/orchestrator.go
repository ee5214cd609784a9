// Package orchestrator is the coordination layer between the API boundary and the
// workflow services. It checks the actor, authorizes the command, enforces
// idempotency keys, runs the workflow, emits audit events and maps the outcome to a
// boundary response.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"

	ticketports "github.com/Apurer/go-retail-ops/internal/domains/aftersales/ports"
	inboundports "github.com/Apurer/go-retail-ops/internal/domains/inbound/ports"
	orderports "github.com/Apurer/go-retail-ops/internal/domains/orders/ports"
	stockports "github.com/Apurer/go-retail-ops/internal/domains/stock/ports"
	userports "github.com/Apurer/go-retail-ops/internal/domains/users/ports"
	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
	sharederrors "github.com/Apurer/go-retail-ops/internal/shared/errors"
	"github.com/Apurer/go-retail-ops/internal/shared/failures"
)

const (
	// DefaultIdempotencyTTL is how long a key is remembered when no TTL is configured.
	DefaultIdempotencyTTL = 24 * time.Hour
	// DefaultAuditTimeout bounds how long a command waits on the audit sink.
	DefaultAuditTimeout = 2 * time.Second
)

var (
	// ErrUnknownActor is returned when the acting user is not in the directory.
	ErrUnknownActor = errors.New("actor not found")
	// ErrUnknownAssignee is returned when a ticket is assigned to someone not in the directory.
	ErrUnknownAssignee = errors.New("assignee not found")
)

// Dependencies are the collaborators the orchestrator coordinates.
type Dependencies struct {
	Inbound     inboundports.Service
	Tickets     ticketports.Service
	Stock       stockports.Service
	Orders      orderports.Service
	Users       userports.Service
	Authorizer  ports.Authorizer
	Audit       ports.AuditSink
	Idempotency ports.IdempotencyStore
}

// Orchestrator runs commands on behalf of authenticated actors.
type Orchestrator struct {
	deps   Dependencies
	logger *slog.Logger
	now    func() time.Time
	ttl    time.Duration

	auditTimeout time.Duration
}

type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIdempotencyTTL sets how long idempotency keys are honoured.
func WithIdempotencyTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithAuditTimeout bounds each command's audit delivery.
func WithAuditTimeout(timeout time.Duration) Option {
	return func(o *Orchestrator) {
		if timeout > 0 {
			o.auditTimeout = timeout
		}
	}
}

// New wires an orchestrator. Audit and Idempotency may be nil.
func New(deps Dependencies, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		deps:   deps,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		ttl:    DefaultIdempotencyTTL,

		auditTimeout: DefaultAuditTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Command is a request issued by an actor. IdempotencyKey is optional.
type Command[T any] struct {
	Actor          string
	IdempotencyKey string
	Input          T
}

// Response is what the boundary writes back. On failure Body is a ProblemDetail.
type Response struct {
	Status int
	Body   any
	Err    error
}

// Problem returns the problem body of a failed response.
func (r Response) Problem() (sharederrors.ProblemDetail, bool) {
	problem, ok := r.Body.(sharederrors.ProblemDetail)
	return problem, ok
}

// transitionEvent is implemented by every workflow domain event.
type transitionEvent interface {
	EventName() string
	OccurredAt() time.Time
	StatusTransition() (from, to string)
}

type operation[T any] struct {
	action        ports.Action
	aggregateType string
	actor         string
	key           string
	command       any
	successStatus int
	invoke        func(ctx context.Context) (T, error)
	// reload re-reads the aggregate an earlier use of the idempotency key produced.
	reload      func(ctx context.Context, id string) (T, error)
	aggregateID func(T) string
	audit       func(ctx context.Context, result T) []ports.AuditEvent
	render      func(result T, finalized bool) any
}

func execute[T any](ctx context.Context, o *Orchestrator, op operation[T]) Response {
	if err := o.admit(ctx, op.actor, op.action); err != nil {
		return o.fail(ctx, op.action, err)
	}

	claimed := false
	if op.key != "" && o.deps.Idempotency != nil && op.reload != nil {
		fingerprint, err := Fingerprint(op.action, op.actor, op.command)
		if err != nil {
			return o.fail(ctx, op.action, fmt.Errorf("fingerprint command: %w", err))
		}
		now := o.now().UTC()
		stored, err := o.deps.Idempotency.Claim(ctx, ports.IdempotencyRecord{
			Key:         op.key,
			Fingerprint: fingerprint,
			Action:      op.action,
			CreatedAt:   now,
			ExpiresAt:   now.Add(o.ttl),
		})
		switch {
		case errors.Is(err, ports.ErrIdempotencyConflict):
			return o.fail(ctx, op.action, failures.Wrap(failures.ErrConflict, fmt.Errorf("%w: key %q", err, op.key)))
		case err != nil:
			return o.fail(ctx, op.action, err)
		case stored == nil:
			claimed = true
		case stored.Pending():
			return o.fail(ctx, op.action, failures.Wrap(failures.ErrConflict, fmt.Errorf("%w: key %q", ports.ErrIdempotencyInFlight, op.key)))
		default:
			result, err := op.reload(ctx, stored.AggregateID)
			if err != nil {
				return o.fail(ctx, op.action, err)
			}
			o.logger.LogAttrs(ctx, slog.LevelInfo, "idempotent replay",
				slog.String("action", string(op.action)),
				slog.String("aggregate.id", stored.AggregateID),
			)
			return Response{Status: http.StatusOK, Body: op.render(result, true), Err: failures.ErrAlreadyFinalized}
		}
	}

	result, err := op.invoke(ctx)
	if err != nil {
		if errors.Is(err, failures.ErrAlreadyFinalized) && op.aggregateID != nil && op.aggregateID(result) != "" {
			if claimed {
				o.complete(ctx, op.action, op.key, op.aggregateID(result))
			}
			return Response{Status: http.StatusOK, Body: op.render(result, true), Err: err}
		}
		if claimed {
			o.release(ctx, op.action, op.key)
		}
		return o.fail(ctx, op.action, err)
	}

	if claimed {
		o.complete(ctx, op.action, op.key, op.aggregateID(result))
	}
	if op.audit != nil {
		o.emit(ctx, op.audit(ctx, result))
	}
	status := op.successStatus
	if status == 0 {
		status = http.StatusOK
	}
	return Response{Status: status, Body: op.render(result, false)}
}

// admit checks the actor is known and allowed to perform action.
func (o *Orchestrator) admit(ctx context.Context, actor string, action ports.Action) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return failures.Wrap(failures.ErrNotFound, ErrUnknownActor)
	}
	if err := o.requireUser(ctx, actor, ErrUnknownActor); err != nil {
		return err
	}
	if o.deps.Authorizer == nil {
		return nil
	}
	return o.deps.Authorizer.Authorize(ctx, actor, action)
}

func (o *Orchestrator) requireUser(ctx context.Context, id string, missing error) error {
	ok, err := o.deps.Users.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return failures.Wrap(failures.ErrNotFound, fmt.Errorf("%w: %q", missing, id))
	}
	return nil
}

// complete attaches the aggregate to a claimed key. The command already committed, so a
// failure here only costs the replay.
func (o *Orchestrator) complete(ctx context.Context, action ports.Action, key, aggregateID string) {
	if err := o.deps.Idempotency.Complete(context.WithoutCancel(ctx), key, aggregateID); err != nil {
		o.logger.LogAttrs(ctx, slog.LevelError, "failed to complete idempotency key",
			slog.String("action", string(action)),
			slog.String("aggregate.id", aggregateID),
			slog.String("error", err.Error()),
		)
	}
}

// release frees the key of a failed command so the client may retry it.
func (o *Orchestrator) release(ctx context.Context, action ports.Action, key string) {
	if err := o.deps.Idempotency.Release(context.WithoutCancel(ctx), key); err != nil {
		o.logger.LogAttrs(ctx, slog.LevelWarn, "failed to release idempotency key",
			slog.String("action", string(action)),
			slog.String("error", err.Error()),
		)
	}
}

// emit hands events to the audit sink. Delivery is bounded by the audit timeout and
// detached from request cancellation; failures are logged and swallowed.
func (o *Orchestrator) emit(ctx context.Context, events []ports.AuditEvent) {
	if o.deps.Audit == nil || len(events) == 0 {
		return
	}
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.auditTimeout)
	defer cancel()
	for _, event := range events {
		if err := o.deps.Audit.Record(auditCtx, event); err != nil {
			o.logger.LogAttrs(ctx, slog.LevelWarn, "audit sink rejected event",
				slog.String("audit.action", event.Action),
				slog.String("aggregate.id", event.AggregateID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (o *Orchestrator) fail(ctx context.Context, action ports.Action, err error) Response {
	problem := sharederrors.FromError(err)
	level := slog.LevelInfo
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	o.logger.LogAttrs(ctx, level, "command failed",
		slog.String("action", string(action)),
		slog.Int("status", problem.Status),
		slog.String("error", err.Error()),
	)
	return Response{Status: problem.Status, Body: problem, Err: err}
}

// auditEvents converts domain events into audit records.
func (o *Orchestrator) auditEvents(ctx context.Context, aggregateType, aggregateID, actor, key string, events []transitionEvent) []ports.AuditEvent {
	out := make([]ports.AuditEvent, 0, len(events))
	for _, event := range events {
		from, to := event.StatusTransition()
		out = append(out, o.newAuditEvent(ctx, event.EventName(), aggregateType, aggregateID, actor, key, from, to, event.OccurredAt(), event))
	}
	return out
}

func (o *Orchestrator) newAuditEvent(ctx context.Context, action, aggregateType, aggregateID, actor, key, from, to string, at time.Time, details any) ports.AuditEvent {
	event := ports.AuditEvent{
		Action:        action,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Actor:         actor,
		FromStatus:    from,
		ToStatus:      to,
		OccurredAt:    at.UTC(),
		CorrelationID: correlationID(ctx, key),
	}
	if id, err := uuid.NewV7(); err == nil {
		event.ID = id.String()
	} else {
		event.ID = uuid.NewString()
	}
	if at.IsZero() {
		event.OccurredAt = o.now().UTC()
	}
	if raw, err := json.Marshal(details); err == nil {
		event.Details = raw
	}
	return event
}

// correlationID prefers the client's idempotency key, then the active trace.
func correlationID(ctx context.Context, key string) string {
	if key != "" {
		return key
	}
	spanCtx := oteltrace.SpanFromContext(ctx).SpanContext()
	if spanCtx.HasTraceID() {
		return spanCtx.TraceID().String()
	}
	return ""
}
