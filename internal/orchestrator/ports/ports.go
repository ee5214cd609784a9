package ports

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Action names a command an actor may be authorized for.
type Action string

const (
	ActionInboundCreate  Action = "inbound.create"
	ActionInboundApprove Action = "inbound.approve"
	ActionInboundReject  Action = "inbound.reject"
	ActionInboundRead    Action = "inbound.read"

	ActionTicketCreate         Action = "ticket.create"
	ActionTicketAssign         Action = "ticket.assign"
	ActionTicketAttachEvidence Action = "ticket.attach_evidence"
	ActionTicketResolve        Action = "ticket.resolve"
	ActionTicketReject         Action = "ticket.reject"
	ActionTicketClose          Action = "ticket.close"
	ActionTicketRead           Action = "ticket.read"

	ActionStockRead     Action = "stock.read"
	ActionStockAdjust   Action = "stock.adjust"
	ActionStockRegister Action = "stock.register"

	ActionOrderImport Action = "order.import"
	ActionOrderRead   Action = "order.read"

	ActionUserRegister Action = "user.register"
	ActionUserRead     Action = "user.read"
)

// Authorizer decides whether an actor may perform an action. A refusal wraps
// failures.ErrForbidden.
type Authorizer interface {
	Authorize(ctx context.Context, actor string, action Action) error
}

// AuditEvent is emitted after every successful state change.
type AuditEvent struct {
	ID            string          `json:"id"`
	Action        string          `json:"action"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	Actor         string          `json:"actor"`
	FromStatus    string          `json:"fromStatus,omitempty"`
	ToStatus      string          `json:"toStatus,omitempty"`
	Details       json.RawMessage `json:"details,omitempty"`
	OccurredAt    time.Time       `json:"occurredAt"`
	CorrelationID string          `json:"correlationId,omitempty"`
}

// AuditSink receives audit events. Delivery is best effort from the caller's view.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent) error
}

var (
	// ErrIdempotencyConflict indicates the same key was used for a different command.
	ErrIdempotencyConflict = errors.New("idempotency key reused with a different request")
	// ErrIdempotencyInFlight indicates the command holding the key has not finished yet.
	ErrIdempotencyInFlight = errors.New("idempotency key is held by a command in progress")
)

// IdempotencyRecord ties a client-supplied key to the aggregate its command produced.
// AggregateID stays empty while the claiming command is still running.
type IdempotencyRecord struct {
	Key         string
	Fingerprint string
	Action      Action
	AggregateID string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Pending reports whether the claiming command has not completed yet.
func (r IdempotencyRecord) Pending() bool {
	return r.AggregateID == ""
}

// IdempotencyStore persists idempotency keys so retried commands replay safely.
type IdempotencyStore interface {
	// Get returns the live record for key, or nil when unknown or expired.
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	// Claim atomically reserves record.Key. It returns (nil, nil) when the caller now owns
	// the key. Otherwise it returns the live record already stored under the key, together
	// with ErrIdempotencyConflict when that record's fingerprint differs.
	Claim(ctx context.Context, record IdempotencyRecord) (*IdempotencyRecord, error)
	// Complete attaches the produced aggregate to a claimed key.
	Complete(ctx context.Context, key, aggregateID string) error
	// Release drops a claim that has not completed, so the key can be used again.
	Release(ctx context.Context, key string) error
	// Purge deletes records that expired before cutoff and reports how many went.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}
