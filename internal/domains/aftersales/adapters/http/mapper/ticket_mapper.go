package mapper

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/application/types"
)

// CreateTicketRequest opens a ticket. Omitting evidenceRequired requires evidence.
type CreateTicketRequest struct {
	OrderID          string `json:"orderId"`
	OrderItemID      string `json:"orderItemId,omitempty"`
	CustomerID       string `json:"customerId,omitempty"`
	Type             string `json:"type"`
	Reason           string `json:"reason"`
	RequestedAction  string `json:"requestedAction,omitempty"`
	EvidenceRequired *bool  `json:"evidenceRequired,omitempty"`
}

type AssignTicketRequest struct {
	StaffID string `json:"staffId,omitempty"`
}

type AttachEvidenceRequest struct {
	FileName    string `json:"fileName"`
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
}

// ResolveTicketRequest carries the decision. RefundAmount is a decimal string.
type ResolveTicketRequest struct {
	RefundAmount *decimal.Decimal `json:"refundAmount,omitempty"`
	PolicyNote   string           `json:"policyNote,omitempty"`
}

type RejectTicketRequest struct {
	Reason string `json:"reason"`
}

type Attachment struct {
	ID          string    `json:"id"`
	FileName    string    `json:"fileName"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType,omitempty"`
	UploadedBy  string    `json:"uploadedBy"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// Ticket is the HTTP representation of an after-sales ticket.
type Ticket struct {
	ID               string           `json:"id"`
	OrderID          string           `json:"orderId"`
	OrderItemID      string           `json:"orderItemId,omitempty"`
	CustomerID       string           `json:"customerId"`
	Type             string           `json:"type"`
	Status           string           `json:"status"`
	Reason           string           `json:"reason"`
	RequestedAction  string           `json:"requestedAction,omitempty"`
	RefundAmount     *decimal.Decimal `json:"refundAmount,omitempty"`
	EvidenceRequired bool             `json:"evidenceRequired"`
	AssignedTo       string           `json:"assignedTo,omitempty"`
	PolicyViolation  string           `json:"policyViolation,omitempty"`
	RejectionReason  string           `json:"rejectionReason,omitempty"`
	Attachments      []Attachment     `json:"attachments"`
	ResolvedAt       *time.Time       `json:"resolvedAt,omitempty"`
	ResolvedBy       string           `json:"resolvedBy,omitempty"`
	RejectedAt       *time.Time       `json:"rejectedAt,omitempty"`
	RejectedBy       string           `json:"rejectedBy,omitempty"`
	ClosedAt         *time.Time       `json:"closedAt,omitempty"`
	ClosedBy         string           `json:"closedBy,omitempty"`
	Version          int64            `json:"version"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
	AlreadyFinalized bool             `json:"alreadyFinalized,omitempty"`
}

// ToCreateInput maps the request. Customers file for themselves, so an empty
// CustomerID falls back to the caller.
func ToCreateInput(req CreateTicketRequest, actor string) types.CreateTicketInput {
	customer := req.CustomerID
	if customer == "" {
		customer = actor
	}
	return types.CreateTicketInput{
		OrderID:          req.OrderID,
		OrderItemID:      req.OrderItemID,
		CustomerID:       customer,
		Type:             req.Type,
		Reason:           req.Reason,
		RequestedAction:  req.RequestedAction,
		EvidenceRequired: evidenceRequired(req.EvidenceRequired),
	}
}

func evidenceRequired(flag *bool) *bool {
	required := flag == nil || *flag
	return &required
}

// ToAssignInput assigns to the named staff member, or to the caller when none is given.
func ToAssignInput(ticketID string, req AssignTicketRequest, actor string) types.AssignTicketInput {
	staff := req.StaffID
	if staff == "" {
		staff = actor
	}
	return types.AssignTicketInput{TicketID: ticketID, StaffID: staff}
}

func ToAttachEvidenceInput(ticketID string, req AttachEvidenceRequest, actor string) types.AttachEvidenceInput {
	return types.AttachEvidenceInput{
		TicketID:   ticketID,
		UploadedBy: actor,
		Attachment: types.AttachmentInput{FileName: req.FileName, URL: req.URL, ContentType: req.ContentType},
	}
}

func ToResolveInput(ticketID string, req ResolveTicketRequest, actor string) types.ResolveTicketInput {
	return types.ResolveTicketInput{TicketID: ticketID, StaffID: actor, RefundAmount: req.RefundAmount, PolicyNote: req.PolicyNote}
}

func FromProjection(p *types.TicketProjection) Ticket {
	if p == nil || p.Entity == nil {
		return Ticket{}
	}
	t := p.Entity
	attachments := make([]Attachment, 0, len(t.Attachments))
	for _, a := range t.Attachments {
		attachments = append(attachments, Attachment{
			ID:          a.ID,
			FileName:    a.FileName,
			URL:         a.URL,
			ContentType: a.ContentType,
			UploadedBy:  a.UploadedBy,
			UploadedAt:  a.UploadedAt,
		})
	}
	return Ticket{
		ID:               t.ID,
		OrderID:          t.OrderID,
		OrderItemID:      t.OrderItemID,
		CustomerID:       t.CustomerID,
		Type:             string(t.Type),
		Status:           string(t.Status),
		Reason:           t.Reason,
		RequestedAction:  t.RequestedAction,
		RefundAmount:     t.RefundAmount,
		EvidenceRequired: t.EvidenceRequired,
		AssignedTo:       t.AssignedTo,
		PolicyViolation:  t.PolicyViolation,
		RejectionReason:  t.RejectionReason,
		Attachments:      attachments,
		ResolvedAt:       t.ResolvedAt,
		ResolvedBy:       t.ResolvedBy,
		RejectedAt:       t.RejectedAt,
		RejectedBy:       t.RejectedBy,
		ClosedAt:         t.ClosedAt,
		ClosedBy:         t.ClosedBy,
		Version:          p.Metadata.Version,
		CreatedAt:        p.Metadata.CreatedAt,
		UpdatedAt:        p.Metadata.UpdatedAt,
	}
}

func FromProjections(list []*types.TicketProjection) []Ticket {
	out := make([]Ticket, 0, len(list))
	for _, p := range list {
		out = append(out, FromProjection(p))
	}
	return out
}
