package types

import (
	"github.com/shopspring/decimal"

	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/domain"
	"github.com/Apurer/go-retail-ops/internal/shared/projection"
)

// TicketProjection transports a ticket together with its persistence metadata.
type TicketProjection = projection.Projection[*domain.Ticket]

// CreateTicketInput opens a ticket. An empty OrderItemID covers the whole order and a
// nil EvidenceRequired means evidence is required.
type CreateTicketInput struct {
	OrderID          string `json:"orderId"`
	OrderItemID      string `json:"orderItemId,omitempty"`
	CustomerID       string `json:"customerId"`
	Type             string `json:"type"`
	Reason           string `json:"reason"`
	RequestedAction  string `json:"requestedAction,omitempty"`
	EvidenceRequired *bool  `json:"evidenceRequired,omitempty"`
}

// RequiresEvidence resolves the evidence flag, defaulting to true.
func (in CreateTicketInput) RequiresEvidence() bool {
	return in.EvidenceRequired == nil || *in.EvidenceRequired
}

type AssignTicketInput struct {
	TicketID string `json:"ticketId"`
	StaffID  string `json:"staffId"`
}

// AttachmentInput describes an uploaded evidence file.
type AttachmentInput struct {
	FileName    string `json:"fileName"`
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
}

type AttachEvidenceInput struct {
	TicketID   string          `json:"ticketId"`
	UploadedBy string          `json:"uploadedBy"`
	Attachment AttachmentInput `json:"attachment"`
}

// ResolveTicketInput resolves a ticket. RefundAmount is mandatory for refund tickets.
type ResolveTicketInput struct {
	TicketID     string           `json:"ticketId"`
	StaffID      string           `json:"staffId"`
	RefundAmount *decimal.Decimal `json:"refundAmount,omitempty"`
	PolicyNote   string           `json:"policyNote,omitempty"`
}

type RejectTicketInput struct {
	TicketID string `json:"ticketId"`
	StaffID  string `json:"staffId"`
	Reason   string `json:"reason"`
}

type CloseTicketInput struct {
	TicketID string `json:"ticketId"`
	StaffID  string `json:"staffId"`
}

// ListTicketsInput filters ticket listings; empty fields match everything.
type ListTicketsInput struct {
	Status     string
	AssignedTo string
	OrderID    string
}
