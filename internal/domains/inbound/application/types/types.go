package types

import (
	"github.com/Apurer/go-retail-ops/internal/domains/inbound/domain"
	"github.com/Apurer/go-retail-ops/internal/shared/projection"
)

// RecordProjection transports a record together with its persistence metadata.
type RecordProjection = projection.Projection[*domain.Record]

// ItemInput is one received product line.
type ItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// CreateRecordInput registers goods for approval.
type CreateRecordInput struct {
	SourceType      string      `json:"sourceType"`
	SourceReference string      `json:"sourceReference,omitempty"`
	Items           []ItemInput `json:"items"`
	TotalItems      int64       `json:"totalItems"`
	Notes           string      `json:"notes,omitempty"`
	CreatedBy       string      `json:"createdBy"`
}

// ApproveRecordInput approves a pending record.
type ApproveRecordInput struct {
	RecordID string `json:"recordId"`
	Approver string `json:"approver"`
}

// RejectRecordInput rejects a pending record.
type RejectRecordInput struct {
	RecordID string `json:"recordId"`
	Approver string `json:"approver"`
	Reason   string `json:"reason"`
}

// ListRecordsInput filters record listings. An empty status lists everything.
type ListRecordsInput struct {
	Status string
}
