package mapper

import (
	"time"

	"github.com/Apurer/go-retail-ops/internal/domains/inbound/application/types"
	"github.com/Apurer/go-retail-ops/internal/domains/inbound/domain"
)

// Item is one received product line on the wire.
type Item struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// CreateRecordRequest is the payload for registering received goods.
type CreateRecordRequest struct {
	SourceType      string `json:"sourceType"`
	SourceReference string `json:"sourceReference,omitempty"`
	Items           []Item `json:"items"`
	TotalItems      int64  `json:"totalItems"`
	Notes           string `json:"notes,omitempty"`
}

// RejectRecordRequest carries the rejection reason.
type RejectRecordRequest struct {
	Reason string `json:"reason"`
}

// Record is the HTTP representation of an inbound record.
type Record struct {
	ID               string     `json:"id"`
	SourceType       string     `json:"sourceType"`
	SourceReference  string     `json:"sourceReference,omitempty"`
	Status           string     `json:"status"`
	Items            []Item     `json:"items"`
	TotalItems       int64      `json:"totalItems"`
	Notes            string     `json:"notes,omitempty"`
	CreatedBy        string     `json:"createdBy"`
	ApprovedAt       *time.Time `json:"approvedAt,omitempty"`
	ApprovedBy       string     `json:"approvedBy,omitempty"`
	RejectedAt       *time.Time `json:"rejectedAt,omitempty"`
	RejectedBy       string     `json:"rejectedBy,omitempty"`
	RejectionReason  string     `json:"rejectionReason,omitempty"`
	Version          int64      `json:"version"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	AlreadyFinalized bool       `json:"alreadyFinalized,omitempty"`
}

// ToCreateInput maps a request into the application input, stamping the acting user.
func ToCreateInput(req CreateRecordRequest, actor string) types.CreateRecordInput {
	items := make([]types.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, types.ItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return types.CreateRecordInput{
		SourceType:      req.SourceType,
		SourceReference: req.SourceReference,
		Items:           items,
		TotalItems:      req.TotalItems,
		Notes:           req.Notes,
		CreatedBy:       actor,
	}
}

// FromProjection maps a record projection for responses.
func FromProjection(p *types.RecordProjection) Record {
	if p == nil || p.Entity == nil {
		return Record{}
	}
	record := p.Entity
	return Record{
		ID:              record.ID,
		SourceType:      string(record.SourceType),
		SourceReference: record.SourceReference,
		Status:          string(record.Status),
		Items:           fromItems(record.Items),
		TotalItems:      record.TotalItems,
		Notes:           record.Notes,
		CreatedBy:       record.CreatedBy,
		ApprovedAt:      record.ApprovedAt,
		ApprovedBy:      record.ApprovedBy,
		RejectedAt:      record.RejectedAt,
		RejectedBy:      record.RejectedBy,
		RejectionReason: record.RejectionReason,
		Version:         p.Metadata.Version,
		CreatedAt:       p.Metadata.CreatedAt,
		UpdatedAt:       p.Metadata.UpdatedAt,
	}
}

// FromProjections maps a list of projections.
func FromProjections(list []*types.RecordProjection) []Record {
	out := make([]Record, 0, len(list))
	for _, p := range list {
		out = append(out, FromProjection(p))
	}
	return out
}

func fromItems(items []domain.Item) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		out = append(out, Item{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}
