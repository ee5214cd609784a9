package mapper

import (
	"time"

	"github.com/Apurer/go-retail-ops/internal/domains/stock/domain"
)

// RegisterStockRequest seeds a product with its opening quantity.
type RegisterStockRequest struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// AdjustStockRequest is a signed manual correction.
type AdjustStockRequest struct {
	Quantity int64  `json:"quantity"`
	Note     string `json:"note,omitempty"`
}

type Entry struct {
	ProductID string    `json:"productId"`
	Quantity  int64     `json:"quantity"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Movement struct {
	ID                string    `json:"id"`
	ProductID         string    `json:"productId"`
	Delta             int64     `json:"delta"`
	Reason            string    `json:"reason"`
	CorrelationID     string    `json:"correlationId"`
	Line              int       `json:"line"`
	ResultingQuantity int64     `json:"resultingQuantity"`
	CreatedAt         time.Time `json:"createdAt"`
	AlreadyFinalized  bool      `json:"alreadyFinalized,omitempty"`
}

func FromEntry(entry *domain.Entry) Entry {
	if entry == nil {
		return Entry{}
	}
	return Entry{ProductID: entry.ProductID, Quantity: entry.Quantity, UpdatedAt: entry.UpdatedAt}
}

// FromMovement maps a ledger line; a replayed delta is reported as already finalized.
func FromMovement(m domain.Movement) Movement {
	return Movement{
		ID:                m.ID,
		ProductID:         m.ProductID,
		Delta:             m.Delta,
		Reason:            string(m.Reason),
		CorrelationID:     m.CorrelationID,
		Line:              m.Line,
		ResultingQuantity: m.ResultingQuantity,
		CreatedAt:         m.CreatedAt,
		AlreadyFinalized:  m.Replayed,
	}
}

func FromMovements(list []domain.Movement) []Movement {
	out := make([]Movement, 0, len(list))
	for _, m := range list {
		out = append(out, FromMovement(m))
	}
	return out
}
