package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

var _ ports.AuditSink = (*AuditSink)(nil)

// AuditSink appends audit events to the audit_events table. Re-recording an event id is a no-op.
type AuditSink struct {
	db *gorm.DB
}

func NewAuditSink(db *gorm.DB) *AuditSink {
	return &AuditSink{db: db}
}

func (s *AuditSink) Record(ctx context.Context, event ports.AuditEvent) error {
	if s == nil || s.db == nil {
		return errors.New("postgres audit sink not configured")
	}
	record := auditRecord{
		ID:            event.ID,
		Action:        event.Action,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Actor:         event.Actor,
		FromStatus:    event.FromStatus,
		ToStatus:      event.ToStatus,
		Details:       []byte(event.Details),
		OccurredAt:    event.OccurredAt.UTC(),
		CorrelationID: event.CorrelationID,
	}
	if len(record.Details) == 0 {
		record.Details = []byte("{}")
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&record).Error
}

// ForAggregate returns the trail of one aggregate, oldest first.
func (s *AuditSink) ForAggregate(ctx context.Context, aggregateType, aggregateID string) ([]ports.AuditEvent, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("postgres audit sink not configured")
	}
	var records []auditRecord
	err := s.db.WithContext(ctx).
		Where("aggregate_type = ? AND aggregate_id = ?", aggregateType, aggregateID).
		Order("occurred_at, id").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	out := make([]ports.AuditEvent, 0, len(records))
	for _, r := range records {
		out = append(out, ports.AuditEvent{
			ID:            r.ID,
			Action:        r.Action,
			AggregateType: r.AggregateType,
			AggregateID:   r.AggregateID,
			Actor:         r.Actor,
			FromStatus:    r.FromStatus,
			ToStatus:      r.ToStatus,
			Details:       json.RawMessage(r.Details),
			OccurredAt:    r.OccurredAt,
			CorrelationID: r.CorrelationID,
		})
	}
	return out, nil
}

type auditRecord struct {
	ID            string    `gorm:"primaryKey;column:id;size:64"`
	Action        string    `gorm:"column:action;size:64;index"`
	AggregateType string    `gorm:"column:aggregate_type;size:32;index:idx_audit_aggregate"`
	AggregateID   string    `gorm:"column:aggregate_id;size:64;index:idx_audit_aggregate"`
	Actor         string    `gorm:"column:actor;size:64"`
	FromStatus    string    `gorm:"column:from_status;size:32"`
	ToStatus      string    `gorm:"column:to_status;size:32"`
	Details       []byte    `gorm:"column:details;type:jsonb"`
	OccurredAt    time.Time `gorm:"column:occurred_at;index"`
	CorrelationID string    `gorm:"column:correlation_id;size:255;index"`
}

func (auditRecord) TableName() string { return "audit_events" }
