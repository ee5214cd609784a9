package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/application/types"
	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/ports"
	"github.com/Apurer/go-retail-ops/internal/shared/projection"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists tickets in PostgreSQL using GORM.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository wires a PostgreSQL-backed repository. Pass a transaction handle to
// join a unit of work. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// WithClock overrides the time source used for metadata.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	if now != nil {
		r.now = now
	}
	return r
}

type ticketRecord struct {
	ID               string              `gorm:"primaryKey;column:id;size:64"`
	OrderID          string              `gorm:"column:order_id;size:64;index"`
	OrderItemID      string              `gorm:"column:order_item_id;size:64"`
	CustomerID       string              `gorm:"column:customer_id;size:128"`
	Type             string              `gorm:"column:type;type:varchar(16)"`
	Status           string              `gorm:"column:status;type:varchar(16);index"`
	Reason           string              `gorm:"column:reason"`
	RequestedAction  string              `gorm:"column:requested_action"`
	RefundAmount     decimal.NullDecimal `gorm:"column:refund_amount;type:numeric(12,2)"`
	EvidenceRequired bool                `gorm:"column:evidence_required"`
	AssignedTo       string              `gorm:"column:assigned_to;size:128;index"`
	PolicyViolation  string              `gorm:"column:policy_violation"`
	RejectionReason  string              `gorm:"column:rejection_reason"`
	ResolvedAt       *time.Time          `gorm:"column:resolved_at"`
	ResolvedBy       string              `gorm:"column:resolved_by;size:128"`
	RejectedAt       *time.Time          `gorm:"column:rejected_at"`
	RejectedBy       string              `gorm:"column:rejected_by;size:128"`
	ClosedAt         *time.Time          `gorm:"column:closed_at"`
	ClosedBy         string              `gorm:"column:closed_by;size:128"`
	Version          int64               `gorm:"column:version"`
	CreatedAt        time.Time           `gorm:"column:created_at;index"`
	UpdatedAt        time.Time           `gorm:"column:updated_at"`
	Attachments      []attachmentRecord  `gorm:"foreignKey:TicketID;constraint:OnDelete:CASCADE"`
}

func (ticketRecord) TableName() string { return "aftersales_tickets" }

type attachmentRecord struct {
	ID          string    `gorm:"primaryKey;column:id;size:64"`
	TicketID    string    `gorm:"column:ticket_id;size:64;index"`
	FileName    string    `gorm:"column:file_name"`
	URL         string    `gorm:"column:url"`
	ContentType string    `gorm:"column:content_type;size:128"`
	UploadedBy  string    `gorm:"column:uploaded_by;size:128"`
	UploadedAt  time.Time `gorm:"column:uploaded_at"`
}

func (attachmentRecord) TableName() string { return "ticket_attachments" }

func (r *Repository) Create(ctx context.Context, ticket *domain.Ticket) (*types.TicketProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, errors.New("ticket is nil")
	}
	record := toRecord(ticket)
	now := r.now().UTC()
	record.Version = 1
	record.CreatedAt = now
	record.UpdatedAt = now
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ports.ErrVersionConflict
		}
		return nil, err
	}
	return projection.New(ticket, now, now, 1), nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*types.TicketProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record ticketRecord
	err := r.db.WithContext(ctx).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("uploaded_at ASC, id ASC") }).
		First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toProjection(), nil
}

// Update is a compare-and-set on the version column. Attachments are append-only,
// so new ones are inserted and existing rows left alone.
func (r *Repository) Update(ctx context.Context, ticket *domain.Ticket, expectedVersion int64) (*types.TicketProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, errors.New("ticket is nil")
	}
	record := toRecord(ticket)
	now := r.now().UTC()
	result := r.db.WithContext(ctx).
		Model(&ticketRecord{}).
		Where("id = ? AND version = ?", ticket.ID, expectedVersion).
		Updates(map[string]any{
			"status":           record.Status,
			"refund_amount":    record.RefundAmount,
			"assigned_to":      record.AssignedTo,
			"policy_violation": record.PolicyViolation,
			"rejection_reason": record.RejectionReason,
			"resolved_at":      record.ResolvedAt,
			"resolved_by":      record.ResolvedBy,
			"rejected_at":      record.RejectedAt,
			"rejected_by":      record.RejectedBy,
			"closed_at":        record.ClosedAt,
			"closed_by":        record.ClosedBy,
			"version":          expectedVersion + 1,
			"updated_at":       now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&ticketRecord{}).Where("id = ?", ticket.ID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ports.ErrNotFound
		}
		return nil, ports.ErrVersionConflict
	}
	if len(record.Attachments) > 0 {
		if err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
			Create(&record.Attachments).Error; err != nil {
			return nil, err
		}
	}
	var createdAt time.Time
	if err := r.db.WithContext(ctx).Model(&ticketRecord{}).Select("created_at").Where("id = ?", ticket.ID).Scan(&createdAt).Error; err != nil {
		return nil, err
	}
	return projection.New(ticket, createdAt, now, expectedVersion+1), nil
}

func (r *Repository) List(ctx context.Context, filter ports.TicketFilter) ([]*types.TicketProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	query := r.db.WithContext(ctx).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("uploaded_at ASC, id ASC") }).
		Order("id ASC")
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.AssignedTo != "" {
		query = query.Where("assigned_to = ?", filter.AssignedTo)
	}
	if filter.OrderID != "" {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	var records []ticketRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	list := make([]*types.TicketProjection, 0, len(records))
	for i := range records {
		list = append(list, records[i].toProjection())
	}
	return list, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres ticket repository not configured")
	}
	return nil
}

func toRecord(ticket *domain.Ticket) ticketRecord {
	record := ticketRecord{
		ID:               ticket.ID,
		OrderID:          ticket.OrderID,
		OrderItemID:      ticket.OrderItemID,
		CustomerID:       ticket.CustomerID,
		Type:             string(ticket.Type),
		Status:           string(ticket.Status),
		Reason:           ticket.Reason,
		RequestedAction:  ticket.RequestedAction,
		EvidenceRequired: ticket.EvidenceRequired,
		AssignedTo:       ticket.AssignedTo,
		PolicyViolation:  ticket.PolicyViolation,
		RejectionReason:  ticket.RejectionReason,
		ResolvedAt:       ticket.ResolvedAt,
		ResolvedBy:       ticket.ResolvedBy,
		RejectedAt:       ticket.RejectedAt,
		RejectedBy:       ticket.RejectedBy,
		ClosedAt:         ticket.ClosedAt,
		ClosedBy:         ticket.ClosedBy,
	}
	if ticket.RefundAmount != nil {
		record.RefundAmount = decimal.NewNullDecimal(*ticket.RefundAmount)
	}
	for _, a := range ticket.Attachments {
		record.Attachments = append(record.Attachments, attachmentRecord{
			ID:          a.ID,
			TicketID:    ticket.ID,
			FileName:    a.FileName,
			URL:         a.URL,
			ContentType: a.ContentType,
			UploadedBy:  a.UploadedBy,
			UploadedAt:  a.UploadedAt,
		})
	}
	return record
}

func (r ticketRecord) toProjection() *types.TicketProjection {
	ticket := &domain.Ticket{
		ID:               r.ID,
		OrderID:          r.OrderID,
		OrderItemID:      r.OrderItemID,
		CustomerID:       r.CustomerID,
		Type:             domain.TicketType(r.Type),
		Status:           domain.Status(r.Status),
		Reason:           r.Reason,
		RequestedAction:  r.RequestedAction,
		EvidenceRequired: r.EvidenceRequired,
		AssignedTo:       r.AssignedTo,
		PolicyViolation:  r.PolicyViolation,
		RejectionReason:  r.RejectionReason,
		CreatedAt:        r.CreatedAt,
		ResolvedAt:       r.ResolvedAt,
		ResolvedBy:       r.ResolvedBy,
		RejectedAt:       r.RejectedAt,
		RejectedBy:       r.RejectedBy,
		ClosedAt:         r.ClosedAt,
		ClosedBy:         r.ClosedBy,
	}
	if r.RefundAmount.Valid {
		amount := r.RefundAmount.Decimal
		ticket.RefundAmount = &amount
	}
	for _, a := range r.Attachments {
		ticket.Attachments = append(ticket.Attachments, domain.Attachment{
			ID:          a.ID,
			FileName:    a.FileName,
			URL:         a.URL,
			ContentType: a.ContentType,
			UploadedBy:  a.UploadedBy,
			UploadedAt:  a.UploadedAt,
		})
	}
	return projection.New(ticket, r.CreatedAt, r.UpdatedAt, r.Version)
}
