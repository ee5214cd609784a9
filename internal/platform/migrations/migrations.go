// Package migrations owns the relational schema. Each record type mirrors the columns
// of the Postgres adapter that reads and writes the table.
package migrations

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Run applies the schema for every bounded context.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&stockEntryRecord{},
		&stockMovementRecord{},
		&inboundRecord{},
		&inboundItemRecord{},
		&orderRecord{},
		&orderItemRecord{},
		&userRecord{},
		&ticketRecord{},
		&ticketAttachmentRecord{},
		&idempotencyRecord{},
		&auditRecord{},
	)
}

// Tables lists the tables Run creates, in creation order.
func Tables() []string {
	return []string{
		"stock_entries",
		"stock_movements",
		"inbound_records",
		"inbound_record_items",
		"orders",
		"order_items",
		"users",
		"aftersales_tickets",
		"ticket_attachments",
		"idempotency_keys",
		"audit_events",
	}
}

type stockEntryRecord struct {
	ProductID string    `gorm:"primaryKey;column:product_id;size:128"`
	Quantity  int64     `gorm:"column:quantity;check:quantity >= 0"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (stockEntryRecord) TableName() string { return "stock_entries" }

// (correlation_id, product_id, line) is unique so a replayed delta cannot be written twice.
type stockMovementRecord struct {
	ID                string    `gorm:"primaryKey;column:id;size:64"`
	ProductID         string    `gorm:"column:product_id;size:128;uniqueIndex:idx_stock_movements_key,priority:2"`
	Delta             int64     `gorm:"column:delta"`
	Reason            string    `gorm:"column:reason;type:varchar(32)"`
	CorrelationID     string    `gorm:"column:correlation_id;size:255;uniqueIndex:idx_stock_movements_key,priority:1"`
	Line              int       `gorm:"column:line;uniqueIndex:idx_stock_movements_key,priority:3"`
	ResultingQuantity int64     `gorm:"column:resulting_quantity"`
	CreatedAt         time.Time `gorm:"column:created_at;index"`
}

func (stockMovementRecord) TableName() string { return "stock_movements" }

type inboundRecord struct {
	ID              string              `gorm:"primaryKey;column:id;size:64"`
	SourceType      string              `gorm:"column:source_type;type:varchar(32)"`
	SourceReference string              `gorm:"column:source_reference"`
	Status          string              `gorm:"column:status;type:varchar(32);index"`
	TotalItems      int64               `gorm:"column:total_items"`
	Notes           string              `gorm:"column:notes"`
	CreatedBy       string              `gorm:"column:created_by;size:128"`
	ApprovedAt      *time.Time          `gorm:"column:approved_at"`
	ApprovedBy      string              `gorm:"column:approved_by;size:128"`
	RejectedAt      *time.Time          `gorm:"column:rejected_at"`
	RejectedBy      string              `gorm:"column:rejected_by;size:128"`
	RejectionReason string              `gorm:"column:rejection_reason"`
	Version         int64               `gorm:"column:version"`
	CreatedAt       time.Time           `gorm:"column:created_at;index"`
	UpdatedAt       time.Time           `gorm:"column:updated_at"`
	Items           []inboundItemRecord `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE"`
}

func (inboundRecord) TableName() string { return "inbound_records" }

type inboundItemRecord struct {
	RecordID  string `gorm:"primaryKey;column:record_id;size:64"`
	Line      int    `gorm:"primaryKey;column:line"`
	ProductID string `gorm:"column:product_id;size:128;index"`
	Quantity  int64  `gorm:"column:quantity"`
}

func (inboundItemRecord) TableName() string { return "inbound_record_items" }

type orderRecord struct {
	ID         string            `gorm:"primaryKey;column:id;size:64"`
	CustomerID string            `gorm:"column:customer_id;size:128;index"`
	Status     string            `gorm:"column:status;type:varchar(32)"`
	PlacedAt   time.Time         `gorm:"column:placed_at"`
	CreatedAt  time.Time         `gorm:"column:created_at;index"`
	UpdatedAt  time.Time         `gorm:"column:updated_at"`
	Items      []orderItemRecord `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (orderRecord) TableName() string { return "orders" }

type orderItemRecord struct {
	OrderID   string          `gorm:"primaryKey;column:order_id;size:64"`
	ID        string          `gorm:"primaryKey;column:id;size:64"`
	Position  int             `gorm:"column:position"`
	ProductID string          `gorm:"column:product_id;size:128"`
	Quantity  int64           `gorm:"column:quantity"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2)"`
}

func (orderItemRecord) TableName() string { return "order_items" }

type userRecord struct {
	ID          string         `gorm:"primaryKey;column:id;size:128"`
	DisplayName string         `gorm:"column:display_name"`
	Email       string         `gorm:"column:email"`
	Roles       pq.StringArray `gorm:"column:roles;type:text[]"`
	Active      bool           `gorm:"column:active"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at"`
}

func (userRecord) TableName() string { return "users" }

type ticketRecord struct {
	ID               string                   `gorm:"primaryKey;column:id;size:64"`
	OrderID          string                   `gorm:"column:order_id;size:64;index"`
	OrderItemID      string                   `gorm:"column:order_item_id;size:64"`
	CustomerID       string                   `gorm:"column:customer_id;size:128"`
	Type             string                   `gorm:"column:type;type:varchar(16)"`
	Status           string                   `gorm:"column:status;type:varchar(16);index"`
	Reason           string                   `gorm:"column:reason"`
	RequestedAction  string                   `gorm:"column:requested_action"`
	RefundAmount     decimal.NullDecimal      `gorm:"column:refund_amount;type:numeric(12,2)"`
	EvidenceRequired bool                     `gorm:"column:evidence_required"`
	AssignedTo       string                   `gorm:"column:assigned_to;size:128;index"`
	PolicyViolation  string                   `gorm:"column:policy_violation"`
	RejectionReason  string                   `gorm:"column:rejection_reason"`
	ResolvedAt       *time.Time               `gorm:"column:resolved_at"`
	ResolvedBy       string                   `gorm:"column:resolved_by;size:128"`
	RejectedAt       *time.Time               `gorm:"column:rejected_at"`
	RejectedBy       string                   `gorm:"column:rejected_by;size:128"`
	ClosedAt         *time.Time               `gorm:"column:closed_at"`
	ClosedBy         string                   `gorm:"column:closed_by;size:128"`
	Version          int64                    `gorm:"column:version"`
	CreatedAt        time.Time                `gorm:"column:created_at;index"`
	UpdatedAt        time.Time                `gorm:"column:updated_at"`
	Attachments      []ticketAttachmentRecord `gorm:"foreignKey:TicketID;constraint:OnDelete:CASCADE"`
}

func (ticketRecord) TableName() string { return "aftersales_tickets" }

type ticketAttachmentRecord struct {
	ID          string    `gorm:"primaryKey;column:id;size:64"`
	TicketID    string    `gorm:"column:ticket_id;size:64;index"`
	FileName    string    `gorm:"column:file_name"`
	URL         string    `gorm:"column:url"`
	ContentType string    `gorm:"column:content_type;size:128"`
	UploadedBy  string    `gorm:"column:uploaded_by;size:128"`
	UploadedAt  time.Time `gorm:"column:uploaded_at"`
}

func (ticketAttachmentRecord) TableName() string { return "ticket_attachments" }

type idempotencyRecord struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	Fingerprint string    `gorm:"column:fingerprint;size:128"`
	Action      string    `gorm:"column:action;size:64"`
	AggregateID string    `gorm:"column:aggregate_id;size:64"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	ExpiresAt   time.Time `gorm:"column:expires_at;index"`
}

func (idempotencyRecord) TableName() string { return "idempotency_keys" }

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
