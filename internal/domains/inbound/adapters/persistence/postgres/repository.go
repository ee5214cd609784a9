package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Apurer/go-retail-ops/internal/domains/inbound/application/types"
	"github.com/Apurer/go-retail-ops/internal/domains/inbound/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/inbound/ports"
	"github.com/Apurer/go-retail-ops/internal/shared/projection"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists inbound records in PostgreSQL using GORM.
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

type recordRow struct {
	ID              string     `gorm:"primaryKey;column:id;size:64"`
	SourceType      string     `gorm:"column:source_type;type:varchar(32)"`
	SourceReference string     `gorm:"column:source_reference"`
	Status          string     `gorm:"column:status;type:varchar(32);index"`
	TotalItems      int64      `gorm:"column:total_items"`
	Notes           string     `gorm:"column:notes"`
	CreatedBy       string     `gorm:"column:created_by;size:128"`
	ApprovedAt      *time.Time `gorm:"column:approved_at"`
	ApprovedBy      string     `gorm:"column:approved_by;size:128"`
	RejectedAt      *time.Time `gorm:"column:rejected_at"`
	RejectedBy      string     `gorm:"column:rejected_by;size:128"`
	RejectionReason string     `gorm:"column:rejection_reason"`
	Version         int64      `gorm:"column:version"`
	CreatedAt       time.Time  `gorm:"column:created_at;index"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
	Items           []itemRow  `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE"`
}

func (recordRow) TableName() string { return "inbound_records" }

type itemRow struct {
	RecordID  string `gorm:"primaryKey;column:record_id;size:64"`
	Line      int    `gorm:"primaryKey;column:line"`
	ProductID string `gorm:"column:product_id;size:128;index"`
	Quantity  int64  `gorm:"column:quantity"`
}

func (itemRow) TableName() string { return "inbound_record_items" }

func (r *Repository) Create(ctx context.Context, record *domain.Record) (*types.RecordProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.New("record is nil")
	}
	row := toRow(record)
	now := r.now().UTC()
	row.Version = 1
	row.CreatedAt = now
	row.UpdatedAt = now
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ports.ErrVersionConflict
		}
		return nil, err
	}
	return projection.New(record, row.CreatedAt, row.UpdatedAt, row.Version), nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*types.RecordProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var row recordRow
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line ASC") }).
		First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return row.toProjection(), nil
}

// Update is a compare-and-set on the version column; items are immutable and never rewritten.
func (r *Repository) Update(ctx context.Context, record *domain.Record, expectedVersion int64) (*types.RecordProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.New("record is nil")
	}
	now := r.now().UTC()
	result := r.db.WithContext(ctx).
		Model(&recordRow{}).
		Where("id = ? AND version = ?", record.ID, expectedVersion).
		Updates(map[string]any{
			"status":           string(record.Status),
			"approved_at":      record.ApprovedAt,
			"approved_by":      record.ApprovedBy,
			"rejected_at":      record.RejectedAt,
			"rejected_by":      record.RejectedBy,
			"rejection_reason": record.RejectionReason,
			"version":          expectedVersion + 1,
			"updated_at":       now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&recordRow{}).Where("id = ?", record.ID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ports.ErrNotFound
		}
		return nil, ports.ErrVersionConflict
	}
	var createdAt time.Time
	if err := r.db.WithContext(ctx).Model(&recordRow{}).Select("created_at").Where("id = ?", record.ID).Scan(&createdAt).Error; err != nil {
		return nil, err
	}
	return projection.New(record, createdAt, now, expectedVersion+1), nil
}

func (r *Repository) List(ctx context.Context, filter ports.RecordFilter) ([]*types.RecordProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	query := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line ASC") }).
		Order("id ASC")
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	var rows []recordRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	list := make([]*types.RecordProjection, 0, len(rows))
	for i := range rows {
		list = append(list, rows[i].toProjection())
	}
	return list, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres inbound repository not configured")
	}
	return nil
}

func toRow(record *domain.Record) recordRow {
	row := recordRow{
		ID:              record.ID,
		SourceType:      string(record.SourceType),
		SourceReference: record.SourceReference,
		Status:          string(record.Status),
		TotalItems:      record.TotalItems,
		Notes:           record.Notes,
		CreatedBy:       record.CreatedBy,
		ApprovedAt:      record.ApprovedAt,
		ApprovedBy:      record.ApprovedBy,
		RejectedAt:      record.RejectedAt,
		RejectedBy:      record.RejectedBy,
		RejectionReason: record.RejectionReason,
	}
	for line, item := range record.Items {
		row.Items = append(row.Items, itemRow{RecordID: record.ID, Line: line, ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return row
}

func (row recordRow) toProjection() *types.RecordProjection {
	record := &domain.Record{
		ID:              row.ID,
		SourceType:      domain.SourceType(row.SourceType),
		SourceReference: row.SourceReference,
		Status:          domain.Status(row.Status),
		TotalItems:      row.TotalItems,
		Notes:           row.Notes,
		CreatedAt:       row.CreatedAt,
		CreatedBy:       row.CreatedBy,
		ApprovedAt:      row.ApprovedAt,
		ApprovedBy:      row.ApprovedBy,
		RejectedAt:      row.RejectedAt,
		RejectedBy:      row.RejectedBy,
		RejectionReason: row.RejectionReason,
	}
	for _, item := range row.Items {
		record.Items = append(record.Items, domain.Item{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return projection.New(record, row.CreatedAt, row.UpdatedAt, row.Version)
}
