package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/go-retail-ops/internal/domains/stock/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/stock/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists stock entries and ledger lines in PostgreSQL using GORM.
// Pass a transaction handle to make its writes part of a unit of work.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type entryRecord struct {
	ProductID string    `gorm:"primaryKey;column:product_id;size:128"`
	Quantity  int64     `gorm:"column:quantity;check:quantity >= 0"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (entryRecord) TableName() string { return "stock_entries" }

type movementRecord struct {
	ID                string    `gorm:"primaryKey;column:id;size:64"`
	ProductID         string    `gorm:"column:product_id;size:128;uniqueIndex:idx_stock_movements_key,priority:2"`
	Delta             int64     `gorm:"column:delta"`
	Reason            string    `gorm:"column:reason;type:varchar(32)"`
	CorrelationID     string    `gorm:"column:correlation_id;size:255;uniqueIndex:idx_stock_movements_key,priority:1"`
	Line              int       `gorm:"column:line;uniqueIndex:idx_stock_movements_key,priority:3"`
	ResultingQuantity int64     `gorm:"column:resulting_quantity"`
	CreatedAt         time.Time `gorm:"column:created_at;index"`
}

func (movementRecord) TableName() string { return "stock_movements" }

func (r *Repository) Create(ctx context.Context, entry *domain.Entry) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	record := entryRecord{
		ProductID: entry.ProductID,
		Quantity:  entry.Quantity,
		CreatedAt: entry.UpdatedAt,
		UpdatedAt: entry.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ports.ErrDuplicateProduct
		}
		return err
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, productID string) (*domain.Entry, error) {
	return r.load(ctx, productID, false)
}

// Lock takes a row lock on the entry (SELECT ... FOR UPDATE) until the transaction ends.
func (r *Repository) Lock(ctx context.Context, productID string) (*domain.Entry, error) {
	return r.load(ctx, productID, true)
}

func (r *Repository) load(ctx context.Context, productID string, forUpdate bool) (*domain.Entry, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	db := r.db.WithContext(ctx)
	if forUpdate {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var record entryRecord
	if err := db.First(&record, "product_id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return &domain.Entry{ProductID: record.ProductID, Quantity: record.Quantity, UpdatedAt: record.UpdatedAt}, nil
}

func (r *Repository) Update(ctx context.Context, entry *domain.Entry) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&entryRecord{}).
		Where("product_id = ?", entry.ProductID).
		Updates(map[string]any{
			"quantity":   entry.Quantity,
			"updated_at": entry.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *Repository) FindMovement(ctx context.Context, key domain.MovementKey) (*domain.Movement, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record movementRecord
	err := r.db.WithContext(ctx).
		Where("correlation_id = ? AND product_id = ? AND line = ?", key.CorrelationID, key.ProductID, key.Line).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	movement := record.toDomain()
	return &movement, nil
}

func (r *Repository) AppendMovement(ctx context.Context, movement domain.Movement) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	record := movementRecord{
		ID:                movement.ID,
		ProductID:         movement.ProductID,
		Delta:             movement.Delta,
		Reason:            string(movement.Reason),
		CorrelationID:     movement.CorrelationID,
		Line:              movement.Line,
		ResultingQuantity: movement.ResultingQuantity,
		CreatedAt:         movement.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ports.ErrDuplicateMovement
		}
		return err
	}
	return nil
}

func (r *Repository) MovementsByCorrelation(ctx context.Context, correlationID string) ([]domain.Movement, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []movementRecord
	if err := r.db.WithContext(ctx).
		Where("correlation_id = ?", correlationID).
		Order("line ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	movements := make([]domain.Movement, 0, len(records))
	for i := range records {
		movements = append(movements, records[i].toDomain())
	}
	return movements, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres stock repository not configured")
	}
	return nil
}

func (r movementRecord) toDomain() domain.Movement {
	return domain.Movement{
		ID:                r.ID,
		ProductID:         r.ProductID,
		Delta:             r.Delta,
		Reason:            domain.Reason(r.Reason),
		CorrelationID:     r.CorrelationID,
		Line:              r.Line,
		ResultingQuantity: r.ResultingQuantity,
		CreatedAt:         r.CreatedAt,
	}
}
