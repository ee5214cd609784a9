package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/go-retail-ops/internal/domains/orders/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/orders/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists orders in PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// orderRecord maps the order aggregate to a relational table.
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

// Save upserts the order and replaces its lines.
func (r *Repository) Save(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	record := toRecord(order)
	items := record.Items
	record.Items = nil
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"customer_id": record.CustomerID,
				"status":      record.Status,
				"placed_at":   record.PlacedAt,
				"updated_at":  gorm.Expr("NOW()"),
			}),
		}).Create(&record).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", record.ID).Delete(&orderItemRecord{}).Error; err != nil {
			return err
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, order.ID)
}

// GetByID fetches an order and its lines.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres order repository not configured")
	}
	return nil
}

func toRecord(order *domain.Order) orderRecord {
	rec := orderRecord{
		ID:         order.ID,
		CustomerID: order.CustomerID,
		Status:     string(order.Status),
		PlacedAt:   order.PlacedAt,
	}
	for i, item := range order.Items {
		rec.Items = append(rec.Items, orderItemRecord{
			OrderID:   order.ID,
			ID:        item.ID,
			Position:  i,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return rec
}

func (r orderRecord) toDomain() *domain.Order {
	order := &domain.Order{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		Status:     domain.Status(r.Status),
		PlacedAt:   r.PlacedAt,
	}
	for _, item := range r.Items {
		order.Items = append(order.Items, domain.Item{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return order
}
