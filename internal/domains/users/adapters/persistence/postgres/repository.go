package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/go-retail-ops/internal/domains/users/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/users/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists directory entries in PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

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

// Save inserts or updates a user keyed by id.
func (r *Repository) Save(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user is nil")
	}
	record := toRecord(user)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "email", "roles", "active", "updated_at"}),
		}).
		Create(&record).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

// GetByID fetches a user by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record userRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres user repository not configured")
	}
	return nil
}

func toRecord(user *domain.User) userRecord {
	roles := make(pq.StringArray, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, string(role))
	}
	return userRecord{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Roles:       roles,
		Active:      user.Active,
	}
}

func (r userRecord) toDomain() *domain.User {
	roles := make([]domain.Role, 0, len(r.Roles))
	for _, role := range r.Roles {
		roles = append(roles, domain.Role(role))
	}
	return &domain.User{
		ID:          r.ID,
		DisplayName: r.DisplayName,
		Email:       r.Email,
		Roles:       roles,
		Active:      r.Active,
	}
}
