package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore persists idempotency keys in PostgreSQL.
type IdempotencyStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewIdempotencyStore(db *gorm.DB) *IdempotencyStore {
	return &IdempotencyStore{db: db, now: time.Now}
}

// WithClock overrides the time source used for expiry checks.
func (s *IdempotencyStore) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get loads a live record by key, returning nil when absent or expired.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (*ports.IdempotencyRecord, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var record idempotencyRecord
	err := s.db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, s.now().UTC()).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toPortRecord(&record), nil
}

// Claim inserts a pending row with ON CONFLICT DO NOTHING. An expired row under the
// same key is taken over; a live one is returned, with ErrIdempotencyConflict when its
// fingerprint differs.
func (s *IdempotencyStore) Claim(ctx context.Context, record ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now().UTC()
	}
	dbRecord := toDBRecord(record)
	inserted := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "key"}}, DoNothing: true}).
		Create(&dbRecord)
	if inserted.Error != nil {
		return nil, inserted.Error
	}
	if inserted.RowsAffected == 1 {
		return nil, nil
	}

	replaced := s.db.WithContext(ctx).
		Model(&idempotencyRecord{}).
		Where("key = ? AND expires_at <= ?", record.Key, s.now().UTC()).
		Updates(map[string]any{
			"fingerprint":  dbRecord.Fingerprint,
			"action":       dbRecord.Action,
			"aggregate_id": dbRecord.AggregateID,
			"created_at":   dbRecord.CreatedAt,
			"expires_at":   dbRecord.ExpiresAt,
		})
	if replaced.Error != nil {
		return nil, replaced.Error
	}
	if replaced.RowsAffected == 1 {
		return nil, nil
	}

	existing, err := s.Get(ctx, record.Key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, errors.New("idempotency key vanished during claim")
	}
	if existing.Fingerprint != record.Fingerprint {
		return existing, ports.ErrIdempotencyConflict
	}
	return existing, nil
}

// Complete stores the aggregate id on a claimed key.
func (s *IdempotencyStore) Complete(ctx context.Context, key, aggregateID string) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Model(&idempotencyRecord{}).
		Where("key = ?", key).
		Update("aggregate_id", aggregateID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("idempotency key %q is not claimed", key)
	}
	return nil
}

// Release deletes the key while it is still pending.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Where("key = ? AND aggregate_id = ''", key).
		Delete(&idempotencyRecord{}).Error
}

// Purge deletes keys that expired before cutoff.
func (s *IdempotencyStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := s.ensureDB(); err != nil {
		return 0, err
	}
	res := s.db.WithContext(ctx).Where("expires_at < ?", cutoff.UTC()).Delete(&idempotencyRecord{})
	return res.RowsAffected, res.Error
}

func (s *IdempotencyStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres idempotency store not configured")
	}
	return nil
}

type idempotencyRecord struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	Fingerprint string    `gorm:"column:fingerprint;size:128"`
	Action      string    `gorm:"column:action;size:64"`
	AggregateID string    `gorm:"column:aggregate_id;size:64"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	ExpiresAt   time.Time `gorm:"column:expires_at;index"`
}

func (idempotencyRecord) TableName() string { return "idempotency_keys" }

func toDBRecord(rec ports.IdempotencyRecord) idempotencyRecord {
	return idempotencyRecord{
		Key:         rec.Key,
		Fingerprint: rec.Fingerprint,
		Action:      string(rec.Action),
		AggregateID: rec.AggregateID,
		CreatedAt:   rec.CreatedAt.UTC(),
		ExpiresAt:   rec.ExpiresAt.UTC(),
	}
}

func toPortRecord(rec *idempotencyRecord) *ports.IdempotencyRecord {
	if rec == nil {
		return nil
	}
	return &ports.IdempotencyRecord{
		Key:         rec.Key,
		Fingerprint: rec.Fingerprint,
		Action:      ports.Action(rec.Action),
		AggregateID: rec.AggregateID,
		CreatedAt:   rec.CreatedAt,
		ExpiresAt:   rec.ExpiresAt,
	}
}
