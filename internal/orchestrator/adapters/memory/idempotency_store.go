package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore provides an in-memory implementation for development and tests.
type IdempotencyStore struct {
	mu      sync.RWMutex
	records map[string]ports.IdempotencyRecord
	now     func() time.Time
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		records: map[string]ports.IdempotencyRecord{},
		now:     time.Now,
	}
}

// WithClock overrides the time source for deterministic testing.
func (s *IdempotencyStore) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns the stored record for key, or nil when absent or expired.
func (s *IdempotencyStore) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[key]
	if !ok || s.expired(record) {
		return nil, nil
	}
	copy := record
	return &copy, nil
}

// Claim reserves the key under the store lock, or returns the live record already holding it.
func (s *IdempotencyStore) Claim(_ context.Context, record ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[record.Key]; ok && !s.expired(existing) {
		copy := existing
		if existing.Fingerprint != record.Fingerprint {
			return &copy, ports.ErrIdempotencyConflict
		}
		return &copy, nil
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	s.records[record.Key] = record
	return nil, nil
}

// Complete records the aggregate produced under key.
func (s *IdempotencyStore) Complete(_ context.Context, key, aggregateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[key]
	if !ok {
		return fmt.Errorf("idempotency key %q is not claimed", key)
	}
	record.AggregateID = aggregateID
	s.records[key] = record
	return nil
}

// Release forgets a pending claim. Completed keys are kept.
func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[key]; ok && record.Pending() {
		delete(s.records, key)
	}
	return nil
}

// Purge drops records that expired before cutoff.
func (s *IdempotencyStore) Purge(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for key, record := range s.records {
		if !record.ExpiresAt.IsZero() && record.ExpiresAt.Before(cutoff) {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}

func (s *IdempotencyStore) expired(record ports.IdempotencyRecord) bool {
	return !record.ExpiresAt.IsZero() && !s.now().Before(record.ExpiresAt)
}
