package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Apurer/go-retail-ops/internal/domains/inbound/application/types"
	"github.com/Apurer/go-retail-ops/internal/domains/inbound/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/inbound/ports"
	"github.com/Apurer/go-retail-ops/internal/platform/txn"
	"github.com/Apurer/go-retail-ops/internal/shared/projection"
)

var (
	_ ports.Repository = (*Repository)(nil)
	_ txn.Snapshotter  = (*Repository)(nil)
)

type storedRecord struct {
	record    *domain.Record
	createdAt time.Time
	updatedAt time.Time
	version   int64
}

// Repository is an in-memory inbound record store for development and tests.
type Repository struct {
	mu      sync.RWMutex
	records map[string]storedRecord
	now     func() time.Time
}

func NewRepository() *Repository {
	return &Repository{records: map[string]storedRecord{}, now: time.Now}
}

// WithClock overrides the time source for deterministic testing.
func (r *Repository) WithClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

func (r *Repository) Create(_ context.Context, record *domain.Record) (*types.RecordProjection, error) {
	if record == nil {
		return nil, errors.New("record is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.ID]; ok {
		return nil, ports.ErrVersionConflict
	}
	now := r.now().UTC()
	stored := storedRecord{record: record.Clone(), createdAt: now, updatedAt: now, version: 1}
	r.records[record.ID] = stored
	return projection.New(record, stored.createdAt, stored.updatedAt, stored.version), nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*types.RecordProjection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.records[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return stored.project(), nil
}

func (r *Repository) Update(_ context.Context, record *domain.Record, expectedVersion int64) (*types.RecordProjection, error) {
	if record == nil {
		return nil, errors.New("record is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[record.ID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if stored.version != expectedVersion {
		return nil, ports.ErrVersionConflict
	}
	stored.record = record.Clone()
	stored.updatedAt = r.now().UTC()
	stored.version++
	r.records[record.ID] = stored
	return projection.New(record, stored.createdAt, stored.updatedAt, stored.version), nil
}

func (r *Repository) List(_ context.Context, filter ports.RecordFilter) ([]*types.RecordProjection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*types.RecordProjection, 0, len(r.records))
	for _, stored := range r.records {
		if filter.Status != "" && stored.record.Status != filter.Status {
			continue
		}
		list = append(list, stored.project())
	}
	// UUIDv7 ids sort by creation time.
	sort.Slice(list, func(i, j int) bool { return list[i].Entity.ID < list[j].Entity.ID })
	return list, nil
}

// Snapshot captures the record map for rollback.
func (r *Repository) Snapshot() func() {
	r.mu.RLock()
	saved := make(map[string]storedRecord, len(r.records))
	for id, stored := range r.records {
		saved[id] = stored
	}
	r.mu.RUnlock()
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.records = saved
	}
}

func (s storedRecord) project() *types.RecordProjection {
	return projection.New(s.record.Clone(), s.createdAt, s.updatedAt, s.version)
}
