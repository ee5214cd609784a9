// Package txn runs a function as one atomic unit over a scope of repositories.
package txn

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Runner executes fn atomically. The scope handed to fn is bound to the unit:
// everything written through it commits or rolls back together.
type Runner[S any] interface {
	Do(ctx context.Context, fn func(ctx context.Context, scope S) error) error
}

// Snapshotter is implemented by in-memory stores that can roll back to a prior state.
type Snapshotter interface {
	// Snapshot captures the current state and returns a function restoring it.
	Snapshot() (restore func())
}

// MemoryRunner serializes units on a mutex shared by every runner touching the same
// stores, and restores store snapshots when fn fails or panics.
type MemoryRunner[S any] struct {
	mu     *sync.Mutex
	scope  S
	stores []Snapshotter
}

// NewMemoryRunner builds a runner over scope. Runners that share stores must share mu.
func NewMemoryRunner[S any](mu *sync.Mutex, scope S, stores ...Snapshotter) *MemoryRunner[S] {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &MemoryRunner[S]{mu: mu, scope: scope, stores: stores}
}

// Do runs fn while holding the shared lock.
func (r *MemoryRunner[S]) Do(ctx context.Context, fn func(ctx context.Context, scope S) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	restores := make([]func(), 0, len(r.stores))
	for _, store := range r.stores {
		restores = append(restores, store.Snapshot())
	}
	rollback := func() {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
	}
	defer func() {
		if rec := recover(); rec != nil {
			rollback()
			panic(rec)
		}
	}()

	if err := fn(context.WithoutCancel(ctx), r.scope); err != nil {
		rollback()
		return err
	}
	return nil
}

// GormRunner wraps fn in a database transaction and binds the scope to it.
type GormRunner[S any] struct {
	db   *gorm.DB
	bind func(tx *gorm.DB) S
}

// NewGormRunner builds a runner that calls bind with the transaction handle for every unit.
func NewGormRunner[S any](db *gorm.DB, bind func(tx *gorm.DB) S) *GormRunner[S] {
	return &GormRunner[S]{db: db, bind: bind}
}

// Do begins a transaction, runs fn and commits when fn returns nil.
// Cancellation is honoured before the transaction starts; once it has begun the unit
// runs to commit or rollback so a dropped client never leaves it half applied.
func (r *GormRunner[S]) Do(ctx context.Context, fn func(ctx context.Context, scope S) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, r.bind(tx))
	})
}
