package txn

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterStore struct {
	value int
}

func (s *counterStore) Snapshot() func() {
	saved := s.value
	return func() { s.value = saved }
}

func TestMemoryRunner_CommitsOnSuccess(t *testing.T) {
	store := &counterStore{}
	runner := NewMemoryRunner(&sync.Mutex{}, store, store)

	err := runner.Do(context.Background(), func(_ context.Context, s *counterStore) error {
		s.value = 5
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 5, store.value)
}

func TestMemoryRunner_RestoresOnError(t *testing.T) {
	store := &counterStore{value: 1}
	runner := NewMemoryRunner(&sync.Mutex{}, store, store)
	boom := errors.New("boom")

	err := runner.Do(context.Background(), func(_ context.Context, s *counterStore) error {
		s.value = 99
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, store.value)
}

func TestMemoryRunner_RestoresOnPanic(t *testing.T) {
	store := &counterStore{value: 3}
	runner := NewMemoryRunner(&sync.Mutex{}, store, store)

	assert.Panics(t, func() {
		_ = runner.Do(context.Background(), func(_ context.Context, s *counterStore) error {
			s.value = 7
			panic("bad state")
		})
	})
	assert.Equal(t, 3, store.value)
}

func TestMemoryRunner_HonoursCancellationBeforeStart(t *testing.T) {
	store := &counterStore{}
	runner := NewMemoryRunner(nil, store, store)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := runner.Do(ctx, func(context.Context, *counterStore) error {
		called = true
		return nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestMemoryRunner_IgnoresCancellationOnceStarted(t *testing.T) {
	store := &counterStore{}
	runner := NewMemoryRunner(nil, store, store)
	ctx, cancel := context.WithCancel(context.Background())

	err := runner.Do(ctx, func(inner context.Context, s *counterStore) error {
		cancel()
		if inner.Err() != nil {
			return inner.Err()
		}
		s.value = 1
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, store.value)
}

func TestMemoryRunner_SerializesUnits(t *testing.T) {
	store := &counterStore{}
	runner := NewMemoryRunner(&sync.Mutex{}, store, store)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = runner.Do(context.Background(), func(_ context.Context, s *counterStore) error {
				s.value++
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, store.value)
}
