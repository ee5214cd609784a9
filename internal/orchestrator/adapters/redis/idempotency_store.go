// Package redis keeps idempotency keys in Redis, letting key expiry do the purging.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

const keyPrefix = "idempotency:"

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

type IdempotencyStore struct {
	client goredis.UniversalClient
	now    func() time.Time
}

func NewIdempotencyStore(client goredis.UniversalClient) *IdempotencyStore {
	return &IdempotencyStore{client: client, now: time.Now}
}

func (s *IdempotencyStore) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (*ports.IdempotencyRecord, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}
	var record ports.IdempotencyRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode idempotency key: %w", err)
	}
	return &record, nil
}

// Claim reserves the key with SETNX. The TTL runs until the record's ExpiresAt.
func (s *IdempotencyStore) Claim(ctx context.Context, record ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	now := s.now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	ttl := record.ExpiresAt.Sub(now)
	if record.ExpiresAt.IsZero() {
		ttl = 0
	} else if ttl <= 0 {
		return nil, fmt.Errorf("idempotency record for %q is already expired", record.Key)
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode idempotency key: %w", err)
	}
	claimed, err := s.client.SetNX(ctx, keyPrefix+record.Key, payload, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("claim idempotency key: %w", err)
	}
	if claimed {
		return nil, nil
	}

	existing, err := s.Get(ctx, record.Key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		// expired between SETNX and GET
		return s.Claim(ctx, record)
	}
	if existing.Fingerprint != record.Fingerprint {
		return existing, ports.ErrIdempotencyConflict
	}
	return existing, nil
}

// Complete rewrites the claimed record with its aggregate id, keeping the TTL.
func (s *IdempotencyStore) Complete(ctx context.Context, key, aggregateID string) error {
	redisKey := keyPrefix + key
	return s.client.Watch(ctx, func(tx *goredis.Tx) error {
		record, err := s.read(ctx, tx, redisKey)
		if err != nil {
			return err
		}
		if record == nil {
			return fmt.Errorf("idempotency key %q is not claimed", key)
		}
		record.AggregateID = aggregateID
		payload, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode idempotency key: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.SetArgs(ctx, redisKey, payload, goredis.SetArgs{Mode: "XX", KeepTTL: true})
			return nil
		})
		return err
	}, redisKey)
}

// Release deletes the key while its command is still pending.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	redisKey := keyPrefix + key
	return s.client.Watch(ctx, func(tx *goredis.Tx) error {
		record, err := s.read(ctx, tx, redisKey)
		if err != nil || record == nil || !record.Pending() {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, redisKey)
			return nil
		})
		return err
	}, redisKey)
}

func (s *IdempotencyStore) read(ctx context.Context, tx *goredis.Tx, redisKey string) (*ports.IdempotencyRecord, error) {
	raw, err := tx.Get(ctx, redisKey).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}
	var record ports.IdempotencyRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode idempotency key: %w", err)
	}
	return &record, nil
}

// Purge is a no-op; Redis drops keys when their TTL elapses.
func (s *IdempotencyStore) Purge(context.Context, time.Time) (int64, error) {
	return 0, nil
}
