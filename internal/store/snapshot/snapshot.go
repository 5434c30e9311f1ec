// Package snapshot caches the latest collected metrics in Redis so every API
// replica serves the same sample between collection ticks.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "omnisec:snapshot:"

// Store reads and writes JSON snapshots under a fixed key prefix.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Store. Snapshots expire after ttl; zero keeps them forever.
func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Put stores v as the latest snapshot called name.
func (s *Store) Put(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", name, err)
	}
	if err := s.client.Set(ctx, keyPrefix+name, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set snapshot %s: %w", name, err)
	}
	return nil
}

// Get decodes the snapshot called name into dst. It reports false when no
// snapshot exists or it has expired.
func (s *Store) Get(ctx context.Context, name string, dst any) (bool, error) {
	data, err := s.client.Get(ctx, keyPrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get snapshot %s: %w", name, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode snapshot %s: %w", name, err)
	}
	return true, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
