// Package redis provides a core.SnapshotStore backed by Redis. Suited for
// deployments where several processes share snapshot state or where
// snapshots should expire on their own via TTL.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/agentpulse/store"
)

// Options configures the store.
type Options struct {
	// TTL expires snapshots after the given duration; zero keeps them forever.
	TTL time.Duration
}

// Store is a SnapshotStore writing snapshots as plain Redis strings.
type Store struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// New wraps an existing Redis client. The caller owns the client lifecycle.
func New(client redis.UniversalClient, optFns ...func(o *Options)) *Store {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{client: client, ttl: opts.TTL}
}

// Open connects to the Redis instance described by url
// (e.g. "redis://localhost:6379/0") and returns a store owning the client.
func Open(url string, optFns ...func(o *Options)) (*Store, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return New(redis.NewClient(redisOpts), optFns...), nil
}

// Get returns the snapshot stored under key or store.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %q: %w", key, err)
	}
	return data, nil
}

// Set stores the snapshot under key, applying the configured TTL.
func (s *Store) Set(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set snapshot %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error { return s.client.Close() }
