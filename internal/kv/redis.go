// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package kv

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// RedisOptions configures a Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore is a Store backed by Redis string keys.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore dials Redis lazily; call Ping to check the connection.
func NewRedisStore(opts RedisOptions) *RedisStore {
	return NewRedisStoreFromClient(redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}))
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", oops.Code("KV_QUERY_FAILED").With("backend", "redis").With("operation", "get").Wrap(err)
	}
	return v, nil
}

// Set implements Store. Keys never expire at the Redis level.
func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return oops.Code("KV_QUERY_FAILED").With("backend", "redis").With("operation", "set").Wrap(err)
	}
	return nil
}

// Delete implements Store.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return oops.Code("KV_QUERY_FAILED").With("backend", "redis").With("operation", "delete").Wrap(err)
	}
	return nil
}

// Ping checks the connection.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return oops.Code("KV_UNAVAILABLE").With("backend", "redis").Wrap(err)
	}
	return nil
}

// Close closes the client.
func (r *RedisStore) Close() error {
	//nolint:wrapcheck // close errors are logged by the caller as-is
	return r.client.Close()
}
