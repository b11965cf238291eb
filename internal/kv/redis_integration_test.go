// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

//go:build integration

package kv_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tutorcab/tutorcab/internal/kv"
)

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	s := kv.NewRedisStore(kv.RedisOptions{Addr: addr})
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, kv.WaitReady(ctx, s, 10*time.Second))

	t.Run("absent key", func(t *testing.T) {
		_, err := s.Get(ctx, "tutor:none")
		assert.ErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("set get overwrite", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "auth:+79990000002", `{"v":1}`))
		require.NoError(t, s.Set(ctx, "auth:+79990000002", `{"v":2}`))
		v, err := s.Get(ctx, "auth:+79990000002")
		require.NoError(t, err)
		assert.Equal(t, `{"v":2}`, v)
	})

	t.Run("delete idempotent", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "session:y", "{}"))
		require.NoError(t, s.Delete(ctx, "session:y"))
		require.NoError(t, s.Delete(ctx, "session:y"))
		_, err := s.Get(ctx, "session:y")
		assert.ErrorIs(t, err, kv.ErrNotFound)
	})
}
