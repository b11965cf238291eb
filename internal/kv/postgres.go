// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package kv

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

// poolIface is the subset of pgxpool.Pool used by PostgresStore.
// pgxmock.PgxPoolIface satisfies it in tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore is a Store backed by the kv_store table.
// The schema is owned by internal/store migrations.
type PostgresStore struct {
	pool poolIface
}

// NewPostgresStore wraps a pool. The pool is closed by Close.
func NewPostgresStore(pool poolIface) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", classify(err, "get")
	}
	return value, nil
}

// Set implements Store.
func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO kv_store (key, value, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = now()`,
		key, value)
	if err != nil {
		return classify(err, "set")
	}
	return nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		return classify(err, "delete")
	}
	return nil
}

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return classify(err, "ping")
	}
	return nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// classify separates connectivity failures from query failures so callers
// and readiness checks can tell an outage from a bad statement.
func classify(err error, operation string) error {
	code := "KV_QUERY_FAILED"
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgerrcode.IsConnectionException(pgErr.Code):
		code = "KV_UNAVAILABLE"
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable:
		code = "KV_SCHEMA_MISSING"
	case pgconn.Timeout(err):
		code = "KV_UNAVAILABLE"
	}
	b := oops.Code(code).With("backend", "postgres").With("operation", operation)
	if pgErr != nil {
		b = b.With("sqlstate", pgErr.Code)
	}
	return b.Wrap(err)
}
