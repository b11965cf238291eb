// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

// Package kv provides the string key-value store that holds all tutorcab state.
//
// Three backends implement Store: an in-memory map for tests and single-node
// development, Redis, and a PostgreSQL table. Values are opaque strings; callers
// serialize records as JSON.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("not found")

// Store is a flat string key-value store.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set creates or overwrites the value for key.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Pinger is implemented by backends that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Closer is implemented by backends that hold connections.
type Closer interface {
	Close() error
}

// Ping checks s if it implements Pinger. Stores without a connection are always reachable.
func Ping(ctx context.Context, s Store) error {
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases s if it implements Closer.
func Close(s Store) error {
	if c, ok := s.(Closer); ok {
		return c.Close()
	}
	return nil
}
