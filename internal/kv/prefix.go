// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package kv

import "context"

// Prefixed namespaces every key of an underlying Store.
type Prefixed struct {
	store  Store
	prefix string
}

// WithPrefix wraps s so every key is stored as prefix+key.
// An empty prefix returns s unchanged.
func WithPrefix(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	return &Prefixed{store: s, prefix: prefix}
}

// Get implements Store.
func (p *Prefixed) Get(ctx context.Context, key string) (string, error) {
	return p.store.Get(ctx, p.prefix+key)
}

// Set implements Store.
func (p *Prefixed) Set(ctx context.Context, key, value string) error {
	return p.store.Set(ctx, p.prefix+key, value)
}

// Delete implements Store.
func (p *Prefixed) Delete(ctx context.Context, key string) error {
	return p.store.Delete(ctx, p.prefix+key)
}

// Ping forwards to the wrapped store.
func (p *Prefixed) Ping(ctx context.Context) error {
	return Ping(ctx, p.store)
}

// Close forwards to the wrapped store.
func (p *Prefixed) Close() error {
	return Close(p.store)
}
