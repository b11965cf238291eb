// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package kv

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// WaitReady pings s with exponential backoff until it answers or maxWait elapses.
func WaitReady(ctx context.Context, s Store, maxWait time.Duration) error {
	backoff := retry.WithMaxDuration(maxWait, retry.NewExponential(100*time.Millisecond))
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := Ping(ctx, s); err != nil {
			slog.DebugContext(ctx, "kv store not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("KV_UNAVAILABLE").With("attempts", attempt).With("max_wait", maxWait.String()).Wrap(err)
	}
	return nil
}
