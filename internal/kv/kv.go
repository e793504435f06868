// internal/kv/kv.go

// Package kv is a small key-value abstraction used for single-use state
// nonces and webhook delivery de-duplication. Redis backs it in production;
// the in-memory store serves single-instance deployments and tests.
package kv

import (
	"context"
	"time"
)

// Store defines a minimal key-value interface with TTLs.
type Store interface {
	// Delete removes a key. Returns nil if the key doesn't exist.
	Delete(ctx context.Context, key string) error

	// SetNX sets a value only if the key doesn't exist (atomic).
	// Returns true if the key was set, false if it already existed.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	Close() error
}
