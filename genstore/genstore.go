// Package genstore keeps per-table generation counters. tablecache bumps a
// table's generation on every write through the cache and only serves a
// snapshot whose stored generation equals the current one.
package genstore

import (
	"context"
	"time"
)

// Store abstracts where generations live.
// Use Local (default) for in-process gens, or Redis to share them across processes.
type Store interface {
	// Current returns the generation for a table key; missing => 0.
	Current(ctx context.Context, key string) (uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, key string) (uint64, error)
	// Cleanup prunes old metadata if applicable.
	Cleanup(retention time.Duration)
	// Close releases resources.
	Close(context.Context) error
}
