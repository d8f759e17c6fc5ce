// Package tablecache keeps decoded tables in a provider.Provider so repeated
// reads of an unchanged file skip parsing.
//
// A cached snapshot is served only when all of these hold:
//   - the stored frame is well-formed,
//   - its generation equals the table's current generation,
//   - the file's size and modification time equal the ones recorded when it was read.
//
// Anything else deletes the entry and reads through. Writes through the cache
// bump the generation, so every process sharing a genstore.Redis drops its
// snapshot even when the file's stat happens to be unchanged.
//
// Only complete reads are cached. A read that returned an error (including a
// truncated one) is never stored.
package tablecache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/tablecodec"
	"github.com/unkn0wn-root/tablecodec/codec"
	"github.com/unkn0wn-root/tablecodec/genstore"
	"github.com/unkn0wn-root/tablecodec/provider"
)

// SetCostFunc computes the cost passed to Provider.Set for one snapshot.
type SetCostFunc func(key string, raw []byte) int64

type Options[T any] struct {
	Namespace string              // required; isolates keys
	Table     tablecodec.Table[T] // required; reads on miss, all writes
	Provider  provider.Provider   // required

	// Codec is required. It must round-trip every field of T: JSON, Msgpack
	// and CBOR drop unexported fields, so a hit would return zero values
	// where a miss returns parsed ones.
	Codec codec.Codec[[]T]

	GenStore genstore.Store    // nil => genstore.Local with cleanup
	Logger   tablecodec.Logger // nil => NopLogger
	TTL      time.Duration     // 0 => 10m
	Disabled bool              // true => every call goes to Table

	ComputeSetCost  SetCostFunc   // nil => encoded size in bytes
	CleanupInterval time.Duration // default Local gen sweep; 0 => 1h
	GenRetention    time.Duration // default Local gen retention; 0 => 30d
}

// Cache is a tablecodec.Table backed by a snapshot store.
type Cache[T any] interface {
	tablecodec.Table[T]

	// Invalidate drops the snapshot for path and bumps its generation.
	// Use it when the file is changed by something other than this Cache.
	Invalidate(ctx context.Context, path string) error
	Enabled() bool
	Close(ctx context.Context) error
}

func New[T any](opts Options[T]) (Cache[T], error) {
	return newCache[T](opts)
}
