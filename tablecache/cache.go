package tablecache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/unkn0wn-root/tablecodec"
	"github.com/unkn0wn-root/tablecodec/codec"
	"github.com/unkn0wn-root/tablecodec/genstore"
	"github.com/unkn0wn-root/tablecodec/internal/util"
	"github.com/unkn0wn-root/tablecodec/internal/wire"
	"github.com/unkn0wn-root/tablecodec/provider"
)

const (
	defaultTTL          = 10 * time.Minute
	defaultGenRetention = 30 * 24 * time.Hour
	defaultSweep        = time.Hour
)

type cache[T any] struct {
	ns             string
	table          tablecodec.Table[T]
	provider       provider.Provider
	codec          codec.Codec[[]T]
	gen            genstore.Store
	log            tablecodec.Logger
	enabled        bool
	ttl            time.Duration
	computeSetCost SetCostFunc
}

var _ Cache[struct{}] = (*cache[struct{}])(nil)

func newCache[T any](opts Options[T]) (*cache[T], error) {
	if opts.Table == nil {
		return nil, errors.New("tablecache: table is required")
	}
	if opts.Provider == nil {
		return nil, errors.New("tablecache: provider is required")
	}
	if opts.Codec == nil {
		return nil, errors.New("tablecache: codec is required")
	}
	if opts.Namespace == "" {
		return nil, errors.New("tablecache: namespace is required")
	}

	c := &cache[T]{
		ns:       opts.Namespace,
		table:    opts.Table,
		provider: opts.Provider,
		codec:    opts.Codec,
		enabled:  !opts.Disabled,
	}

	// defaults
	c.log = coalesce[tablecodec.Logger](opts.Logger, tablecodec.NopLogger{})
	c.ttl = coalesce[time.Duration](opts.TTL, defaultTTL)
	if opts.ComputeSetCost != nil {
		c.computeSetCost = opts.ComputeSetCost
	} else {
		c.computeSetCost = func(_ string, raw []byte) int64 { return int64(len(raw)) }
	}
	if opts.GenStore != nil {
		c.gen = opts.GenStore
	} else {
		c.gen = genstore.NewLocal(
			coalesce[time.Duration](opts.CleanupInterval, defaultSweep),
			coalesce[time.Duration](opts.GenRetention, defaultGenRetention),
		)
	}
	return c, nil
}

func (c *cache[T]) Enabled() bool { return c.enabled }

func (c *cache[T]) Close(ctx context.Context) error {
	// gen store first (best effort)
	_ = c.gen.Close(ctx)
	return c.provider.Close(ctx)
}

func (c *cache[T]) Read(ctx context.Context, path string) ([]T, error) {
	if !c.enabled {
		return c.table.Read(ctx, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return c.table.Read(ctx, path)
	}
	fi, err := os.Stat(abs)
	if err != nil || !fi.Mode().IsRegular() {
		// missing files and directories fail inside the table, with its errors
		return c.table.Read(ctx, path)
	}

	k := c.key(abs)
	if recs, ok := c.lookup(ctx, k, fi); ok {
		return recs, nil
	}

	obs, genOK := c.currentGen(ctx, k)
	recs, err := c.table.Read(ctx, path)
	if err != nil {
		return recs, err
	}
	if genOK {
		c.store(ctx, k, recs, obs, fi)
	}
	return recs, nil
}

// Write always invalidates, even on failure: a partial file may exist.
func (c *cache[T]) Write(ctx context.Context, path string, records []T) error {
	if !c.enabled {
		return c.table.Write(ctx, path, records)
	}
	err := c.table.Write(ctx, path, records)
	if ierr := c.Invalidate(ctx, path); ierr != nil {
		c.log.Warn("invalidate after write failed", tablecodec.Fields{"path": path, "err": ierr})
	}
	return err
}

func (c *cache[T]) Invalidate(ctx context.Context, path string) error {
	if !c.enabled {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("tablecache: resolve %s: %w", path, err)
	}
	k := c.key(abs)
	newGen, err := c.gen.Bump(ctx, k)
	if err != nil {
		c.log.Error("gen bump error", tablecodec.Fields{"key": k, "err": err})
		_ = c.provider.Del(ctx, k)
		return err
	}
	if err := c.provider.Del(ctx, k); err != nil {
		return err
	}
	c.log.Debug("invalidated table (bumped gen + cleared snapshot)", tablecodec.Fields{"path": abs, "newGen": newGen})
	return nil
}

// lookup returns a valid snapshot, deleting any entry that fails validation.
func (c *cache[T]) lookup(ctx context.Context, k string, fi os.FileInfo) ([]T, bool) {
	raw, ok, err := c.provider.Get(ctx, k)
	if err != nil {
		c.log.Warn("snapshot get error", tablecodec.Fields{"key": k, "err": err})
		return nil, false
	}
	if !ok {
		return nil, false
	}

	e, err := wire.Decode(raw)
	if err != nil {
		c.drop(ctx, k, "corrupt")
		return nil, false
	}
	if gen, ok := c.currentGen(ctx, k); !ok || gen != e.Gen {
		c.drop(ctx, k, "generation moved")
		return nil, false
	}
	if e.Size != fi.Size() || e.ModUnixNano != fi.ModTime().UnixNano() {
		c.drop(ctx, k, "file changed")
		return nil, false
	}
	recs, err := c.codec.Decode(e.Payload)
	if err != nil {
		c.drop(ctx, k, "undecodable")
		return nil, false
	}
	if recs == nil {
		recs = []T{}
	}
	return recs, true
}

// store writes recs only if the generation observed before the read is
// still current.
func (c *cache[T]) store(ctx context.Context, k string, recs []T, obs uint64, fi os.FileInfo) {
	if gen, ok := c.currentGen(ctx, k); !ok || gen != obs {
		c.log.Debug("snapshot store skipped (gen mismatch)", tablecodec.Fields{"key": k, "obs": obs})
		return
	}
	payload, err := c.codec.Encode(recs)
	if err != nil {
		c.log.Warn("snapshot encode error", tablecodec.Fields{"key": k, "err": err})
		return
	}
	raw := wire.Encode(wire.Entry{
		Gen:         obs,
		Size:        fi.Size(),
		ModUnixNano: fi.ModTime().UnixNano(),
		Payload:     payload,
	})
	ok, err := c.provider.Set(ctx, k, raw, c.computeSetCost(k, raw), c.ttl)
	if err != nil {
		c.log.Warn("snapshot set error", tablecodec.Fields{"key": k, "err": err})
		return
	}
	if !ok {
		c.log.Debug("snapshot rejected by provider (pressure)", tablecodec.Fields{"key": k})
	}
}

func (c *cache[T]) drop(ctx context.Context, k, reason string) {
	_ = c.provider.Del(ctx, k)
	c.log.Debug("snapshot dropped", tablecodec.Fields{"key": k, "reason": reason})
}

func (c *cache[T]) currentGen(ctx context.Context, k string) (uint64, bool) {
	g, err := c.gen.Current(ctx, k)
	if err != nil {
		// unknown generation: neither serve nor store
		c.log.Warn("gen snapshot error", tablecodec.Fields{"key": k, "err": err})
		return 0, false
	}
	return g, true
}

func (c *cache[T]) key(abs string) string {
	return util.TableKey("table:"+c.ns, abs)
}

func coalesce[V comparable](v, def V) V {
	var zero V
	if v == zero {
		return def
	}
	return v
}
