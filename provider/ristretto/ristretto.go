// Package ristretto stores table snapshots in a dgraph-io/ristretto cache.
// Set is admission-controlled: it may report ok=false, and accepted writes
// become visible asynchronously.
package ristretto

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/tablecodec/provider"
)

type Provider struct {
	c        *rc.Cache
	maxEntry int64
	rejected atomic.Uint64
}

var _ provider.Provider = (*Provider)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64 // in the unit tablecache.Options.ComputeSetCost uses (bytes by default)
	BufferItems int64
	Metrics     bool
	// MaxEntryCost refuses single snapshots costing more than this, so one
	// huge table cannot evict every other one. 0 => MaxCost/2.
	MaxEntryCost int64
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto provider: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	maxEntry := cfg.MaxEntryCost
	if maxEntry <= 0 {
		maxEntry = cfg.MaxCost / 2
	}
	return &Provider{c: c, maxEntry: maxEntry}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

// Set charges cost, or the snapshot's size in bytes when cost <= 0.
// Oversized or unadmitted snapshots report ok=false.
func (p *Provider) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	if cost <= 0 {
		cost = int64(len(value))
	}
	if cost > p.maxEntry || !p.c.SetWithTTL(key, value, cost, ttl) {
		p.rejected.Add(1)
		return false, nil
	}
	return true, nil
}

// Rejected counts snapshots refused by Set since New.
func (p *Provider) Rejected() uint64 { return p.rejected.Load() }

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Del(key)
	return nil
}

// Wait blocks until buffered Sets are applied.
func (p *Provider) Wait() { p.c.Wait() }

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes ristretto counters when Config.Metrics is set.
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
