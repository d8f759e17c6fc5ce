// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{SniffEvery: 10})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	tbl, _ := tablecodec.New[Sale](tablecodec.Options[Sale]{
//	    Decode: decodeSale,
//	    Hooks:  hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/tablecodec"
)

type Hooks struct {
	inner  tablecodec.Hooks
	q      chan func()
	wg     sync.WaitGroup
	once   sync.Once
	mu     sync.RWMutex // guards closed against sends on a closed q
	closed bool
}

var _ tablecodec.Hooks = (*Hooks)(nil)

func New(inner tablecodec.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close stops accepting events and waits for queued ones to run.
// Events fired after Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) DelimiterSniffed(p string, d tablecodec.Detection) {
	h.try(func() { h.inner.DelimiterSniffed(p, d) })
}
func (h *Hooks) ReadFailed(p string, k tablecodec.Kind, n int, err error) {
	h.try(func() { h.inner.ReadFailed(p, k, n, err) })
}
func (h *Hooks) WriteFailed(p string, k tablecodec.Kind, n int, err error) {
	h.try(func() { h.inner.WriteFailed(p, k, n, err) })
}
