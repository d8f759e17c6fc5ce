package redis

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newServer(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestNewRequiresClient(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNilClient) {
		t.Fatalf("expected ErrNilClient, got %v", err)
	}
}

func TestGetSetDel(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newServer(t)
	p, err := New(Config{Client: rdb})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, ok, err := p.Get(ctx, "table:t:a"); ok || err != nil {
		t.Fatalf("miss: ok=%v err=%v", ok, err)
	}

	val := []byte("TBLC\x00\x01snapshot")
	if ok, err := p.Set(ctx, "table:t:a", val, 1, time.Minute); !ok || err != nil {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	got, ok, err := p.Get(ctx, "table:t:a")
	if !ok || err != nil || !bytes.Equal(got, val) {
		t.Fatalf("Get = %q ok=%v err=%v", got, ok, err)
	}
	if ttl := mr.TTL("table:t:a"); ttl != time.Minute {
		t.Fatalf("TTL = %v, want 1m", ttl)
	}

	if err := p.Del(ctx, "table:t:a"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if mr.Exists("table:t:a") {
		t.Fatalf("key survived Del")
	}
}

func TestSetNonPositiveTTLHasNoExpiry(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newServer(t)
	p, _ := New(Config{Client: rdb})

	for _, ttl := range []time.Duration{0, -time.Second} {
		if ok, err := p.Set(ctx, "table:t:k", []byte("v"), 1, ttl); !ok || err != nil {
			t.Fatalf("Set(ttl=%v): ok=%v err=%v", ttl, ok, err)
		}
		if got := mr.TTL("table:t:k"); got != 0 {
			t.Fatalf("ttl=%v stored with expiry %v", ttl, got)
		}
	}
}

func TestSetSkipsOversizedSnapshot(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newServer(t)
	p, _ := New(Config{Client: rdb, MaxValueBytes: 4})

	ok, err := p.Set(ctx, "table:t:big", []byte("too large"), 1, 0)
	if ok || err != nil {
		t.Fatalf("Set oversized = %v, %v; want skipped", ok, err)
	}
	if mr.Exists("table:t:big") {
		t.Fatalf("oversized snapshot reached the server")
	}
}

func TestGetServerErrorIsNotAMiss(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newServer(t)
	p, _ := New(Config{Client: rdb})

	mr.SetError("ERR injected")
	_, ok, err := p.Get(ctx, "table:t:a")
	if err == nil || ok {
		t.Fatalf("expected error, got ok=%v err=%v", ok, err)
	}
	mr.SetError("")
	if _, ok, err := p.Get(ctx, "table:t:a"); ok || err != nil {
		t.Fatalf("miss after recovery: ok=%v err=%v", ok, err)
	}
}

func TestCloseOnlyOwnedClient(t *testing.T) {
	ctx := context.Background()
	_, rdb := newServer(t)

	borrowed, _ := New(Config{Client: rdb})
	if err := borrowed.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("borrowed client closed by provider: %v", err)
	}

	owned, _ := New(Config{Client: rdb, CloseClient: true})
	if err := owned.Close(ctx); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := owned.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := rdb.Ping(ctx).Err(); err == nil {
		t.Fatalf("owned client still open")
	}
}
