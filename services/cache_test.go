package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"wgdash/config"
	"wgdash/models"
)

type countingFetcher struct {
	mu    sync.Mutex
	calls int
	err   error
	snap  *models.StatusSnapshot
}

func (f *countingFetcher) FetchStatus(ctx context.Context) (*models.StatusSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func (f *countingFetcher) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *countingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestCache(t *testing.T, ttl int, fetcher StatusFetcher) (*CacheService, *fakeClock) {
	t.Helper()
	cfg := config.Default()
	cfg.Cache.TTL = ttl
	cs := NewCacheService(cfg, fetcher)
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cs.now = clock.Now
	t.Cleanup(cs.Stop)
	return cs, clock
}

func testSnapshot() *models.StatusSnapshot {
	return &models.StatusSnapshot{Interfaces: []models.InterfaceStatus{{
		Name:  "wg0",
		Peers: []models.PeerStatus{{PublicKey: "k", Rx: 1, Tx: 2}},
	}}}
}

func TestCache_WithinTTLFetchesOnce(t *testing.T) {
	t.Parallel()

	f := &countingFetcher{snap: testSnapshot()}
	cs, clock := newTestCache(t, 2, f)

	first, err := cs.GetOrFetch(context.Background())
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	clock.Advance(1999 * time.Millisecond)
	second, err := cs.GetOrFetch(context.Background())
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if f.count() != 1 {
		t.Fatalf("upstream calls=%d", f.count())
	}
	if first != second {
		t.Fatalf("expected the cached snapshot to be returned")
	}

	stats := cs.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || !stats.Cached {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestCache_SpanningTTLFetchesTwice(t *testing.T) {
	t.Parallel()

	f := &countingFetcher{snap: testSnapshot()}
	cs, clock := newTestCache(t, 2, f)

	if _, err := cs.GetOrFetch(context.Background()); err != nil {
		t.Fatalf("first: %v", err)
	}
	clock.Advance(2 * time.Second)
	if _, err := cs.GetOrFetch(context.Background()); err != nil {
		t.Fatalf("second: %v", err)
	}
	if f.count() != 2 {
		t.Fatalf("upstream calls=%d", f.count())
	}
}

func TestCache_FailureDoesNotServeStale(t *testing.T) {
	t.Parallel()

	f := &countingFetcher{snap: testSnapshot()}
	cs, clock := newTestCache(t, 2, f)

	if _, err := cs.GetOrFetch(context.Background()); err != nil {
		t.Fatalf("first: %v", err)
	}

	clock.Advance(3 * time.Second)
	f.setErr(fmt.Errorf("%w: boom", ErrUpstreamUnavailable))

	snap, err := cs.GetOrFetch(context.Background())
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("err=%v", err)
	}
	if snap != nil {
		t.Fatalf("stale snapshot served")
	}

	stats := cs.Stats()
	if stats.FetchErrors != 1 || stats.LastError == "" {
		t.Fatalf("stats=%+v", stats)
	}
	// the old entry is left in place, just expired
	if stats.StoredAt.IsZero() || stats.Cached {
		t.Fatalf("entry changed on failure: %+v", stats)
	}
}

func TestCache_ErrorIsNotCached(t *testing.T) {
	t.Parallel()

	f := &countingFetcher{err: fmt.Errorf("%w: down", ErrUpstreamUnavailable)}
	cs, _ := newTestCache(t, 2, f)

	for i := 0; i < 2; i++ {
		if _, err := cs.GetOrFetch(context.Background()); err == nil {
			t.Fatalf("expected error")
		}
	}
	if f.count() != 2 {
		t.Fatalf("upstream calls=%d", f.count())
	}

	f.setErr(nil)
	f.snap = testSnapshot()
	if _, err := cs.GetOrFetch(context.Background()); err != nil {
		t.Fatalf("recovery: %v", err)
	}
}

func TestCache_ZeroTTLAlwaysFetches(t *testing.T) {
	t.Parallel()

	f := &countingFetcher{snap: testSnapshot()}
	cs, _ := newTestCache(t, 0, f)

	for i := 0; i < 3; i++ {
		if _, err := cs.GetOrFetch(context.Background()); err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if f.count() != 3 {
		t.Fatalf("upstream calls=%d", f.count())
	}
}

func TestCache_Clear(t *testing.T) {
	t.Parallel()

	f := &countingFetcher{snap: testSnapshot()}
	cs, _ := newTestCache(t, 2, f)

	if _, err := cs.GetOrFetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if err := cs.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := cs.GetOrFetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if f.count() != 2 {
		t.Fatalf("upstream calls=%d", f.count())
	}
}

func TestCache_UnreachableRedisFallsBackToMemory(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Redis.Enabled = true
	cfg.Redis.Address = "127.0.0.1:1"

	cs := NewCacheService(cfg, &countingFetcher{snap: testSnapshot()})
	defer cs.Stop()

	if cs.Mode() != CacheModeInMemory {
		t.Fatalf("mode=%s", cs.Mode())
	}
	if _, err := cs.GetOrFetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
}
