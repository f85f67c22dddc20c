package services

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"wgdash/config"
	"wgdash/models"
)

// snapshotCacheKey is the single slot: the process has exactly one upstream.
const snapshotCacheKey = "wg-proxy-cache"

// CacheMode indicates which cache backend is active
type CacheMode string

const (
	CacheModeRedis    CacheMode = "redis"
	CacheModeInMemory CacheMode = "in-memory"
)

// StatusFetcher is the upstream the cache fills itself from.
type StatusFetcher interface {
	FetchStatus(ctx context.Context) (*models.StatusSnapshot, error)
}

type cacheEntry struct {
	snapshot *models.StatusSnapshot
	storedAt time.Time
}

// CacheStats is reported by the /cache/status endpoint.
type CacheStats struct {
	Mode        CacheMode `json:"mode"`
	TTLSeconds  float64   `json:"ttl_seconds"`
	Cached      bool      `json:"cached"`
	StoredAt    time.Time `json:"stored_at"`
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	FetchErrors int64     `json:"fetch_errors"`
	LastError   string    `json:"last_error,omitempty"`
}

// CacheService keeps the last good StatusSnapshot for a short TTL so that
// concurrent dashboards share one upstream call. A failed fetch is returned
// as an error even when an expired entry exists.
//
// The slot is guarded by a mutex but fetches are not coalesced: two callers
// that miss together both hit the upstream and the last writer wins.
type CacheService struct {
	cfg     *config.Config
	fetcher StatusFetcher
	ttl     time.Duration
	now     func() time.Time

	// Redis
	redis       *redis.Client
	redisCtx    context.Context
	redisCancel context.CancelFunc
	mode        CacheMode
	modeMutex   sync.RWMutex

	// In-memory slot
	mu        sync.RWMutex
	entry     *cacheEntry
	lastError string

	hits        atomic.Int64
	misses      atomic.Int64
	fetchErrors atomic.Int64

	stopChan chan struct{}
	stopOnce sync.Once
}

func NewCacheService(cfg *config.Config, fetcher StatusFetcher) *CacheService {
	ctx, cancel := context.WithCancel(context.Background())

	cs := &CacheService{
		cfg:         cfg,
		fetcher:     fetcher,
		ttl:         cfg.CacheTTLDuration(),
		now:         time.Now,
		redisCtx:    ctx,
		redisCancel: cancel,
		stopChan:    make(chan struct{}),
		mode:        CacheModeInMemory,
	}

	if cfg.Redis.Enabled {
		cs.connectRedis()
	} else {
		log.Println("Redis disabled in config, using in-memory cache only")
	}

	return cs
}

func (cs *CacheService) connectRedis() {
	if cs.cfg.Redis.Address == "" {
		log.Println("Redis address not configured, using in-memory cache")
		return
	}

	options := &redis.Options{
		Addr:         cs.cfg.Redis.Address,
		Password:     cs.cfg.Redis.Password,
		DB:           cs.cfg.Redis.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
		MaxRetries:   1,
		PoolTimeout:  2 * time.Second,
	}

	if cs.cfg.Redis.UseTLS {
		options.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		log.Printf("TLS enabled for Redis connection")
	}

	cs.redis = redis.NewClient(options)

	ctx, cancel := context.WithTimeout(cs.redisCtx, 3*time.Second)
	defer cancel()

	pong, err := cs.redis.Ping(ctx).Result()
	if err != nil {
		log.Printf("⚠️  Redis connection failed: %v", err)
		log.Printf("⚠️  Running in IN-MEMORY mode")
		cs.setMode(CacheModeInMemory)
		return
	}

	log.Printf("✓ Redis connected successfully (response: %s)", pong)
	cs.setMode(CacheModeRedis)
}

func (cs *CacheService) setMode(mode CacheMode) {
	cs.modeMutex.Lock()
	defer cs.modeMutex.Unlock()
	if cs.mode != mode {
		log.Printf("Cache mode changed: %s", mode)
	}
	cs.mode = mode
}

func (cs *CacheService) getMode() CacheMode {
	cs.modeMutex.RLock()
	defer cs.modeMutex.RUnlock()
	return cs.mode
}

func (cs *CacheService) Mode() CacheMode {
	return cs.getMode()
}

// Start launches the Redis health loop when a Redis client exists.
func (cs *CacheService) Start() {
	if cs.redis == nil {
		return
	}
	go cs.runHealthCheckLoop()
}

func (cs *CacheService) Stop() {
	cs.stopOnce.Do(func() {
		close(cs.stopChan)
		cs.redisCancel()
		if cs.redis != nil {
			cs.redis.Close()
		}
	})
}

func (cs *CacheService) runHealthCheckLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cs.checkRedisHealth()
		case <-cs.stopChan:
			return
		}
	}
}

// checkRedisHealth flips between modes as Redis goes away and comes back.
func (cs *CacheService) checkRedisHealth() {
	ctx, cancel := context.WithTimeout(cs.redisCtx, 2*time.Second)
	defer cancel()

	_, err := cs.redis.Ping(ctx).Result()
	mode := cs.getMode()

	if mode == CacheModeRedis && err != nil {
		log.Printf("⚠️  Redis health check failed: %v", err)
		cs.setMode(CacheModeInMemory)
	} else if mode == CacheModeInMemory && err == nil {
		log.Printf("✓ Redis reconnected! Switching back to REDIS mode")
		cs.setMode(CacheModeRedis)
	}
}

// GetOrFetch returns the cached snapshot while it is younger than the TTL,
// otherwise fetches a new one. Upstream errors propagate unchanged.
func (cs *CacheService) GetOrFetch(ctx context.Context) (*models.StatusSnapshot, error) {
	if snapshot, ok := cs.lookup(ctx); ok {
		cs.hits.Add(1)
		return snapshot, nil
	}
	cs.misses.Add(1)

	snapshot, err := cs.fetcher.FetchStatus(ctx)
	if err != nil {
		cs.fetchErrors.Add(1)
		cs.mu.Lock()
		cs.lastError = err.Error()
		cs.mu.Unlock()
		return nil, err
	}

	cs.store(ctx, snapshot)
	return snapshot, nil
}

func (cs *CacheService) lookup(ctx context.Context) (*models.StatusSnapshot, bool) {
	if cs.ttl <= 0 {
		return nil, false
	}

	if cs.getMode() == CacheModeRedis {
		snapshot, found, err := cs.getRedis(ctx)
		if err == nil {
			return snapshot, found
		}
		log.Printf("Redis GET failed for key '%s': %v (checking in-memory)", snapshotCacheKey, err)
	}

	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if cs.entry == nil || cs.now().Sub(cs.entry.storedAt) >= cs.ttl {
		return nil, false
	}
	return cs.entry.snapshot, true
}

func (cs *CacheService) store(ctx context.Context, snapshot *models.StatusSnapshot) {
	if cs.ttl <= 0 {
		return
	}

	cs.mu.Lock()
	cs.entry = &cacheEntry{snapshot: snapshot, storedAt: cs.now()}
	cs.lastError = ""
	cs.mu.Unlock()

	if cs.getMode() == CacheModeRedis {
		if err := cs.setRedis(ctx, snapshot); err != nil {
			log.Printf("Redis SET failed for key '%s': %v", snapshotCacheKey, err)
		}
	}
}

func (cs *CacheService) setRedis(ctx context.Context, snapshot *models.StatusSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return cs.redis.Set(ctx, snapshotCacheKey, data, cs.ttl).Err()
}

func (cs *CacheService) getRedis(ctx context.Context) (*models.StatusSnapshot, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	data, err := cs.redis.Get(ctx, snapshotCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var snapshot models.StatusSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, false, err
	}
	return &snapshot, true, nil
}

// Clear drops the cached snapshot from every backend.
func (cs *CacheService) Clear(ctx context.Context) error {
	cs.mu.Lock()
	cs.entry = nil
	cs.mu.Unlock()

	if cs.getMode() == CacheModeRedis {
		ctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := cs.redis.Del(ctx, snapshotCacheKey).Err(); err != nil {
			return err
		}
	}
	log.Println("Snapshot cache cleared")
	return nil
}

func (cs *CacheService) Stats() CacheStats {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	stats := CacheStats{
		Mode:        cs.getMode(),
		TTLSeconds:  cs.ttl.Seconds(),
		Hits:        cs.hits.Load(),
		Misses:      cs.misses.Load(),
		FetchErrors: cs.fetchErrors.Load(),
		LastError:   cs.lastError,
	}
	if cs.entry != nil {
		stats.StoredAt = cs.entry.storedAt
		stats.Cached = cs.now().Sub(cs.entry.storedAt) < cs.ttl
	}
	return stats
}
