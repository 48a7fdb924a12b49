package snapshot

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"
)

const (
	defaultProbeCounters = 1e5
	defaultProbeMaxCost  = 1 << 20 // 1MB; probes are tiny fixed-size records
	defaultProbeBuffer   = 64
	defaultProbeTTL      = time.Minute

	// probeCost is the admission cost per entry: a uuid, a sequence
	// number, and one digest.
	probeCost = 64
)

// ProbeCacheConfig configures the registry's probe cache. Zero values
// take defaults.
type ProbeCacheConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	TTL         time.Duration
}

func (c ProbeCacheConfig) withDefaults() ProbeCacheConfig {
	if c.NumCounters <= 0 {
		c.NumCounters = defaultProbeCounters
	}
	if c.MaxCost <= 0 {
		c.MaxCost = defaultProbeMaxCost
	}
	if c.BufferItems <= 0 {
		c.BufferItems = defaultProbeBuffer
	}
	if c.TTL <= 0 {
		c.TTL = defaultProbeTTL
	}
	return c
}

// probeCache memoizes per-document probe results so hot callers
// polling "did anything change" do not touch the registry's handle map
// on every call. Entries are invalidated on publish and expire on TTL
// as a backstop.
type probeCache struct {
	cache  *ristretto.Cache
	ttl    time.Duration
	stats  *ProbeStats
	mu     sync.RWMutex
	closed bool
}

func newProbeCache(config ProbeCacheConfig) (*probeCache, error) {
	cfg := config.withDefaults()

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}

	return &probeCache{
		cache: cache,
		ttl:   cfg.TTL,
		stats: &ProbeStats{},
	}, nil
}

func (pc *probeCache) get(key string) (Probe, bool) {
	pc.mu.RLock()
	if pc.closed {
		pc.mu.RUnlock()
		return Probe{}, false
	}
	pc.mu.RUnlock()

	value, found := pc.cache.Get(key)
	if !found {
		pc.stats.misses.Add(1)
		return Probe{}, false
	}

	probe, ok := value.(Probe)
	if !ok {
		pc.stats.misses.Add(1)
		return Probe{}, false
	}

	pc.stats.hits.Add(1)
	return probe, true
}

func (pc *probeCache) set(key string, probe Probe) bool {
	pc.mu.RLock()
	if pc.closed {
		pc.mu.RUnlock()
		return false
	}
	pc.mu.RUnlock()

	stored := pc.cache.SetWithTTL(key, probe, probeCost, pc.ttl)
	if stored {
		pc.stats.sets.Add(1)
	}
	return stored
}

func (pc *probeCache) invalidate(key string) {
	pc.mu.RLock()
	if pc.closed {
		pc.mu.RUnlock()
		return
	}
	pc.mu.RUnlock()

	pc.cache.Del(key)
	pc.stats.invalidations.Add(1)
}

// wait flushes pending async admissions. Probe results read after wait
// returns observe every prior set.
func (pc *probeCache) wait() {
	pc.mu.RLock()
	if pc.closed {
		pc.mu.RUnlock()
		return
	}
	pc.mu.RUnlock()

	pc.cache.Wait()
}

func (pc *probeCache) close() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.closed {
		return
	}
	pc.closed = true
	pc.cache.Close()
}

// =============================================================================
// Stats
// =============================================================================

// ProbeStats counts probe cache activity.
type ProbeStats struct {
	hits          atomic.Uint64
	misses        atomic.Uint64
	sets          atomic.Uint64
	invalidations atomic.Uint64
}

// Hits returns the number of probes served from cache.
func (s *ProbeStats) Hits() uint64 { return s.hits.Load() }

// Misses returns the number of probes that fell through to a handle
// read.
func (s *ProbeStats) Misses() uint64 { return s.misses.Load() }

// Sets returns the number of probe results admitted to the cache.
func (s *ProbeStats) Sets() uint64 { return s.sets.Load() }

// Invalidations returns the number of entries dropped by publish or
// forget.
func (s *ProbeStats) Invalidations() uint64 { return s.invalidations.Load() }
