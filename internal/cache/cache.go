package cache

import (
	"encoding/json"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/l2laihub/portrait-prompt-engine/internal/logger"
	"github.com/l2laihub/portrait-prompt-engine/internal/template"
)

const (
	defaultTTL           = 30 * time.Minute
	defaultMaxEntries    = 500
	defaultSweepInterval = 5 * time.Minute
)

type entry struct {
	result       *template.CompiledResult
	size         int
	expiresAt    time.Time
	lastAccessed time.Time
}

// Options configures a compilation cache. Zero values fall back to defaults.
type Options struct {
	TTL           time.Duration
	MaxEntries    int
	SweepInterval time.Duration
	Logger        *logger.Logger
}

// Cache stores compiled prompts keyed by compilation fingerprint. Entries
// expire after their TTL and the least recently accessed entry is evicted
// when the cache is full. Expiry is checked lazily on every read, so the
// background sweep only reclaims memory early; a sweep racing a read is a
// benign double-delete.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry

	ttl        time.Duration
	maxEntries int
	interval   time.Duration
	log        *logger.Logger

	requests  int64
	hits      int64
	evictions int64

	stop     chan struct{}
	stopOnce sync.Once
	started  bool
}

// New creates a cache. Call Start to enable the background sweep.
func New(opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = defaultMaxEntries
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}

	return &Cache{
		entries:    make(map[string]*entry),
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		interval:   opts.SweepInterval,
		log:        opts.Logger.WithComponent("cache"),
		stop:       make(chan struct{}),
	}
}

// Get returns the cached result for key. Expired entries are removed on
// lookup and count as misses.
func (c *Cache) Get(key string) (*template.CompiledResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests++

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}

	e.lastAccessed = time.Now()
	c.hits++
	return e.result, true
}

// Set stores a result under key. A non-positive ttl uses the cache default.
// When the cache is full and key is new, the least recently accessed entry
// is evicted first.
func (c *Cache) Set(key string, result *template.CompiledResult, ttl time.Duration) {
	if result == nil {
		return
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	size := approxSize(result)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}

	c.entries[key] = &entry{
		result:       result,
		size:         size,
		expiresAt:    now.Add(ttl),
		lastAccessed: now,
	}
}

// Has reports whether key holds an unexpired entry. It does not count
// toward hit statistics and does not refresh recency.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return false
	}
	return true
}

// Delete removes key, reporting whether it was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Invalidate removes every key matching pattern and returns the count. The
// pattern is treated as a regular expression when it compiles, otherwise as
// a plain substring. An empty pattern clears the whole cache.
func (c *Cache) Invalidate(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pattern == "" {
		n := len(c.entries)
		c.entries = make(map[string]*entry)
		return n
	}

	match := func(key string) bool { return strings.Contains(key, pattern) }
	if re, err := regexp.Compile(pattern); err == nil {
		match = re.MatchString
	}

	var removed int
	for key := range c.entries {
		if match(key) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear removes all entries. Statistics are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Stats is a point-in-time snapshot of cache behaviour.
type Stats struct {
	Entries   int     `json:"entries"`
	Requests  int64   `json:"requests"`
	Hits      int64   `json:"hits"`
	HitRate   float64 `json:"hit_rate"`
	Bytes     int     `json:"bytes"`
	Evictions int64   `json:"evictions"`
}

// GetStats returns current cache statistics. Bytes is an approximation
// based on the serialized size of each entry.
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var bytes int
	for _, e := range c.entries {
		bytes += e.size
	}

	stats := Stats{
		Entries:   len(c.entries),
		Requests:  c.requests,
		Hits:      c.hits,
		Bytes:     bytes,
		Evictions: c.evictions,
	}
	if c.requests > 0 {
		stats.HitRate = float64(c.hits) / float64(c.requests)
	}
	return stats
}

// Start launches the background sweep. Calling Start twice is a no-op.
func (c *Cache) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go c.sweepLoop()
}

// Stop terminates the background sweep. Safe to call multiple times and
// without a prior Start.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := c.sweep(); n > 0 {
				c.log.WithFields(map[string]any{"expired": n}).Debug("cache sweep")
			}
		case <-c.stop:
			return
		}
	}
}

// sweep removes expired entries and returns how many were reclaimed.
func (c *Cache) sweep() int {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// evictOldest removes the least recently accessed entry. Caller holds the lock.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldest time.Time

	for key, e := range c.entries {
		if oldestKey == "" || e.lastAccessed.Before(oldest) {
			oldestKey = key
			oldest = e.lastAccessed
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.evictions++
	}
}

func approxSize(result *template.CompiledResult) int {
	data, err := json.Marshal(result)
	if err != nil {
		return len(result.Prompt)
	}
	return len(data)
}
