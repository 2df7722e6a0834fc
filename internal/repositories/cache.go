package repositories

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Cache is the resolution cache used during a run.
//
// Reads check memory first, then the store. Put only touches memory; Flush writes everything pending
// to the store in one batch. Store failures are logged, never returned. After the first failure
// the cache stops talking to its store and keeps working from memory.
type Cache struct {
	mu       sync.Mutex
	store    Store
	mem      map[string]string
	pending  map[string]string
	degraded bool
	logger   *log.Logger
}

// NewCache wraps store. A nil store gives a memory-only cache.
func NewCache(store Store, logger *log.Logger) *Cache {
	return &Cache{
		store:   store,
		mem:     make(map[string]string),
		pending: make(map[string]string),
		logger:  logger,
	}
}

// NewMemoryCache returns a cache that forgets everything when the process exits.
func NewMemoryCache() *Cache { return NewCache(nil, nil) }

func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.mem[key]; ok {
		return v, true
	}
	if c.store == nil || c.degraded {
		return "", false
	}

	v, err := c.store.Lookup(key)
	switch {
	case err == nil:
		c.mem[key] = v
		return v, true
	case IsNotFound(err):
	default:
		c.fail("read", err)
	}
	return "", false
}

func (c *Cache) Put(key, value string) {
	if key == "" || value == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mem[key] = value
	c.pending[key] = value
}

// Flush persists pending writes. Entries stay in memory whatever the outcome.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 || c.store == nil || c.degraded {
		return
	}
	if err := c.store.Save(c.pending); err != nil {
		c.fail("write", err)
		return
	}
	if c.logger != nil {
		c.logger.Debug("cache flushed", "entries", len(c.pending))
	}
	c.pending = make(map[string]string)
}

// Pending returns the number of unflushed writes.
func (c *Cache) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Degraded reports whether the store has been abandoned for this run.
func (c *Cache) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded
}

// Close flushes and closes the store.
func (c *Cache) Close() error {
	c.Flush()
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

func (c *Cache) fail(op string, err error) {
	c.degraded = true
	if c.logger != nil {
		c.logger.Warn("resolution cache unavailable, continuing in memory", "op", op, "err", cacheErr(op, err))
	}
}
