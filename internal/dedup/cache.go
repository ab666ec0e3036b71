package dedup

import (
	"sync"
	"time"
)

// DefaultTTL is how long an accepted suggestion fingerprint keeps suppressing
// near-duplicates.
const DefaultTTL = 30 * time.Second

// janitorInterval paces background removal of expired entries.
const janitorInterval = 10 * time.Second

// Cache is a time-bounded fingerprint set for one session. A live entry
// suppresses a new suggestion with the same fingerprint; expired entries never
// suppress, regardless of janitor timing.
type Cache struct {
	mu      sync.Mutex
	entries map[string]time.Time // fingerprint -> expiresAt
	stop    chan struct{}
	once    sync.Once
	now     func() time.Time
}

// NewCache creates a cache and starts its eviction janitor.
// Close must be called when the owning session ends.
func NewCache() *Cache {
	c := &Cache{
		entries: make(map[string]time.Time),
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	go c.janitor()
	return c
}

// ShouldSuppress reports whether a live entry exists for the fingerprint.
// An entry expiring exactly now no longer suppresses.
func (c *Cache) ShouldSuppress(fingerprint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	expiresAt, ok := c.entries[fingerprint]
	if !ok {
		return false
	}
	if !c.now().Before(expiresAt) {
		delete(c.entries, fingerprint)
		return false
	}
	return true
}

// Remember records the fingerprint for ttl. A non-positive ttl falls back to
// DefaultTTL.
func (c *Cache) Remember(fingerprint string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	c.entries[fingerprint] = c.now().Add(ttl)
	c.mu.Unlock()
}

// Len reports the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the janitor. Safe to call more than once.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for fp, expiresAt := range c.entries {
				if !now.Before(expiresAt) {
					delete(c.entries, fp)
				}
			}
			c.mu.Unlock()
		}
	}
}
