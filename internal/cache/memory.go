// Package cache provides the in-process, time-expiring schedule cache shared
// by all concurrent resolver calls.
package cache

import (
	"sync"
	"time"

	"github.com/PeterM45/tax-engine/internal/domain"
)

type entry struct {
	schedule domain.TaxSchedule
	storedAt time.Time
}

// MemoryCache is a reader/writer-locked map from schedule key to cached
// schedule. Reads see either the old entry or the fully written new one,
// never a mix. Expired entries are ignored on read and overwritten by the
// next Set for the same key; there is no background sweep.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[domain.ScheduleKey]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates a cache with a fixed per-instance TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[domain.ScheduleKey]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// TTL returns the cache's time-to-live.
func (c *MemoryCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached schedule for key if present and younger than the
// TTL. An expired entry behaves as absent but is not deleted.
func (c *MemoryCache) Get(key domain.ScheduleKey) (domain.TaxSchedule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.TaxSchedule{}, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		return domain.TaxSchedule{}, false
	}
	return e.schedule, true
}

// Set unconditionally overwrites any existing entry for key with a freshly
// timestamped one. Writes to the in-memory map cannot fail; the error return
// satisfies the domain.ScheduleCache contract for fallible backends.
func (c *MemoryCache) Set(key domain.ScheduleKey, schedule domain.TaxSchedule) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{schedule: schedule, storedAt: c.now()}
	return nil
}
