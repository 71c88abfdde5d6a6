// Package cache implements the mDNS record cache: a keyed multimap of live
// records with lazy, read-time TTL expiry (spec §4.2).
package cache

import (
	"sync"
	"time"

	"github.com/student/mdnsd/internal/wire"
)

// Cache holds records learned from the network (or inserted locally) keyed
// by the case-folded owner name. It has no background reaper: expiry is
// detected lazily, at read time, against the instant supplied by the
// caller.
//
// Cache is safe for concurrent use: reads never observe a partially
// updated entry, since mutation of a key's record slice always replaces
// the slice header under the cache's write lock rather than mutating in
// place.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]wire.Record
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: map[string][]wire.Record{}}
}

// Add inserts r. If r.TTL is zero (a goodbye notification), any existing
// live record matching r's protocol identity is removed instead of being
// replaced with a zero-TTL entry (spec §3, §4.2).
//
// Insertion is last-writer-wins for protocol-and-payload-equal records: an
// incoming record with the same (name⇓, type, class15, payload) replaces
// the stored copy's TTL/CreatedAt rather than appending a duplicate.
func (c *Cache) Add(r wire.Record) {
	key := r.Name.Fold()

	c.mu.Lock()
	defer c.mu.Unlock()

	if r.IsGoodbye() {
		c.removeLocked(key, &r)
		return
	}

	existing := c.entries[key]
	for i := range existing {
		if existing[i].Equal(&r) {
			updated := make([]wire.Record, len(existing))
			copy(updated, existing)
			updated[i] = r
			c.entries[key] = updated
			return
		}
	}

	c.entries[key] = append(append([]wire.Record{}, existing...), r)
}

// Remove deletes the entry matching r's protocol identity, if any.
func (c *Cache) Remove(r wire.Record) {
	key := r.Name.Fold()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(key, &r)
}

// removeLocked must be called with c.mu held for writing.
func (c *Cache) removeLocked(key string, r *wire.Record) {
	existing := c.entries[key]
	if len(existing) == 0 {
		return
	}

	kept := make([]wire.Record, 0, len(existing))
	for i := range existing {
		if !existing[i].ProtocolEqual(r) {
			kept = append(kept, existing[i])
		}
	}

	if len(kept) == 0 {
		delete(c.entries, key)
	} else {
		c.entries[key] = kept
	}
}

// GetByKey returns the first non-expired record matching name, rrtype, and
// class at instant now. wire.TypeANY matches any type; wire.ClassANY
// matches any class.
func (c *Cache) GetByKey(name wire.Name, rrtype, class uint16, now time.Time) (wire.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, r := range c.entries[name.Fold()] {
		if rrtype != wire.TypeANY && r.Type != rrtype {
			continue
		}
		if class != wire.ClassANY && r.Class != class {
			continue
		}
		if r.IsExpired(now) {
			continue
		}
		return r, true
	}

	return wire.Record{}, false
}

// Entries returns every record stored under name, live or not; callers must
// filter for liveness themselves (spec §4.2).
func (c *Cache) Entries(name wire.Name) []wire.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	existing := c.entries[name.Fold()]
	out := make([]wire.Record, len(existing))
	copy(out, existing)
	return out
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = map[string][]wire.Record{}
}
