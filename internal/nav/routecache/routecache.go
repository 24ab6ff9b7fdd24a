// Package routecache stores resolved routes and per-destination fields.
//
// Both stores are safe for concurrent use without caller-side locking. TTL is
// measured from creation; expired entries read as misses and are removed
// lazily or on the next insert.
package routecache

import (
	"sync/atomic"
	"time"

	"golang.org/x/sync/syncmap"

	"github.com/Faultbox/midgard-nav/internal/nav/grid"
)

// Limits bounds the cache. It is read on every call.
type Limits struct {
	Capacity int
	TTL      time.Duration
}

// Option configures a cache or field store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type routeKey struct {
	origin, destination grid.Cell
}

type entry struct {
	path    []grid.Cell
	created time.Time

	uses     atomic.Int64
	lastUsed atomic.Int64 // unix nanoseconds
}

func (e *entry) expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.created) > ttl
}

// score favours entries that are both frequently and recently used.
func (e *entry) score(now time.Time) float64 {
	idle := now.Sub(time.Unix(0, e.lastUsed.Load())).Minutes()
	if idle < 0 {
		idle = 0
	}
	return float64(e.uses.Load()) / (1 + idle)
}

// Cache maps (origin, destination) to a resolved route.
type Cache struct {
	limits func() Limits
	now    func() time.Time

	entries syncmap.Map // routeKey -> *entry
	size    atomic.Int64
}

// New creates a route cache.
func New(limits func() Limits, opts ...Option) *Cache {
	o := buildOptions(opts)
	return &Cache{limits: limits, now: o.now}
}

// TryGet returns a copy of the route stored for exactly (origin, destination).
func (c *Cache) TryGet(origin, destination grid.Cell) ([]grid.Cell, bool) {
	key := routeKey{origin, destination}
	v, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	e := v.(*entry)
	now := c.now()
	if e.expired(now, c.limits().TTL) {
		c.remove(key, e)
		return nil, false
	}
	e.uses.Add(1)
	e.lastUsed.Store(now.UnixNano())
	return append([]grid.Cell(nil), e.path...), true
}

// Put stores a copy of path. Empty paths are ignored.
func (c *Cache) Put(origin, destination grid.Cell, path []grid.Cell) {
	if len(path) == 0 {
		return
	}
	limits := c.limits()
	now := c.now()
	key := routeKey{origin, destination}

	c.purgeExpired(now, limits.TTL)
	if _, exists := c.entries.Load(key); !exists {
		c.evict(now, limits.Capacity)
	}

	e := &entry{path: append([]grid.Cell(nil), path...), created: now}
	e.uses.Store(1)
	e.lastUsed.Store(now.UnixNano())
	if _, loaded := c.entries.Swap(key, e); !loaded {
		c.size.Add(1)
	}
}

// Clear removes every route.
func (c *Cache) Clear() {
	c.entries.Range(func(k, v any) bool {
		c.remove(k.(routeKey), v.(*entry))
		return true
	})
}

// Count returns the number of stored routes, including expired ones not yet
// removed.
func (c *Cache) Count() int {
	return int(c.size.Load())
}

func (c *Cache) remove(key routeKey, e *entry) {
	if c.entries.CompareAndDelete(key, e) {
		c.size.Add(-1)
	}
}

func (c *Cache) purgeExpired(now time.Time, ttl time.Duration) {
	c.entries.Range(func(k, v any) bool {
		if e := v.(*entry); e.expired(now, ttl) {
			c.remove(k.(routeKey), e)
		}
		return true
	})
}

// evict drops the lowest scoring entries until one more fits. Each round is a
// single scan; the number of rounds is bounded by the current size.
func (c *Cache) evict(now time.Time, capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	for rounds := c.Count(); rounds > 0 && c.Count() >= capacity; rounds-- {
		var (
			victimKey routeKey
			victim    *entry
			lowest    float64
		)
		c.entries.Range(func(k, v any) bool {
			e := v.(*entry)
			if s := e.score(now); victim == nil || s < lowest {
				victimKey, victim, lowest = k.(routeKey), e, s
			}
			return true
		})
		if victim == nil {
			return
		}
		c.remove(victimKey, victim)
	}
}
