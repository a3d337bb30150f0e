package geocode

import (
	"context"
	"errors"
	"sync"
	"time"
)

type cacheEntry struct {
	point    Point
	notFound bool
	ts       time.Time
}

type order struct {
	name string
	ts   time.Time
}

// Cache is a Geocoder that remembers recent resolutions. The same place names
// recur constantly across a corpus, and upstream geocoders are rate-limited,
// so both successful lookups and not-found answers are cached. Transient
// errors are not.
type Cache struct {
	next Geocoder

	mu       sync.Mutex
	items    map[string]cacheEntry
	order    []order
	capacity int
	ttl      time.Duration
}

// NewCache wraps next with a cache holding up to capacity entries for ttl.
func NewCache(next Geocoder, capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		next:     next,
		items:    make(map[string]cacheEntry, capacity),
		order:    make([]order, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
	}
}

// Resolve returns a cached answer when one is fresh, otherwise delegates.
func (c *Cache) Resolve(ctx context.Context, name string) (Point, error) {
	now := time.Now()

	c.mu.Lock()
	if entry, ok := c.items[name]; ok && now.Sub(entry.ts) <= c.ttl {
		c.mu.Unlock()
		if entry.notFound {
			return Point{}, ErrNotFound
		}
		return entry.point, nil
	}
	c.mu.Unlock()

	point, err := c.next.Resolve(ctx, name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Point{}, err
	}

	c.mu.Lock()
	c.items[name] = cacheEntry{point: point, notFound: errors.Is(err, ErrNotFound), ts: now}
	c.order = append(c.order, order{name: name, ts: now})
	c.compact(now)
	c.mu.Unlock()

	return point, err
}

func (c *Cache) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		if entry, ok := c.items[oldest.name]; ok && entry.ts == oldest.ts {
			delete(c.items, oldest.name)
		}
	}
}
