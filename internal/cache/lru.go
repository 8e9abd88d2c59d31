// Package cache provides response caching for Pulse.
package cache

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/opensource-wellbeing/pulse/internal/domain"
)

// ErrInstitutionRequired is returned when a cache call has no institution.
var ErrInstitutionRequired = errors.New("institutionID is required")

// LRUCache is a thread-safe LRU cache with TTL support.
// Used as the Community tier cache and as L1 in two-phase caching.
type LRUCache struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List
	hits    uint64
	misses  uint64
}

type cacheEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// NewLRUCache creates a new LRU cache with the specified max size.
func NewLRUCache(maxSize int) *LRUCache {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &LRUCache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get retrieves a value. Returns nil, nil on a miss or expired entry.
func (c *LRUCache) Get(ctx context.Context, institutionID string, key string) ([]byte, error) {
	if institutionID == "" {
		return nil, ErrInstitutionRequired
	}

	fullKey := makeKey(institutionID, key)

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[fullKey]
	if !ok {
		c.misses++
		return nil, nil
	}

	entry := elem.Value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeElement(elem)
		c.misses++
		return nil, nil
	}

	c.order.MoveToFront(elem)
	c.hits++
	return entry.value, nil
}

// Set stores a value with TTL, evicting the least recently used entries
// once the cache is full.
func (c *LRUCache) Set(ctx context.Context, institutionID string, key string, value []byte, ttl time.Duration) error {
	if institutionID == "" {
		return ErrInstitutionRequired
	}

	fullKey := makeKey(institutionID, key)
	expiresAt := time.Now().Add(ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[fullKey]; ok {
		c.order.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		return nil
	}

	elem := c.order.PushFront(&cacheEntry{key: fullKey, value: value, expiresAt: expiresAt})
	c.items[fullKey] = elem

	for c.order.Len() > c.maxSize {
		c.removeElement(c.order.Back())
	}

	return nil
}

// Delete removes a value from cache.
func (c *LRUCache) Delete(ctx context.Context, institutionID string, key string) error {
	if institutionID == "" {
		return ErrInstitutionRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[makeKey(institutionID, key)]; ok {
		c.removeElement(elem)
	}
	return nil
}

// GetResponse retrieves a cached assessment response.
func (c *LRUCache) GetResponse(ctx context.Context, institutionID string, answersKey string) (*domain.Response, error) {
	return getResponse(ctx, c, institutionID, answersKey)
}

// SetResponse caches a successful assessment response.
func (c *LRUCache) SetResponse(ctx context.Context, institutionID string, answersKey string, resp *domain.Response, ttl time.Duration) error {
	return setResponse(ctx, c, institutionID, answersKey, resp, ttl)
}

// Ping checks cache health.
func (c *LRUCache) Ping(ctx context.Context) error {
	return nil
}

// Close drops every entry.
func (c *LRUCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order = list.New()
	return nil
}

// Stats returns cache statistics.
func (c *LRUCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:     c.order.Len(),
		Capacity: c.maxSize,
		Hits:     c.hits,
		Misses:   c.misses,
	}
}

// Stats describes the local cache tier.
type Stats struct {
	Size     int    `json:"size"`
	Capacity int    `json:"capacity"`
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
}

func makeKey(institutionID, key string) string {
	return institutionID + ":" + key
}

func (c *LRUCache) removeElement(elem *list.Element) {
	if elem == nil {
		return
	}
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*cacheEntry).key)
}
