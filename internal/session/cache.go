package session

import (
	"container/list"
	"sync"
	"time"

	"github.com/sashakarcz/passify/internal/generator"
)

// Session is the per-visitor state kept between requests
type Session struct {
	ID        string
	Settings  generator.Settings
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at now
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Cache is an LRU cache of sessions keyed by session ID
type Cache struct {
	mu        sync.Mutex
	maxSize   int
	byID      map[string]*list.Element
	lruList   *list.List
	hits      uint64
	misses    uint64
	evictions uint64
}

// NewCache creates a new LRU cache with the specified maximum size
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 10000
	}

	return &Cache{
		maxSize: maxSize,
		byID:    make(map[string]*list.Element),
		lruList: list.New(),
	}
}

// Get returns a copy of the session with the given ID
func (c *Cache) Get(id string) (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, found := c.byID[id]
	if !found {
		c.misses++
		return Session{}, false
	}

	c.lruList.MoveToFront(elem)
	c.hits++

	return *elem.Value.(*Session), true
}

// Put adds or replaces a session
func (c *Cache) Put(s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, found := c.byID[s.ID]; found {
		*elem.Value.(*Session) = s
		c.lruList.MoveToFront(elem)
		return
	}

	elem := c.lruList.PushFront(&s)
	c.byID[s.ID] = elem

	if c.lruList.Len() > c.maxSize {
		c.evictOldest()
	}
}

// Remove drops a session
func (c *Cache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, found := c.byID[id]; found {
		c.removeElement(elem)
	}
}

// Size returns the current number of entries in the cache
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lruList.Len()
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return CacheStats{
		Size:      c.lruList.Len(),
		MaxSize:   c.maxSize,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		HitRate:   hitRate,
	}
}

// CacheStats holds cache statistics
type CacheStats struct {
	Size      int     `json:"size"`
	MaxSize   int     `json:"max_size"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// ExpireOld removes sessions that expired at or before now
func (c *Cache) ExpireOld(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	expired := 0
	for elem := c.lruList.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*Session).Expired(now) {
			c.removeElement(elem)
			expired++
		}
		elem = prev
	}

	return expired
}

// evictOldest removes the least recently used entry
// Caller must hold the lock
func (c *Cache) evictOldest() {
	elem := c.lruList.Back()
	if elem != nil {
		c.removeElement(elem)
		c.evictions++
	}
}

// removeElement removes an element from the cache
// Caller must hold the lock
func (c *Cache) removeElement(elem *list.Element) {
	c.lruList.Remove(elem)
	delete(c.byID, elem.Value.(*Session).ID)
}
