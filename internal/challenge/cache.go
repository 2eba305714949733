package challenge

import (
	"sync"
	"time"

	"github.com/partyloop/guessparty/internal/model"
)

// Cache keeps one fetched challenge pool per game type for a fixed TTL.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[model.GameType]cacheEntry

	now func() time.Time
}

type cacheEntry struct {
	pool      []model.Challenge
	expiresAt time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[model.GameType]cacheEntry),
		now:     time.Now,
	}
}

func (c *Cache) Get(gameType model.GameType) ([]model.Challenge, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[gameType]
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.pool, true
}

func (c *Cache) Put(gameType model.GameType, pool []model.Challenge) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[gameType] = cacheEntry{
		pool:      pool,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Invalidate drops one game type's pool, or everything when gameType is "".
func (c *Cache) Invalidate(gameType model.GameType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gameType == "" {
		c.entries = make(map[model.GameType]cacheEntry)
		return
	}
	delete(c.entries, gameType)
}
