package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"puzzler-quiz-service/internal/catalog"
)

// CatalogCache rebuilds the catalog from its source on a TTL so edits to the
// backing store show up without a restart, while every load still validates
// the full record set.
type CatalogCache struct {
	source PuzzleSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	cached    *catalog.Catalog
	expiresAt time.Time
}

func NewCatalogCache(source PuzzleSource, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Catalog returns the cached catalog, rebuilding it on expiry. Concurrent
// misses coalesce into a single source load.
func (c *CatalogCache) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	now := c.clock()

	c.mu.RLock()
	if c.cached != nil && c.expiresAt.After(now) {
		cat := c.cached
		c.mu.RUnlock()
		return cat, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("catalog", func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if c.cached != nil && c.expiresAt.After(now) {
			cat := c.cached
			c.mu.RUnlock()
			return cat, nil
		}
		c.mu.RUnlock()

		defs, err := c.source.LoadPuzzles(ctx)
		if err != nil {
			return nil, err
		}
		cat, err := catalog.Load(defs)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cached = cat
		c.expiresAt = now.Add(c.ttlWithJitter())
		c.mu.Unlock()
		return cat, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*catalog.Catalog), nil
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
