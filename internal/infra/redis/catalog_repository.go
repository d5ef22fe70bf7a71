package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"puzzler-quiz-service/internal/catalog"
	"puzzler-quiz-service/internal/domain"
	"puzzler-quiz-service/internal/infra/memory"
)

// CatalogRepository caches puzzle records in Redis and rebuilds the catalog
// from them, falling back to a source on cache miss. Records are stored as:
//
//	HSET puzzler:catalog:records {puzzleID} {json record}
//	RPUSH puzzler:catalog:order {puzzleID}...
//
// The order list preserves catalog insertion order, which the hash alone
// cannot. Validation still runs on every rebuild.
type CatalogRepository struct {
	client *redis.Client
	source memory.PuzzleSource
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCatalogRepository(client *redis.Client, source memory.PuzzleSource, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	if cat, ok := r.fromCache(ctx); ok {
		return cat, nil
	}

	result, err, _ := r.sf.Do("catalog", func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if cat, ok := r.fromCache(ctx); ok {
			return cat, nil
		}

		defs, err := r.source.LoadPuzzles(ctx)
		if err != nil {
			return nil, err
		}
		cat, err := catalog.Load(defs)
		if err != nil {
			return nil, err
		}

		ttl := r.ttlWithJitter()
		pipe := r.client.Pipeline()
		pipe.Del(ctx, r.orderKey())
		for _, p := range defs {
			raw, err := json.Marshal(p)
			if err != nil {
				return nil, err
			}
			pipe.HSet(ctx, r.recordsKey(), p.ID, raw)
			pipe.RPush(ctx, r.orderKey(), p.ID)
		}
		if ttl > 0 {
			pipe.Expire(ctx, r.recordsKey(), ttl)
			pipe.Expire(ctx, r.orderKey(), ttl)
		}
		_, _ = pipe.Exec(ctx)

		return cat, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*catalog.Catalog), nil
}

func (r *CatalogRepository) fromCache(ctx context.Context) (*catalog.Catalog, bool) {
	order, err := r.client.LRange(ctx, r.orderKey(), 0, -1).Result()
	if err != nil || len(order) == 0 {
		return nil, false
	}
	records, err := r.client.HGetAll(ctx, r.recordsKey()).Result()
	if err != nil || len(records) == 0 {
		return nil, false
	}

	defs := make([]domain.Puzzle, 0, len(order))
	for _, id := range order {
		raw, ok := records[id]
		if !ok {
			return nil, false
		}
		var p domain.Puzzle
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, false
		}
		defs = append(defs, p)
	}
	cat, err := catalog.Load(defs)
	if err != nil {
		return nil, false
	}
	return cat, true
}

func (r *CatalogRepository) recordsKey() string {
	return "puzzler:catalog:records"
}

func (r *CatalogRepository) orderKey() string {
	return "puzzler:catalog:order"
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
