package stock

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedAggregator caches aggregates for the storefront read path. A result
// that is one reservation stale is acceptable: Reserve re-validates against
// the ledger at mutation time.
type CachedAggregator struct {
	agg   *Aggregator
	cache *expirable.LRU[string, *MultiWarehouseStock]
}

func NewCachedAggregator(agg *Aggregator, size int, ttl time.Duration) *CachedAggregator {
	return &CachedAggregator{
		agg:   agg,
		cache: expirable.NewLRU[string, *MultiWarehouseStock](size, nil, ttl),
	}
}

func (c *CachedAggregator) Aggregate(ctx context.Context, itemID string) (*MultiWarehouseStock, error) {
	if agg, ok := c.cache.Get(itemID); ok {
		return agg, nil
	}
	agg, err := c.agg.Aggregate(ctx, itemID)
	if err != nil {
		return nil, err
	}
	c.cache.Add(itemID, agg)
	return agg, nil
}

// Invalidate drops one item after a mutation so the storefront catches up
// before the TTL expires.
func (c *CachedAggregator) Invalidate(itemID string) {
	c.cache.Remove(itemID)
}
