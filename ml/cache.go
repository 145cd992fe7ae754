package ml

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedRegressor memoizes predictions of a deterministic model. Vectors of
// the wrong width bypass the cache so the wrapped model reports the error.
type CachedRegressor struct {
	next   Regressor
	cache  *lru.Cache[[NumFeatures]float64, float64]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCachedRegressor wraps next with an LRU cache holding up to size vectors.
func NewCachedRegressor(next Regressor, size int) (*CachedRegressor, error) {
	cache, err := lru.New[[NumFeatures]float64, float64](size)
	if err != nil {
		return nil, err
	}
	return &CachedRegressor{next: next, cache: cache}, nil
}

// Predict returns the cached score for features, calling through on a miss.
func (c *CachedRegressor) Predict(features []float64) (float64, error) {
	if len(features) != NumFeatures {
		return c.next.Predict(features)
	}
	var key [NumFeatures]float64
	copy(key[:], features)

	if value, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return value, nil
	}
	c.misses.Add(1)
	value, err := c.next.Predict(features)
	if err != nil {
		return 0, err
	}
	c.cache.Add(key, value)
	return value, nil
}

// Hits reports how many predictions were served from the cache.
func (c *CachedRegressor) Hits() uint64 {
	return c.hits.Load()
}

// Misses reports how many predictions reached the wrapped model.
func (c *CachedRegressor) Misses() uint64 {
	return c.misses.Load()
}

// Len is the number of cached vectors.
func (c *CachedRegressor) Len() int {
	return c.cache.Len()
}
