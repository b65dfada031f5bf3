// Package caching memoizes slow remote lookups in process memory.
package caching

import (
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

type Cache struct {
	memoryCache *cache.Cache
	ttl         time.Duration

	// concurrent misses on one key share a single load
	loads singleflight.Group
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		memoryCache: cache.New(ttl, 2*ttl),
		ttl:         ttl,
	}
}

// GetOrLoad returns the cached value for key, calling load on a miss. Failed loads are
// not cached.
func (s *Cache) GetOrLoad(key string, load func() (any, error)) (any, error) {
	if v, ok := s.memoryCache.Get(key); ok {
		return v, nil
	}

	v, err, _ := s.loads.Do(key, func() (any, error) {
		if v, ok := s.memoryCache.Get(key); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return nil, err
		}
		s.memoryCache.Set(key, v, s.ttl)
		return v, nil
	})
	return v, err
}

func (s *Cache) Delete(key string) {
	s.memoryCache.Delete(key)
}

func (s *Cache) Flush() {
	s.memoryCache.Flush()
}
