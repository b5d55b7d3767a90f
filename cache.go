package deedmarket

import (
	"context"
	"time"

	"github.com/allegro/bigcache/v3"
)

// readCache holds serialized responses for the hot read endpoints (property
// meta, listings). Entries expire by TTL only; mutating operations never wait
// on the cache, so reads served from here are advisory like any other read.
type readCache struct {
	cache *bigcache.BigCache
}

func newReadCache(allKeysExpTime time.Duration) (*readCache, error) {
	cache, err := bigcache.New(context.Background(), bigcache.DefaultConfig(allKeysExpTime))
	if err != nil {
		return nil, err
	}
	return &readCache{cache: cache}, nil
}

func (c *readCache) Set(key string, entry []byte) error {
	return c.cache.Set(key, entry)
}

func (c *readCache) Get(key string) ([]byte, bool) {
	data, err := c.cache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}
