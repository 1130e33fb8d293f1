package cache

import (
	"context"
	"time"

	"github.com/ReneKroon/ttlcache"

	"github.com/code-payments/flipchat-purchases/information"
)

// Cache fronts an information.Store with a TTL cache. Reads are served from the
// cache when possible; writes go to both.
type Cache struct {
	db    information.Store
	cache *ttlcache.Cache
}

func NewInCache(db information.Store, ttl time.Duration) information.Store {
	cache := ttlcache.NewCache()
	cache.SetTTL(ttl)
	return &Cache{
		db:    db,
		cache: cache,
	}
}

func (c *Cache) GetInformation(ctx context.Context, identifier string) (information.Information, error) {
	cached, ok := c.cache.Get(identifier)
	if ok {
		return cached.(information.Information).Clone(), nil
	}

	info, err := c.db.GetInformation(ctx, identifier)
	if err != nil {
		return information.Unavailable, err
	}

	c.cache.Set(identifier, info.Clone())
	return info, nil
}

func (c *Cache) PutInformation(ctx context.Context, identifier string, info information.Information) error {
	c.cache.Remove(identifier)
	if err := c.db.PutInformation(ctx, identifier, info); err != nil {
		return err
	}

	c.cache.Set(identifier, info.Clone())
	return nil
}

func (c *Cache) Clear(ctx context.Context) error {
	c.cache.Purge()
	return c.db.Clear(ctx)
}
