package memory

import (
	"context"
	"encoding/json"
	"time"

	"madlen-ai-be/pkg/openrouter"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const (
	catalogKey = "madlen:models:free"
	catalogTTL = 5 * time.Minute
)

// CatalogCache keeps the free-model catalog warm. The in-process go-cache
// tier always works; the Redis tier is shared across instances and is
// best-effort (a dead Redis never fails a request).
type CatalogCache struct {
	local *cache.Cache
	rdb   *redis.Client
}

func NewCatalogCache(rdb *redis.Client) *CatalogCache {
	return &CatalogCache{
		local: cache.New(catalogTTL, 10*time.Minute),
		rdb:   rdb,
	}
}

func (c *CatalogCache) Get(ctx context.Context) ([]openrouter.ModelInfo, bool) {
	if x, found := c.local.Get(catalogKey); found {
		return x.([]openrouter.ModelInfo), true
	}

	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, catalogKey).Bytes()
		if err == nil {
			var models []openrouter.ModelInfo
			if json.Unmarshal(raw, &models) == nil && len(models) > 0 {
				c.local.Set(catalogKey, models, cache.DefaultExpiration)
				return models, true
			}
		}
	}

	return nil, false
}

func (c *CatalogCache) Set(ctx context.Context, models []openrouter.ModelInfo) {
	c.local.Set(catalogKey, models, cache.DefaultExpiration)

	if c.rdb != nil {
		if raw, err := json.Marshal(models); err == nil {
			c.rdb.Set(ctx, catalogKey, raw, catalogTTL)
		}
	}
}
