package crawler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"preorderimport/internal/model"
)

const (
	DefaultCacheTTL = 24 * time.Hour
	cacheKeyPrefix  = "scrape:"
)

// RedisCache keeps scrape results in Redis so repeated runs over the same
// manufacturer pages do not refetch them.
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func (c *RedisCache) Get(ctx context.Context, pageURL string) (*model.ScrapeResult, bool) {
	val, err := c.Client.Get(ctx, cacheKeyPrefix+pageURL).Result()
	if err != nil {
		return nil, false
	}

	var res model.ScrapeResult
	if err := json.Unmarshal([]byte(val), &res); err != nil {
		return nil, false
	}
	return &res, true
}

func (c *RedisCache) Set(ctx context.Context, pageURL string, res *model.ScrapeResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return c.Client.Set(ctx, cacheKeyPrefix+pageURL, data, ttl).Err()
}
