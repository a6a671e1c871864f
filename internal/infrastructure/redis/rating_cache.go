// Package redis provides the read-through cache for per-user rating aggregates.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/collabmarket/collab-services/api/internal/marketplace/application"
	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

const keyPrefix = "rating:"

// setIfNotOlder writes sum/count unless the cached count is already higher. Counts
// only grow between rebuilds, so a higher count is always the newer value.
var setIfNotOlder = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'count')
if current and tonumber(current) > tonumber(ARGV[2]) then
  return 0
end
redis.call('HSET', KEYS[1], 'sum', ARGV[1], 'count', ARGV[2])
if tonumber(ARGV[3]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// RatingCache stores each aggregate as a hash with sum and count fields under
// rating:{role}:{uid}.
type RatingCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ application.RatingCache = (*RatingCache)(nil)

// NewClient parses redisURL and verifies the connection.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// NewRatingCache wraps client. A non-positive ttl keeps entries until invalidated.
func NewRatingCache(client *redis.Client, ttl time.Duration) *RatingCache {
	return &RatingCache{client: client, ttl: ttl}
}

func (c *RatingCache) key(role domain.Role, userID string) string {
	return keyPrefix + domain.RatingKey(role, userID)
}

func (c *RatingCache) Get(ctx context.Context, role domain.Role, userID string) (domain.RatingAggregate, bool, error) {
	values, err := c.client.HGetAll(ctx, c.key(role, userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.RatingAggregate{}, false, nil
		}
		return domain.RatingAggregate{}, false, fmt.Errorf("read rating cache: %w", err)
	}
	if len(values) == 0 {
		return domain.RatingAggregate{}, false, nil
	}

	sum, err := strconv.Atoi(values["sum"])
	if err != nil {
		return domain.RatingAggregate{}, false, fmt.Errorf("decode cached sum for %s: %w", userID, err)
	}
	count, err := strconv.Atoi(values["count"])
	if err != nil {
		return domain.RatingAggregate{}, false, fmt.Errorf("decode cached count for %s: %w", userID, err)
	}
	return domain.RatingAggregate{UserID: userID, Role: role, Sum: sum, Count: count}, true, nil
}

// Set keeps whichever of the cached and the given aggregate counts more reviews.
func (c *RatingCache) Set(ctx context.Context, aggregate domain.RatingAggregate) error {
	key := c.key(aggregate.Role, aggregate.UserID)
	var ttl int64
	if c.ttl > 0 {
		ttl = c.ttl.Milliseconds()
	}
	if err := setIfNotOlder.Run(ctx, c.client, []string{key}, aggregate.Sum, aggregate.Count, ttl).Err(); err != nil {
		return fmt.Errorf("write rating cache: %w", err)
	}
	return nil
}

func (c *RatingCache) Invalidate(ctx context.Context, role domain.Role, userID string) error {
	if err := c.client.Del(ctx, c.key(role, userID)).Err(); err != nil {
		return fmt.Errorf("invalidate rating cache: %w", err)
	}
	return nil
}
