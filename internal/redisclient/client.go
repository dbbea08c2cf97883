package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ishanth288/victure-sub004/internal/models"

	"github.com/go-redis/redis/v8"
)

// Client fronts the durable store with derived state only: idempotency-key
// lookups and an inventory read cache. The database stays authoritative for
// every stock mutation.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// SetIdempotencyKey maps an idempotency key to the created entity ID with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, scope, key string, entityID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s:%s", scope, key), entityID, ttl).Err()
}

// GetIdempotencyKey returns the entity ID recorded for an idempotency key,
// or false when the key is unknown to the cache
func (c *Client) GetIdempotencyKey(ctx context.Context, scope, key string) (int64, bool, error) {
	id, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s:%s", scope, key)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// CacheItem stores an inventory item snapshot for read paths
func (c *Client) CacheItem(ctx context.Context, item *models.InventoryItem, ttl time.Duration) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf("inventory:%d", item.ID), data, ttl).Err()
}

// GetCachedItem retrieves a cached inventory item, nil on miss
func (c *Client) GetCachedItem(ctx context.Context, itemID int64) (*models.InventoryItem, error) {
	data, err := c.rdb.Get(ctx, fmt.Sprintf("inventory:%d", itemID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var item models.InventoryItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// InvalidateItem drops a cached inventory item after a stock mutation
func (c *Client) InvalidateItem(ctx context.Context, itemID int64) error {
	return c.rdb.Del(ctx, fmt.Sprintf("inventory:%d", itemID)).Err()
}
