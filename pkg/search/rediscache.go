package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/partdex/partdex/pkg/catalog"
)

const redisKeyPrefix = "facets:"

// RedisFacetCache is a shared facet-cache backend for multi-instance
// deployments, where per-process caches would each cold-start on the same
// request. TTL expiry is delegated to Redis; the entry bound is delegated
// to the server's maxmemory policy. Redis errors degrade to cache misses,
// never to request failures.
type RedisFacetCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisFacetCache connects to Redis and verifies the connection.
func NewRedisFacetCache(addr, password string, db int, ttl time.Duration) (*RedisFacetCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisFacetCache{client: client, ttl: ttl}, nil
}

// Get fetches and decodes a cached facet payload.
func (c *RedisFacetCache) Get(key string) (*catalog.DynamicFacets, bool) {
	data, err := c.client.Get(context.Background(), redisKeyPrefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	var facets catalog.DynamicFacets
	if err := json.Unmarshal(data, &facets); err != nil {
		return nil, false
	}
	return &facets, true
}

// Put stores a facet payload with the configured TTL.
func (c *RedisFacetCache) Put(key string, facets *catalog.DynamicFacets) {
	data, err := json.Marshal(facets)
	if err != nil {
		return
	}
	c.client.Set(context.Background(), redisKeyPrefix+key, data, c.ttl)
}

// Close releases the Redis connection.
func (c *RedisFacetCache) Close() error {
	return c.client.Close()
}
