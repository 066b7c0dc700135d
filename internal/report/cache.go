package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const cacheKeyPrefix = "report:event:"

// Cache keeps serialized report responses in Redis. Reports are rebuilt on
// every ingestion anyway, so entries carry a short TTL and are dropped
// eagerly when attendance data changes. A nil client disables caching.
type Cache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{Client: client, TTL: ttl}
}

func cacheKey(eventID int64) string {
	return fmt.Sprintf("%s%d", cacheKeyPrefix, eventID)
}

// Get returns the cached report for an event, if present and parseable.
func (c *Cache) Get(ctx context.Context, eventID int64) (*Response, bool) {
	if c == nil || c.Client == nil {
		return nil, false
	}

	payload, err := c.Client.Get(ctx, cacheKey(eventID)).Bytes()
	if err != nil {
		return nil, false
	}

	var response Response
	if err := json.Unmarshal(payload, &response); err != nil {
		return nil, false
	}
	return &response, true
}

// Set stores the report with the configured TTL.
func (c *Cache) Set(ctx context.Context, eventID int64, response *Response) error {
	if c == nil || c.Client == nil {
		return nil
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return c.Client.Set(ctx, cacheKey(eventID), payload, c.TTL).Err()
}

// InvalidateEvent drops the cached report for an event.
func (c *Cache) InvalidateEvent(ctx context.Context, eventID int64) error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Del(ctx, cacheKey(eventID)).Err()
}
