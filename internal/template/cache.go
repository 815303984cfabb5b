package template

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glamyouup/mailflow/internal/domain"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "mailflow:template:"

// Cache keeps active templates in Redis with a TTL so the hot path does not
// hit Postgres on every delivery. A miss is never fatal.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, templateType string) (*domain.Template, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	raw, err := c.client.Get(ctx, cacheKeyPrefix+templateType).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read template cache: %w", err)
	}

	var tmpl domain.Template
	if err := json.Unmarshal(raw, &tmpl); err != nil {
		return nil, fmt.Errorf("failed to decode cached template: %w", err)
	}
	return &tmpl, nil
}

func (c *Cache) Set(ctx context.Context, tmpl *domain.Template) error {
	if c == nil || c.client == nil || tmpl == nil {
		return nil
	}

	raw, err := json.Marshal(tmpl)
	if err != nil {
		return fmt.Errorf("failed to encode template for cache: %w", err)
	}

	if err := c.client.Set(ctx, cacheKeyPrefix+tmpl.Type, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write template cache: %w", err)
	}
	return nil
}
