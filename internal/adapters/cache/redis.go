package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/config"
)

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return rdb, nil
}

// ErrMiss is returned by JSON.Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// JSON stores values as JSON documents under a common key prefix.
type JSON struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewJSON(client redis.Cmdable, prefix string, ttl time.Duration) *JSON {
	return &JSON{client: client, prefix: prefix, ttl: ttl}
}

func (c *JSON) Key(id string) string {
	return c.prefix + ":" + id
}

// Get decodes the value under id into dst. A corrupted value is removed and
// reported as ErrMiss.
func (c *JSON) Get(ctx context.Context, id string, dst any) error {
	key := c.Key(id)

	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(val, dst); err != nil {
		c.client.Del(ctx, key)
		return fmt.Errorf("%w: corrupted value at %s", ErrMiss, key)
	}
	return nil
}

func (c *JSON) Set(ctx context.Context, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.Key(id), err)
	}
	if err := c.client.Set(ctx, c.Key(id), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", c.Key(id), err)
	}
	return nil
}

func (c *JSON) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, c.Key(id)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", c.Key(id), err)
	}
	return nil
}
