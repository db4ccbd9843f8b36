package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/config"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	_ = godotenv.Load("../../../.env")

	rdb, err := NewRedisClient(context.Background(), config.RedisConfig{
		Addr:     config.GetEnv("REDIS_ADDR", "localhost:6379"),
		Password: config.GetEnv("REDIS_PASSWORD", "secret_redis_pass_local"),
		DB:       1,
	})
	if err != nil {
		t.Skipf("Skipping Redis integration test: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })

	require.NoError(t, rdb.FlushDB(context.Background()).Err(), "Failed to flush test DB")
	return rdb
}

func TestRedisClient_Integration(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()

	t.Run("Connection Ping", func(t *testing.T) {
		pong, err := rdb.Ping(ctx).Result()
		assert.NoError(t, err)
		assert.Equal(t, "PONG", pong)
	})

	t.Run("Expire Check", func(t *testing.T) {
		key := "test_expire"
		require.NoError(t, rdb.Set(ctx, key, "expire_me", 1*time.Second).Err())

		time.Sleep(1100 * time.Millisecond)

		_, err := rdb.Get(ctx, key).Result()
		assert.ErrorIs(t, err, redis.Nil)
	})

	t.Run("Concurrent Access", func(t *testing.T) {
		concurrency := 20
		done := make(chan bool)

		for i := 0; i < concurrency; i++ {
			go func(id int) {
				key := fmt.Sprintf("concurrent_key_%d", id)
				assert.NoError(t, rdb.Set(ctx, key, "val", 10*time.Second).Err())

				_, err := rdb.Get(ctx, key).Result()
				assert.NoError(t, err)

				done <- true
			}(i)
		}

		for i := 0; i < concurrency; i++ {
			<-done
		}
	})
}

func TestJSONCache_Integration(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	c := NewJSON(rdb, "test", time.Minute)

	type payload struct {
		Name string `json:"name"`
		Days []int  `json:"days"`
	}

	t.Run("Miss", func(t *testing.T) {
		var p payload
		assert.ErrorIs(t, c.Get(ctx, "absent", &p), ErrMiss)
	})

	t.Run("Round trip", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "p1", payload{Name: "gym", Days: []int{1, 3, 5}}))

		var got payload
		require.NoError(t, c.Get(ctx, "p1", &got))
		assert.Equal(t, payload{Name: "gym", Days: []int{1, 3, 5}}, got)

		ttl, err := rdb.TTL(ctx, c.Key("p1")).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))

		require.NoError(t, c.Delete(ctx, "p1"))
		assert.ErrorIs(t, c.Get(ctx, "p1", &got), ErrMiss)
	})

	t.Run("Corrupted value is dropped", func(t *testing.T) {
		require.NoError(t, rdb.Set(ctx, c.Key("bad"), "{not json", time.Minute).Err())

		var got payload
		assert.ErrorIs(t, c.Get(ctx, "bad", &got), ErrMiss)

		exists, err := rdb.Exists(ctx, c.Key("bad")).Result()
		require.NoError(t, err)
		assert.Zero(t, exists)
	})
}
