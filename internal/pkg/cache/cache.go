package cache

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/storage/redis"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/CourseCheckout/internal/pkg/config"
)

const (
	// cacheDB holds gateway tokens, limiterDB the rate limiter counters.
	cacheDB   = 0
	limiterDB = 1
)

// Cache is a small key/value cache backed by Redis (or Dragonfly).
type Cache struct {
	client *goredis.Client
}

// New connects to the configured cache server. A failed ping is logged, not
// fatal: callers treat cache errors as misses.
func New(ctx context.Context, cfg config.CacheConfig) *Cache {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cacheDB,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Warnf("[Cache] Could not connect to cache at %s: %v", cfg.Addr(), err)
	} else {
		log.Infof("[Cache] Connected to cache at %s: %s", cfg.Addr(), pong)
	}

	return &Cache{client: client}
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client) *Cache {
	return &Cache{client: client}
}

// Client returns the Redis client instance
func (c *Cache) Client() *goredis.Client {
	return c.client
}

// Get returns "" and no error on a miss.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	return val, err
}

// Set stores a value in the cache with the given key and expiration time
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes a value from the cache by key
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// NewLimiterStorage returns fiber storage for the rate limiter so counters are
// shared across instances. It uses its own database next to the token cache.
func NewLimiterStorage(cfg config.CacheConfig) fiber.Storage {
	return redis.New(redis.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		Database: limiterDB,
		Reset:    false,
	})
}
