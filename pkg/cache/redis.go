package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by a Store when the key is absent
var ErrMiss = errors.New("cache miss")

// Store is a byte-oriented shared cache
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// RedisClient wraps the Redis client with logging
type RedisClient struct {
	rdb    *redis.Client
	logger ectologger.Logger
}

// NewRedisClient creates a Redis client without connecting
func NewRedisClient(cfg RedisConfig, logger ectologger.Logger) *RedisClient {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	return &RedisClient{rdb: rdb, logger: logger}
}

// Connect pings Redis until it answers or ctx expires
func (c *RedisClient) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", c.rdb.Options().Addr, err)
	}
	c.logger.Infof("Connected to Redis at %s", c.rdb.Options().Addr)
	return nil
}

// Close closes the Redis connection
func (c *RedisClient) Close() error {
	return c.rdb.Close()
}

// Ping checks if Redis is reachable
func (c *RedisClient) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return value, err
}

func (c *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *RedisClient) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}
