package redis

//go:generate mockgen -package mocks -destination mocks/mock_client.go github.com/ethpandaops/topicnav/internal/redis Client

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Compile-time interface compliance check.
var _ Client = (*client)(nil)

// ErrKeyNotFound is returned by Get when the key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// scanBatch is the COUNT hint used when walking keys with SCAN.
const scanBatch = 256

// Client provides the Redis operations used by the boundary cache.
type Client interface {
	Start(ctx context.Context) error
	Stop() error
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	// DelPrefix deletes every key starting with prefix and returns how many were removed.
	DelPrefix(ctx context.Context, prefix string) (int, error)
	// Watch runs fn in an optimistic transaction guarded by WATCH on keys.
	Watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error
	GetClient() *redis.Client
}

type client struct {
	log    logrus.FieldLogger
	cfg    Config
	client *redis.Client
}

// NewClient creates a new Redis client.
func NewClient(log logrus.FieldLogger, cfg Config) Client {
	return &client{
		log: log.WithField("component", "redis"),
		cfg: cfg,
	}
}

// Start initializes the Redis connection pool and verifies connectivity.
func (c *client) Start(ctx context.Context) error {
	c.log.WithFields(logrus.Fields{
		"address": c.cfg.Address,
		"db":      c.cfg.DB,
	}).Info("Initializing Redis client")

	c.client = redis.NewClient(&redis.Options{
		Addr:         c.cfg.Address,
		Password:     c.cfg.Password,
		DB:           c.cfg.DB,
		DialTimeout:  c.cfg.DialTimeout,
		ReadTimeout:  c.cfg.ReadTimeout,
		WriteTimeout: c.cfg.WriteTimeout,
		PoolSize:     c.cfg.PoolSize,
	})

	if err := c.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c.log.Info("Redis client started successfully")

	return nil
}

// Stop closes the Redis connection pool.
func (c *client) Stop() error {
	c.log.Info("Stopping Redis client")

	if c.client != nil {
		return c.client.Close()
	}

	return nil
}

// Ping verifies Redis connectivity.
func (c *client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get retrieves a value by key. A missing key yields ErrKeyNotFound.
func (c *client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	return val, err
}

// DelPrefix walks the keyspace with SCAN rather than KEYS so large databases
// are not blocked.
func (c *client) DelPrefix(ctx context.Context, prefix string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)

	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return deleted, fmt.Errorf("scan %s*: %w", prefix, err)
		}

		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("delete keys: %w", err)
			}

			deleted += int(n)
		}

		if next == 0 {
			break
		}

		cursor = next
	}

	c.log.WithFields(logrus.Fields{
		"prefix":  prefix,
		"deleted": deleted,
	}).Debug("Deleted keys by prefix")

	return deleted, nil
}

// Watch runs fn inside WATCH keys. fn is expected to queue its writes with
// tx.TxPipelined; a concurrent write to a watched key fails the transaction
// with redis.TxFailedErr.
func (c *client) Watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	return c.client.Watch(ctx, fn, keys...)
}

// GetClient returns the underlying go-redis client for advanced operations.
func (c *client) GetClient() *redis.Client {
	return c.client
}
