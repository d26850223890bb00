package bounds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/topicnav/internal/redis"
)

// Compile-time interface compliance check.
var _ Cache = (*RedisCache)(nil)

const (
	redisKeyPrefix      = "topicnav:bounds:"
	defaultMergeRetries = 5
)

// ErrCacheConflict is returned when a merge keeps losing optimistic
// transactions to concurrent writers.
var ErrCacheConflict = errors.New("boundary cache merge conflict")

// RedisCache stores boundaries as JSON documents in Redis, one key per topic,
// scoped to a namespace so several navigation sessions can share a database.
type RedisCache struct {
	log       logrus.FieldLogger
	cfg       Config
	redis     redis.Client
	namespace string
}

// NewRedisCache creates a Redis-backed cache for namespace.
func NewRedisCache(
	log logrus.FieldLogger,
	cfg Config,
	redisClient redis.Client,
	namespace string,
) *RedisCache {
	if cfg.MergeRetries <= 0 {
		cfg.MergeRetries = defaultMergeRetries
	}

	return &RedisCache{
		log: log.WithFields(logrus.Fields{
			"component": "bounds_redis",
			"namespace": namespace,
		}),
		cfg:       cfg,
		redis:     redisClient,
		namespace: namespace,
	}
}

func (c *RedisCache) prefix() string {
	return redisKeyPrefix + c.namespace + ":"
}

func (c *RedisCache) key(topic string) string {
	return c.prefix() + topic
}

// Get reads the boundaries of topic. Missing or unreadable entries are
// reported as not cached.
func (c *RedisCache) Get(ctx context.Context, topic string) (TopicBoundaries, bool) {
	data, err := c.redis.Get(ctx, c.key(topic))
	if err != nil {
		if !errors.Is(err, redis.ErrKeyNotFound) {
			c.log.WithError(err).WithField("topic", topic).Debug("Failed to get boundaries from Redis")
		}

		return TopicBoundaries{}, false
	}

	var b TopicBoundaries
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		c.log.WithError(err).WithField("topic", topic).Error("Failed to unmarshal boundaries")

		return TopicBoundaries{}, false
	}

	return b, true
}

// Merge reads, merges and writes the entry inside a WATCH transaction so a
// concurrent merge can never clear a boundary written in between.
func (c *RedisCache) Merge(ctx context.Context, topic string, partial TopicBoundaries) error {
	if partial.IsEmpty() {
		return nil
	}

	key := c.key(topic)

	txf := func(tx *goredis.Tx) error {
		var existing TopicBoundaries

		data, err := tx.Get(ctx, key).Result()

		switch {
		case errors.Is(err, goredis.Nil):
		case err != nil:
			return fmt.Errorf("read boundaries: %w", err)
		default:
			if err := json.Unmarshal([]byte(data), &existing); err != nil {
				return fmt.Errorf("decode boundaries: %w", err)
			}
		}

		merged := partial.MergeInto(existing)

		encoded, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("encode boundaries: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, string(encoded), c.cfg.TTL)

			return nil
		})

		return err
	}

	for attempt := 1; attempt <= c.cfg.MergeRetries; attempt++ {
		err := c.redis.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}

		if !errors.Is(err, goredis.TxFailedErr) {
			return fmt.Errorf("merge boundaries for %s: %w", topic, err)
		}

		c.log.WithFields(logrus.Fields{
			"topic":   topic,
			"attempt": attempt,
		}).Debug("Boundary merge lost a race, retrying")
	}

	return fmt.Errorf("%w: %s", ErrCacheConflict, topic)
}

// Invalidate deletes every entry of the namespace.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	deleted, err := c.redis.DelPrefix(ctx, c.prefix())
	if err != nil {
		return fmt.Errorf("invalidate boundaries: %w", err)
	}

	c.log.WithField("deleted", deleted).Debug("Invalidated boundary cache")

	return nil
}
