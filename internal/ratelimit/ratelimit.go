// Package ratelimit counts requests per client and rule in fixed Redis windows.
package ratelimit

//go:generate mockgen -package mocks -destination mocks/mock_service.go github.com/ethpandaops/topicnav/internal/ratelimit Service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/topicnav/internal/config"
	"github.com/ethpandaops/topicnav/internal/redis"
)

// Compile-time interface compliance check.
var _ Service = (*service)(nil)

const keyPrefix = "topicnav:ratelimit:"

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Service decides whether a client may perform another request under a rule.
type Service interface {
	Start(ctx context.Context) error
	Stop() error
	// Allow counts one request of ip against rule. A non-nil error means the
	// counter could not be read; the decision then follows the failure mode.
	Allow(ctx context.Context, ip, rule string, limit int, window time.Duration) (Decision, error)
}

type service struct {
	log         logrus.FieldLogger
	redis       redis.Client
	failureMode string
	now         func() time.Time
}

// NewService creates a rate limiter backed by redisClient.
func NewService(log logrus.FieldLogger, redisClient redis.Client, failureMode string) Service {
	return &service{
		log:         log.WithField("component", "ratelimit"),
		redis:       redisClient,
		failureMode: failureMode,
		now:         time.Now,
	}
}

func (s *service) Start(_ context.Context) error {
	s.log.WithField("failure_mode", s.failureMode).Info("Rate limiter started")

	return nil
}

func (s *service) Stop() error {
	s.log.Info("Rate limiter stopped")

	return nil
}

// Allow increments the request counter of (rule, ip). The first request of a
// window sets the key expiry, so the window restarts once the key expires.
func (s *service) Allow(
	ctx context.Context,
	ip, rule string,
	limit int,
	window time.Duration,
) (Decision, error) {
	key := keyPrefix + rule + ":" + ip
	rdb := s.redis.GetClient()

	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return s.unavailable(limit, fmt.Errorf("increment %s: %w", key, err))
	}

	if count == 1 {
		if err := rdb.PExpire(ctx, key, window).Err(); err != nil {
			s.log.WithError(err).WithField("key", key).Warn("Failed to set rate limit expiry")
		}
	}

	ttl, err := rdb.PTTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		// A counter without expiry would never reset.
		if ttl == -1 {
			_ = rdb.PExpire(ctx, key, window).Err()
		}

		ttl = window
	}

	decision := Decision{
		Allowed:   count <= int64(limit),
		Remaining: max(limit-int(count), 0),
		ResetAt:   s.now().Add(ttl),
	}

	return decision, nil
}

func (s *service) unavailable(limit int, err error) (Decision, error) {
	if s.failureMode == config.FailClosed {
		return Decision{}, fmt.Errorf("rate limiter unavailable: %w", err)
	}

	return Decision{Allowed: true, Remaining: limit}, fmt.Errorf("rate limiter unavailable: %w", err)
}
