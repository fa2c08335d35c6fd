package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrThrottled        = errors.New("request rate limited")
	ErrRedisUnavailable = errors.New("limiter redis unavailable")
)

type Config struct {
	EnableEmailThrottle bool
	EnableIPThrottle    bool
	MaxRequests         int
	Window              time.Duration
}

// RequestThrottle counts requests per (scope, email) and (scope, ip) in fixed
// windows. The first request in a window sets the TTL; requests beyond
// MaxRequests fail until the window lapses.
type RequestThrottle struct {
	redis  redis.UniversalClient
	config Config
}

func NewRequestThrottle(redisClient redis.UniversalClient, cfg Config) *RequestThrottle {
	return &RequestThrottle{
		redis:  redisClient,
		config: cfg,
	}
}

// Check describes the check operation and its observable behavior.
//
// Check may return an error when input validation, dependency calls, or security checks fail.
// Check does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (l *RequestThrottle) Check(ctx context.Context, scope, email, ip string) error {
	if l == nil {
		return nil
	}
	if l.config.EnableEmailThrottle && email != "" {
		if err := l.enforceFixedWindow(ctx, emailKey(scope, email)); err != nil {
			return err
		}
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.enforceFixedWindow(ctx, ipKey(scope, ip)); err != nil {
			return err
		}
	}
	return nil
}

func (l *RequestThrottle) enforceFixedWindow(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if count > int64(l.config.MaxRequests) {
		return ErrThrottled
	}

	return nil
}

func emailKey(scope, email string) string {
	return "thr:" + scope + ":e:" + email
}

func ipKey(scope, ip string) string {
	return "thr:" + scope + ":ip:" + ip
}
