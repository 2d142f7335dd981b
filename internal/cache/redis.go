// Package cache provides the Redis-backed relationship cache used by the read path.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"lattice/internal/middleware"
	"lattice/internal/observability"

	"github.com/redis/go-redis/v9"
)

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// NewClient builds a Redis client from a URL ("redis://...") or a bare host:port
// and attaches the error-counting hook.
func NewClient(addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		opts = parsed
	}

	c := redis.NewClient(opts)
	c.AddHook(metricsHook{})
	return c, nil
}

// Connect returns a client for addr that has answered a PING within
// pingTimeout, or nil when Redis is misconfigured or unreachable. A nil
// client makes the caller run without cache, rate limits or notifications.
func Connect(ctx context.Context, addr string, pingTimeout time.Duration) *redis.Client {
	c, err := NewClient(addr)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "invalid REDIS_URL, continuing without redis",
			slog.String("addr", addr), slog.String("error", err.Error()))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "redis unreachable, continuing without redis",
			slog.String("addr", addr), slog.String("error", err.Error()))
		_ = c.Close()
		return nil
	}

	middleware.Logger.InfoContext(ctx, "redis connected", slog.String("addr", c.Options().Addr))
	return c
}
