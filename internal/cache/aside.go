package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"lattice/internal/middleware"
	"lattice/internal/observability"
)

// Aside returns the value cached under key, or computes it with fetch and
// stores it for ttl. hit reports whether the value came from the cache.
//
// Cache failures never fail the call: a read error or an undecodable payload
// is treated as a miss, and a write error is only logged. Errors from fetch are
// returned as-is and nothing is cached. Concurrent misses each run fetch.
func Aside[T any](ctx context.Context, store Store, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, bool, error) {
	kind := Kind(key)

	if store != nil {
		raw, found, err := store.Get(ctx, key)
		switch {
		case err != nil:
			recordError(ctx, "get", key, err)
		case found:
			var cached T
			uerr := json.Unmarshal(raw, &cached)
			if uerr == nil {
				observability.CacheRequests.WithLabelValues(kind, "hit").Inc()
				return cached, true, nil
			}
			recordError(ctx, "decode", key, uerr)
		}
	}
	observability.CacheRequests.WithLabelValues(kind, "miss").Inc()

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}

	if store != nil {
		payload, merr := json.Marshal(value)
		if merr != nil {
			recordError(ctx, "encode", key, merr)
			return value, false, nil
		}
		if serr := store.Set(ctx, key, payload, ttl); serr != nil {
			recordError(ctx, "set", key, serr)
		}
	}

	return value, false, nil
}

// Invalidate deletes keys. A failure is logged and counted; entries that
// survive it expire with their TTL.
func Invalidate(ctx context.Context, store Store, keys ...string) {
	if store == nil || len(keys) == 0 {
		return
	}
	if err := store.Delete(ctx, keys...); err != nil {
		recordError(ctx, "delete", keys[0], err)
	}
}

func recordError(ctx context.Context, op, key string, err error) {
	observability.CacheErrors.WithLabelValues(op).Inc()
	middleware.Logger.WarnContext(ctx, "cache operation failed, falling back to store",
		slog.String("operation", op),
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}
