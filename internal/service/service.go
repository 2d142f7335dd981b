// Package service holds the business logic behind the HTTP handlers.
package service

import (
	"lattice/internal/cache"
	"lattice/internal/cursor"
	"lattice/internal/models"
)

// CacheGate decides per viewer whether a cache is consulted.
// A nil gate always allows caching.
type CacheGate func(viewerID uint) bool

func (g CacheGate) storeFor(store cache.Store, viewerID uint) cache.Store {
	if g != nil && !g(viewerID) {
		return nil
	}
	return store
}

// Page sizes for profile posts, comments and replies.
const (
	MinPageLimit     = cache.MinFeedLimit
	MaxPageLimit     = cache.MaxFeedLimit
	DefaultPageLimit = cache.DefaultFeedLimit
)

// normalizeLimit applies the default to zero and rejects anything outside
// [MinPageLimit, MaxPageLimit].
func normalizeLimit(limit int) (int, error) {
	if limit == 0 {
		return DefaultPageLimit, nil
	}
	if limit < MinPageLimit || limit > MaxPageLimit {
		return 0, models.NewValidationError("limit must be between 5 and 20").
			WithDetails(map[string]int{"min": MinPageLimit, "max": MaxPageLimit})
	}
	return limit, nil
}

// decodeCursor returns nil for an empty token.
func decodeCursor(token string) (*cursor.Position, error) {
	if token == "" {
		return nil, nil
	}
	pos, err := cursor.Decode(token)
	if err != nil {
		return nil, models.NewValidationError("Invalid cursor")
	}
	return &pos, nil
}
