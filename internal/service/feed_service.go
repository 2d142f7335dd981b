package service

import (
	"context"
	"time"

	"lattice/internal/cache"
	"lattice/internal/cursor"
	"lattice/internal/models"
	"lattice/internal/observability"
	"lattice/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// FeedService assembles a viewer's home feed.
type FeedService struct {
	feed  repository.FeedRepository
	store cache.Store
	ttl   time.Duration
	gate  CacheGate
}

// NewFeedService returns a new FeedService. store may be nil.
func NewFeedService(feed repository.FeedRepository, store cache.Store, ttl time.Duration) *FeedService {
	if ttl <= 0 {
		ttl = cache.FeedTTL
	}
	return &FeedService{feed: feed, store: store, ttl: ttl}
}

// WithCacheGate restricts caching to viewers the gate admits.
func (s *FeedService) WithCacheGate(gate CacheGate) *FeedService {
	s.gate = gate
	return s
}

// GetFeed returns one page of posts by accounts viewerID follows with an
// accepted edge, newest first. hit reports whether the page came from cache.
func (s *FeedService) GetFeed(ctx context.Context, viewerID uint, limit int, token string) (*models.FeedPage, bool, error) {
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, false, err
	}
	before, err := decodeCursor(token)
	if err != nil {
		return nil, false, err
	}

	start := time.Now()
	span, ctx := observability.NewSpan(ctx, "feed.GetFeed")
	defer span.End()
	span.AddAttributes(
		attribute.Int64("feed.viewer_id", int64(viewerID)),
		attribute.Int("feed.limit", limit),
	)

	key := cache.FeedKey(viewerID, limit, token)
	page, hit, err := cache.Aside(ctx, s.gate.storeFor(s.store, viewerID), key, s.ttl, func(ctx context.Context) (models.FeedPage, error) {
		rows, err := s.feed.ListForViewer(ctx, viewerID, before, limit+1)
		if err != nil {
			return models.FeedPage{}, err
		}
		hasNext := len(rows) > limit
		if hasNext {
			rows = rows[:limit]
		}
		page := models.FeedPage{Posts: rows}
		if page.Posts == nil {
			page.Posts = []models.FeedPost{}
		}
		if len(rows) > 0 {
			last := rows[len(rows)-1]
			page.NextCursor = cursor.Next(hasNext, cursor.Position{CreatedAt: last.CreatedAt, ID: last.ID})
		}
		return page, nil
	})
	if err != nil {
		span.SetError(err)
		return nil, false, err
	}

	span.AddAttributes(attribute.Bool("feed.cache_hit", hit))
	observability.FeedAssemblyLatency.WithLabelValues(observability.CacheResult(hit)).Observe(time.Since(start).Seconds())
	return &page, hit, nil
}
