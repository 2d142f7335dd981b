package service

import (
	"context"
	"errors"

	"lattice/internal/cache"
	"lattice/internal/models"
	"lattice/internal/observability"
	"lattice/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

type privacyEntry struct {
	IsPrivate bool `json:"is_private"`
}

type followEntry struct {
	Allowed bool `json:"allowed"`
}

// PrivacyService answers whether a viewer may see an owner's content.
type PrivacyService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
	store   cache.Store
	ttls    cache.TTLs
	gate    CacheGate
}

// NewPrivacyService returns a new PrivacyService. store may be nil.
func NewPrivacyService(users repository.UserRepository, follows repository.FollowRepository, store cache.Store, ttls cache.TTLs) *PrivacyService {
	return &PrivacyService{users: users, follows: follows, store: store, ttls: ttls}
}

// WithCacheGate restricts caching to viewers the gate admits.
func (s *PrivacyService) WithCacheGate(gate CacheGate) *PrivacyService {
	s.gate = gate
	return s
}

// CanView reports whether viewerID may see ownerID's posts and comments.
// Owners always see their own content. A public owner is visible to everyone;
// a private one only to viewers holding an accepted follow edge. An owner that
// does not exist is treated as private.
func (s *PrivacyService) CanView(ctx context.Context, viewerID, ownerID uint) (bool, error) {
	if viewerID == ownerID {
		return true, nil
	}

	span, ctx := observability.NewSpan(ctx, "privacy.CanView")
	defer span.End()
	span.AddAttributes(
		attribute.Int64("privacy.viewer_id", int64(viewerID)),
		attribute.Int64("privacy.owner_id", int64(ownerID)),
	)

	store := s.gate.storeFor(s.store, viewerID)

	owner, _, err := cache.Aside(ctx, store, cache.PrivacyKey(ownerID), s.ttls.Privacy, func(ctx context.Context) (privacyEntry, error) {
		private, err := s.users.IsPrivate(ctx, ownerID)
		if err != nil {
			return privacyEntry{}, err
		}
		return privacyEntry{IsPrivate: private}, nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return false, nil
		}
		span.SetError(err)
		return false, err
	}
	if !owner.IsPrivate {
		return true, nil
	}

	edge, _, err := cache.Aside(ctx, store, cache.FollowKey(viewerID, ownerID), s.ttls.Follow, func(ctx context.Context) (followEntry, error) {
		accepted, err := s.follows.IsAccepted(ctx, viewerID, ownerID)
		return followEntry{Allowed: accepted}, err
	})
	if err != nil {
		span.SetError(err)
		return false, err
	}
	return edge.Allowed, nil
}
