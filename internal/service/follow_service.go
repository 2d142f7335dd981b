package service

import (
	"context"
	"log/slog"

	"lattice/internal/cache"
	"lattice/internal/middleware"
	"lattice/internal/models"
	"lattice/internal/notifications"
	"lattice/internal/observability"
	"lattice/internal/repository"

	"github.com/samber/lo"
)

// FollowNotifier delivers follow events to the affected user.
type FollowNotifier interface {
	NotifyFollow(ctx context.Context, recipientID uint, eventType string, p notifications.FollowPayload) error
}

// FollowService manages the follow graph and keeps the relationship cache
// consistent with it.
type FollowService struct {
	follows  repository.FollowRepository
	users    repository.UserRepository
	store    cache.Store
	notifier FollowNotifier
}

// NewFollowService returns a new FollowService. store and notifier may be nil.
func NewFollowService(follows repository.FollowRepository, users repository.UserRepository, store cache.Store, notifier FollowNotifier) *FollowService {
	return &FollowService{
		follows:  follows,
		users:    users,
		store:    store,
		notifier: notifier,
	}
}

// Follow creates an edge from followerID to followeeID: accepted for public
// followees, pending for private ones. Following an existing edge is a no-op
// that reports the current status with Created=false.
func (s *FollowService) Follow(ctx context.Context, followerID, followeeID uint) (*models.FollowResult, error) {
	if followerID == followeeID {
		return nil, models.NewValidationError("Cannot follow yourself")
	}

	followee, err := s.users.GetByID(ctx, followeeID)
	if err != nil {
		return nil, err
	}

	status := models.FollowStatusAccepted
	if followee.IsPrivate {
		status = models.FollowStatusPending
	}

	created, err := s.follows.InsertIfAbsent(ctx, &models.Follow{
		FollowerID: followerID,
		FolloweeID: followeeID,
		Status:     status,
	})
	if err != nil {
		return nil, err
	}

	if !created {
		existing, err := s.follows.Get(ctx, followerID, followeeID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			status = existing.Status
		}
		return &models.FollowResult{Status: status, Created: false}, nil
	}

	s.invalidateEdge(ctx, followerID, followeeID)

	event := notifications.EventFollowed
	transition := "followed"
	if status == models.FollowStatusPending {
		event = notifications.EventFollowRequested
		transition = "requested"
	}
	observability.FollowTransitions.WithLabelValues(transition).Inc()
	s.notify(ctx, followeeID, event, notifications.FollowPayload{
		FollowerID:       followerID,
		FolloweeID:       followeeID,
		FollowerUsername: s.username(ctx, followerID),
		Status:           string(status),
	})

	return &models.FollowResult{Status: status, Created: true}, nil
}

// AcceptFollow approves followerID's pending request to followeeID.
func (s *FollowService) AcceptFollow(ctx context.Context, followeeID, followerID uint) (*models.Follow, error) {
	accepted, err := s.follows.Accept(ctx, followerID, followeeID)
	if err != nil {
		return nil, err
	}
	if !accepted {
		return nil, models.NewNotFoundError("Follow request", followerID)
	}

	s.invalidateEdge(ctx, followerID, followeeID)
	observability.FollowTransitions.WithLabelValues("accepted").Inc()
	s.notify(ctx, followerID, notifications.EventFollowAccepted, notifications.FollowPayload{
		FollowerID: followerID,
		FolloweeID: followeeID,
		Status:     string(models.FollowStatusAccepted),
	})

	edge, err := s.follows.Get(ctx, followerID, followeeID)
	if err != nil {
		return nil, err
	}
	if edge == nil {
		// Removed again between the update and this read.
		return nil, models.NewNotFoundError("Follow request", followerID)
	}
	return edge, nil
}

// RejectFollow discards followerID's pending request to followeeID.
func (s *FollowService) RejectFollow(ctx context.Context, followeeID, followerID uint) error {
	removed, err := s.follows.DeletePending(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewNotFoundError("Follow request", followerID)
	}

	s.invalidateEdge(ctx, followerID, followeeID)
	observability.FollowTransitions.WithLabelValues("rejected").Inc()
	return nil
}

// Unfollow removes followerID's edge to followeeID, pending or accepted.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	if followerID == followeeID {
		return models.NewValidationError("Cannot unfollow yourself")
	}

	removed, err := s.follows.Delete(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewNotFoundError("Follow", followeeID)
	}

	s.invalidateEdge(ctx, followerID, followeeID)
	observability.FollowTransitions.WithLabelValues("unfollowed").Inc()
	return nil
}

// RemoveFollower lets followeeID drop an accepted follower.
func (s *FollowService) RemoveFollower(ctx context.Context, followeeID, followerID uint) error {
	edge, err := s.follows.Get(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if edge == nil || edge.Status != models.FollowStatusAccepted {
		return models.NewNotFoundError("Follower", followerID)
	}

	removed, err := s.follows.Delete(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewNotFoundError("Follower", followerID)
	}

	s.invalidateEdge(ctx, followerID, followeeID)
	observability.FollowTransitions.WithLabelValues("removed").Inc()
	return nil
}

// Following lists the accounts userID follows.
func (s *FollowService) Following(ctx context.Context, userID uint) ([]models.FollowEdge, error) {
	edges, err := s.follows.Following(ctx, userID)
	if err != nil {
		return nil, err
	}
	return lo.Map(edges, func(f models.Follow, _ int) models.FollowEdge {
		return toEdge(f, f.Followee)
	}), nil
}

// Followers lists the accepted followers of userID.
func (s *FollowService) Followers(ctx context.Context, userID uint) ([]models.FollowEdge, error) {
	edges, err := s.follows.Followers(ctx, userID)
	if err != nil {
		return nil, err
	}
	return lo.Map(edges, func(f models.Follow, _ int) models.FollowEdge {
		return toEdge(f, f.Follower)
	}), nil
}

// PendingRequests lists requests awaiting userID's approval.
func (s *FollowService) PendingRequests(ctx context.Context, userID uint) ([]models.FollowEdge, error) {
	edges, err := s.follows.PendingRequests(ctx, userID)
	if err != nil {
		return nil, err
	}
	return lo.Map(edges, func(f models.Follow, _ int) models.FollowEdge {
		return toEdge(f, f.Follower)
	}), nil
}

// Status reports the edges in both directions between viewerID and targetID.
func (s *FollowService) Status(ctx context.Context, viewerID, targetID uint) (*models.RelationshipStatus, error) {
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return nil, err
	}

	out, err := s.follows.Get(ctx, viewerID, targetID)
	if err != nil {
		return nil, err
	}
	in, err := s.follows.Get(ctx, targetID, viewerID)
	if err != nil {
		return nil, err
	}

	return &models.RelationshipStatus{
		UserID:     targetID,
		Following:  edgeStatus(out),
		FollowedBy: edgeStatus(in),
	}, nil
}

// invalidateEdge drops the cached edge and the follower's first feed pages.
func (s *FollowService) invalidateEdge(ctx context.Context, followerID, followeeID uint) {
	keys := append([]string{cache.FollowKey(followerID, followeeID)}, cache.FeedFirstPageKeys(followerID)...)
	cache.Invalidate(ctx, s.store, keys...)
}

func (s *FollowService) notify(ctx context.Context, recipientID uint, eventType string, p notifications.FollowPayload) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyFollow(ctx, recipientID, eventType, p); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish follow event",
			slog.String("event_type", eventType),
			slog.Uint64("recipient_id", uint64(recipientID)),
			slog.String("error", err.Error()),
		)
	}
}

func (s *FollowService) username(ctx context.Context, userID uint) string {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return ""
	}
	return u.Username
}

func toEdge(f models.Follow, counterpart *models.User) models.FollowEdge {
	edge := models.FollowEdge{
		FollowerID: f.FollowerID,
		FolloweeID: f.FolloweeID,
		Status:     f.Status,
		CreatedAt:  f.CreatedAt,
	}
	if counterpart != nil {
		edge.User = counterpart.Summary()
	}
	return edge
}

func edgeStatus(f *models.Follow) string {
	if f == nil {
		return models.RelationshipNone
	}
	return string(f.Status)
}
