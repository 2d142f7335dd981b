package service

import (
	"context"
	"testing"

	"lattice/internal/cache"
	"lattice/internal/models"
	"lattice/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type followFixture struct {
	alice, bob, carol *models.User
	follows           *memoryFollowRepo
	users             *userRepoStub
	notifier          *notifierStub
	svc               *FollowService
}

func newFollowFixture(store cache.Store) *followFixture {
	f := &followFixture{
		alice: &models.User{ID: 1, Username: "alice_1"},
		bob:   &models.User{ID: 2, Username: "bobby_1", IsPrivate: true},
		carol: &models.User{ID: 3, Username: "carol_1"},
	}
	f.follows = newMemoryFollowRepo(f.alice, f.bob, f.carol)
	f.users = usersByID(f.alice, f.bob, f.carol)
	f.notifier = &notifierStub{}
	f.svc = NewFollowService(f.follows, f.users, store, f.notifier)
	return f
}

func TestFollowService_Follow(t *testing.T) {
	ctx := context.Background()

	t.Run("self follow is rejected", func(t *testing.T) {
		f := newFollowFixture(nil)
		_, err := f.svc.Follow(ctx, 1, 1)
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
		assert.Empty(t, f.follows.edges)
	})

	t.Run("missing followee", func(t *testing.T) {
		f := newFollowFixture(nil)
		_, err := f.svc.Follow(ctx, 1, 99)
		assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	})

	t.Run("public followee is accepted immediately", func(t *testing.T) {
		f := newFollowFixture(nil)
		res, err := f.svc.Follow(ctx, 1, 3)
		require.NoError(t, err)
		assert.Equal(t, models.FollowStatusAccepted, res.Status)
		assert.True(t, res.Created)

		require.Len(t, f.notifier.events, 1)
		assert.Equal(t, notifications.EventFollowed, f.notifier.events[0].eventType)
		assert.Equal(t, uint(3), f.notifier.events[0].recipient)
		assert.Equal(t, "alice_1", f.notifier.events[0].payload.FollowerUsername)
	})

	t.Run("private followee gets a pending request", func(t *testing.T) {
		f := newFollowFixture(nil)
		res, err := f.svc.Follow(ctx, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, models.FollowStatusPending, res.Status)
		require.Len(t, f.notifier.events, 1)
		assert.Equal(t, notifications.EventFollowRequested, f.notifier.events[0].eventType)
	})

	t.Run("second follow is a no-op", func(t *testing.T) {
		f := newFollowFixture(nil)
		_, err := f.svc.Follow(ctx, 1, 2)
		require.NoError(t, err)

		res, err := f.svc.Follow(ctx, 1, 2)
		require.NoError(t, err)
		assert.False(t, res.Created)
		assert.Equal(t, models.FollowStatusPending, res.Status)
		assert.Len(t, f.follows.edges, 1)
		assert.Len(t, f.notifier.events, 1)
	})
}

func TestFollowService_AcceptFlipsCanView(t *testing.T) {
	store, mr := setupStore(t)
	f := newFollowFixture(store)
	privacy := NewPrivacyService(f.users, f.follows, store, cache.DefaultTTLs())
	ctx := context.Background()

	res, err := f.svc.Follow(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, models.FollowStatusPending, res.Status)

	ok, err := privacy.CanView(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, ok)
	require.True(t, mr.Exists(cache.FollowKey(1, 2)), "denial is cached")

	edge, err := f.svc.AcceptFollow(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, models.FollowStatusAccepted, edge.Status)
	assert.False(t, mr.Exists(cache.FollowKey(1, 2)), "accept drops the cached edge")

	ok, err = privacy.CanView(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	last := f.notifier.events[len(f.notifier.events)-1]
	assert.Equal(t, notifications.EventFollowAccepted, last.eventType)
	assert.Equal(t, uint(1), last.recipient)
}

func TestFollowService_AcceptMissingOrAccepted(t *testing.T) {
	f := newFollowFixture(nil)
	ctx := context.Background()

	_, err := f.svc.AcceptFollow(ctx, 2, 1)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

	_, err = f.svc.Follow(ctx, 1, 3)
	require.NoError(t, err)
	_, err = f.svc.AcceptFollow(ctx, 3, 1)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err), "already accepted")
}

func TestFollowService_RejectAndUnfollow(t *testing.T) {
	store, mr := setupStore(t)
	f := newFollowFixture(store)
	ctx := context.Background()

	_, err := f.svc.Follow(ctx, 1, 2)
	require.NoError(t, err)
	require.NoError(t, f.svc.RejectFollow(ctx, 2, 1))
	assert.Empty(t, f.follows.edges)

	err = f.svc.RejectFollow(ctx, 2, 1)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

	_, err = f.svc.Follow(ctx, 1, 3)
	require.NoError(t, err)
	require.NoError(t, mr.Set(cache.FeedKey(1, 10, ""), "{}"))

	require.NoError(t, f.svc.Unfollow(ctx, 1, 3))
	assert.False(t, mr.Exists(cache.FeedKey(1, 10, "")), "unfollow drops the follower's first feed page")

	err = f.svc.Unfollow(ctx, 1, 3)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestFollowService_RemoveFollower(t *testing.T) {
	f := newFollowFixture(nil)
	ctx := context.Background()

	_, err := f.svc.Follow(ctx, 1, 2)
	require.NoError(t, err)

	err = f.svc.RemoveFollower(ctx, 2, 1)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err), "pending requests are rejected, not removed")

	_, err = f.svc.AcceptFollow(ctx, 2, 1)
	require.NoError(t, err)
	require.NoError(t, f.svc.RemoveFollower(ctx, 2, 1))
	assert.Empty(t, f.follows.edges)
}

func TestFollowService_ReadModels(t *testing.T) {
	f := newFollowFixture(nil)
	ctx := context.Background()

	_, err := f.svc.Follow(ctx, 1, 3)
	require.NoError(t, err)
	_, err = f.svc.Follow(ctx, 1, 2)
	require.NoError(t, err)
	_, err = f.svc.Follow(ctx, 3, 2)
	require.NoError(t, err)

	following, err := f.svc.Following(ctx, 1)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, "carol_1", following[0].User.Username)

	followers, err := f.svc.Followers(ctx, 3)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, "alice_1", followers[0].User.Username)

	pending, err := f.svc.PendingRequests(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	status, err := f.svc.Status(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "pending", status.Following)
	assert.Equal(t, models.RelationshipNone, status.FollowedBy)

	_, err = f.svc.Status(ctx, 1, 404)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestFollowService_NotifierFailureDoesNotFailFollow(t *testing.T) {
	f := newFollowFixture(nil)
	f.notifier.err = assert.AnError

	res, err := f.svc.Follow(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.True(t, res.Created)
}
