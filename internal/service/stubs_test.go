package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"lattice/internal/cache"
	"lattice/internal/cursor"
	"lattice/internal/models"
	"lattice/internal/notifications"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getForUpdateFn  func(context.Context, uint) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	isPrivateFn     func(context.Context, uint) (bool, error)
	registerFn      func(context.Context, *models.User) error
	updateFn        func(context.Context, *models.User) error
	setPrivacyFn    func(context.Context, uint, bool) error

	isPrivateCalls atomic.Int32
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetForUpdate(ctx context.Context, id uint) (*models.User, error) {
	if s.getForUpdateFn == nil {
		return s.getByIDFn(ctx, id)
	}
	return s.getForUpdateFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) IsPrivate(ctx context.Context, id uint) (bool, error) {
	s.isPrivateCalls.Add(1)
	return s.isPrivateFn(ctx, id)
}
func (s *userRepoStub) Register(ctx context.Context, user *models.User) error {
	return s.registerFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) SetPrivacy(ctx context.Context, id uint, private bool) error {
	return s.setPrivacyFn(ctx, id, private)
}

// usersByID serves GetByID and IsPrivate from a fixed set of users.
func usersByID(users ...*models.User) *userRepoStub {
	byID := make(map[uint]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			if u, ok := byID[id]; ok {
				return u, nil
			}
			return nil, models.NewNotFoundError("User", id)
		},
		isPrivateFn: func(_ context.Context, id uint) (bool, error) {
			if u, ok := byID[id]; ok {
				return u.IsPrivate, nil
			}
			return false, models.NewNotFoundError("User", id)
		},
		updateFn:     func(context.Context, *models.User) error { return nil },
		setPrivacyFn: func(context.Context, uint, bool) error { return nil },
	}
}

// memoryFollowRepo is an in-memory FollowRepository.
type memoryFollowRepo struct {
	edges         map[[2]uint]*models.Follow
	users         map[uint]*models.User
	isAcceptedErr error

	isAcceptedCalls atomic.Int32
}

func newMemoryFollowRepo(users ...*models.User) *memoryFollowRepo {
	r := &memoryFollowRepo{edges: map[[2]uint]*models.Follow{}, users: map[uint]*models.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memoryFollowRepo) InsertIfAbsent(_ context.Context, edge *models.Follow) (bool, error) {
	key := [2]uint{edge.FollowerID, edge.FolloweeID}
	if _, ok := r.edges[key]; ok {
		return false, nil
	}
	cp := *edge
	cp.CreatedAt = time.Now().UTC()
	r.edges[key] = &cp
	return true, nil
}
func (r *memoryFollowRepo) Get(_ context.Context, followerID, followeeID uint) (*models.Follow, error) {
	if e, ok := r.edges[[2]uint{followerID, followeeID}]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}
func (r *memoryFollowRepo) Accept(_ context.Context, followerID, followeeID uint) (bool, error) {
	e, ok := r.edges[[2]uint{followerID, followeeID}]
	if !ok || e.Status != models.FollowStatusPending {
		return false, nil
	}
	e.Status = models.FollowStatusAccepted
	return true, nil
}
func (r *memoryFollowRepo) Delete(_ context.Context, followerID, followeeID uint) (bool, error) {
	key := [2]uint{followerID, followeeID}
	if _, ok := r.edges[key]; !ok {
		return false, nil
	}
	delete(r.edges, key)
	return true, nil
}
func (r *memoryFollowRepo) DeletePending(_ context.Context, followerID, followeeID uint) (bool, error) {
	key := [2]uint{followerID, followeeID}
	e, ok := r.edges[key]
	if !ok || e.Status != models.FollowStatusPending {
		return false, nil
	}
	delete(r.edges, key)
	return true, nil
}
func (r *memoryFollowRepo) IsAccepted(_ context.Context, followerID, followeeID uint) (bool, error) {
	r.isAcceptedCalls.Add(1)
	if r.isAcceptedErr != nil {
		return false, r.isAcceptedErr
	}
	e, ok := r.edges[[2]uint{followerID, followeeID}]
	return ok && e.Status == models.FollowStatusAccepted, nil
}
func (r *memoryFollowRepo) list(match func(*models.Follow) bool, attach func(*models.Follow)) []models.Follow {
	var out []models.Follow
	for _, e := range r.edges {
		if match(e) {
			cp := *e
			attach(&cp)
			out = append(out, cp)
		}
	}
	return out
}
func (r *memoryFollowRepo) Following(_ context.Context, followerID uint) ([]models.Follow, error) {
	return r.list(func(e *models.Follow) bool {
		return e.FollowerID == followerID && e.Status == models.FollowStatusAccepted
	}, func(e *models.Follow) { e.Followee = r.users[e.FolloweeID] }), nil
}
func (r *memoryFollowRepo) Followers(_ context.Context, followeeID uint) ([]models.Follow, error) {
	return r.list(func(e *models.Follow) bool {
		return e.FolloweeID == followeeID && e.Status == models.FollowStatusAccepted
	}, func(e *models.Follow) { e.Follower = r.users[e.FollowerID] }), nil
}
func (r *memoryFollowRepo) PendingRequests(_ context.Context, followeeID uint) ([]models.Follow, error) {
	return r.list(func(e *models.Follow) bool {
		return e.FolloweeID == followeeID && e.Status == models.FollowStatusPending
	}, func(e *models.Follow) { e.Follower = r.users[e.FollowerID] }), nil
}

type postRepoStub struct {
	createFn       func(context.Context, *models.Post) error
	getByIDFn      func(context.Context, string) (*models.Post, error)
	listByAuthorFn func(context.Context, uint, *cursor.Position, int) ([]models.Post, error)
	updateFn       func(context.Context, *models.Post) error
	deleteFn       func(context.Context, string) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, authorID uint, before *cursor.Position, limit int) ([]models.Post, error) {
	return s.listByAuthorFn(ctx, authorID, before, limit)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

type commentRepoStub struct {
	createFn      func(context.Context, *models.Comment) error
	getByIDFn     func(context.Context, string) (*models.Comment, error)
	listByPostFn  func(context.Context, string, *cursor.Position, int) ([]models.Comment, error)
	listRepliesFn func(context.Context, string, *cursor.Position, int) ([]models.Comment, error)
	updateFn      func(context.Context, *models.Comment) error
	deleteFn      func(context.Context, string) error
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID string, before *cursor.Position, limit int) ([]models.Comment, error) {
	return s.listByPostFn(ctx, postID, before, limit)
}
func (s *commentRepoStub) ListReplies(ctx context.Context, parentID string, before *cursor.Position, limit int) ([]models.Comment, error) {
	return s.listRepliesFn(ctx, parentID, before, limit)
}
func (s *commentRepoStub) Update(ctx context.Context, comment *models.Comment) error {
	return s.updateFn(ctx, comment)
}
func (s *commentRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

type feedRepoStub struct {
	listFn func(context.Context, uint, *cursor.Position, int) ([]models.FeedPost, error)
	calls  atomic.Int32
}

func (s *feedRepoStub) ListForViewer(ctx context.Context, viewerID uint, before *cursor.Position, limit int) ([]models.FeedPost, error) {
	s.calls.Add(1)
	return s.listFn(ctx, viewerID, before, limit)
}

// viewerStub answers CanView from a fixed rule.
type viewerStub struct {
	canViewFn func(context.Context, uint, uint) (bool, error)
}

func (s viewerStub) CanView(ctx context.Context, viewerID, ownerID uint) (bool, error) {
	return s.canViewFn(ctx, viewerID, ownerID)
}

func allowAll() viewerStub {
	return viewerStub{canViewFn: func(context.Context, uint, uint) (bool, error) { return true, nil }}
}

func denyOthers() viewerStub {
	return viewerStub{canViewFn: func(_ context.Context, viewerID, ownerID uint) (bool, error) {
		return viewerID == ownerID, nil
	}}
}

type sentEvent struct {
	recipient uint
	eventType string
	payload   notifications.FollowPayload
}

type notifierStub struct {
	events []sentEvent
	err    error
}

func (n *notifierStub) NotifyFollow(_ context.Context, recipientID uint, eventType string, p notifications.FollowPayload) error {
	n.events = append(n.events, sentEvent{recipient: recipientID, eventType: eventType, payload: p})
	return n.err
}

func setupStore(t *testing.T) (*cache.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisStore(client, time.Second), mr
}
