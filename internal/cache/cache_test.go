package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, 0), mr
}

type flag struct {
	IsPrivate bool `json:"is_private"`
}

func TestAside_MissThenHit(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (flag, error) {
		calls++
		return flag{IsPrivate: true}, nil
	}

	v, hit, err := Aside(ctx, store, PrivacyKey(42), PrivacyTTL, fetch)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.True(t, v.IsPrivate)

	v, hit, err = Aside(ctx, store, PrivacyKey(42), PrivacyTTL, fetch)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.True(t, v.IsPrivate)
	assert.Equal(t, 1, calls)

	assert.Equal(t, PrivacyTTL, mr.TTL("privacy:42"))
}

func TestAside_ExpiryTriggersOneFetch(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (flag, error) {
		calls++
		return flag{}, nil
	}

	_, _, err := Aside(ctx, store, PrivacyKey(42), PrivacyTTL, fetch)
	require.NoError(t, err)

	mr.FastForward(PrivacyTTL + time.Second)

	_, hit, err := Aside(ctx, store, PrivacyKey(42), PrivacyTTL, fetch)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	store, mr := setupRedisStore(t)
	boom := errors.New("boom")

	_, _, err := Aside(context.Background(), store, FollowKey(1, 2), FollowTTL, func(context.Context) (flag, error) {
		return flag{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("follow:1:2"))
}

func TestAside_FallsThroughWhenRedisDown(t *testing.T) {
	store, mr := setupRedisStore(t)
	mr.Close()

	v, hit, err := Aside(context.Background(), store, PrivacyKey(7), PrivacyTTL, func(context.Context) (flag, error) {
		return flag{IsPrivate: true}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.True(t, v.IsPrivate)
}

func TestAside_CorruptPayloadIsAMiss(t *testing.T) {
	store, mr := setupRedisStore(t)
	require.NoError(t, mr.Set("privacy:9", "{not json"))

	v, hit, err := Aside(context.Background(), store, PrivacyKey(9), PrivacyTTL, func(context.Context) (flag, error) {
		return flag{IsPrivate: true}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.True(t, v.IsPrivate)

	got, err := mr.Get("privacy:9")
	require.NoError(t, err)
	assert.JSONEq(t, `{"is_private":true}`, got)
}

func TestAside_NilStore(t *testing.T) {
	v, hit, err := Aside(context.Background(), nil, "feed:1:l10:first", FeedTTL, func(context.Context) (int, error) {
		return 3, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 3, v)
}

func TestRedisStore_NilClientIsEmpty(t *testing.T) {
	s := NewRedisStore(nil, time.Second)
	ctx := context.Background()

	assert.False(t, s.Available())
	assert.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	_, found, err := s.Get(ctx, "k")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, s.Delete(ctx, "k"))
}

func TestInvalidate(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, FollowKey(1, 2), []byte(`{"allowed":true}`), FollowTTL))
	require.NoError(t, store.Set(ctx, FeedKey(1, 10, ""), []byte(`{}`), FeedTTL))

	Invalidate(ctx, store, append([]string{FollowKey(1, 2)}, FeedFirstPageKeys(1)...)...)

	assert.False(t, mr.Exists("follow:1:2"))
	assert.False(t, mr.Exists("feed:1:l10:first"))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "privacy:42", PrivacyKey(42))
	assert.Equal(t, "follow:3:4", FollowKey(3, 4))
	assert.Equal(t, "feed:3:l10:first", FeedKey(3, 10, ""))
	assert.Equal(t, "feed:3:l5:abc", FeedKey(3, 5, "abc"))
	assert.Len(t, FeedFirstPageKeys(3), MaxFeedLimit-MinFeedLimit+1)

	assert.Equal(t, "feed", Kind("feed:3:l5:abc"))
	assert.Equal(t, "unknown", Kind("nocolon"))
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	for _, addr := range []string{mr.Addr(), "redis://" + mr.Addr() + "/0"} {
		c := Connect(ctx, addr, time.Second)
		require.NotNil(t, c, addr)
		assert.NoError(t, c.Ping(ctx).Err())
		_ = c.Close()
	}

	assert.Nil(t, Connect(ctx, "redis://%zz", time.Second))

	mr.Close()
	assert.Nil(t, Connect(ctx, mr.Addr(), 200*time.Millisecond))
}
