package cache

import (
	"fmt"
	"strings"
	"time"
)

const (
	PrivacyKeyPrefix = "privacy:%d"
	FollowKeyPrefix  = "follow:%d:%d"
	FeedKeyPrefix    = "feed:%d:l%d:%s"

	// FirstPageSentinel stands in for the cursor of a first page.
	FirstPageSentinel = "first"
)

const (
	PrivacyTTL = 60 * time.Second
	FollowTTL  = 30 * time.Second
	FeedTTL    = 15 * time.Second
)

// Feed page sizes accepted by the feed endpoint.
const (
	MinFeedLimit     = 5
	MaxFeedLimit     = 20
	DefaultFeedLimit = 10
)

// TTLs groups the expirations of every cached kind.
type TTLs struct {
	Privacy time.Duration
	Follow  time.Duration
	Feed    time.Duration
}

// DefaultTTLs returns the reference expirations.
func DefaultTTLs() TTLs {
	return TTLs{Privacy: PrivacyTTL, Follow: FollowTTL, Feed: FeedTTL}
}

func PrivacyKey(ownerID uint) string {
	return fmt.Sprintf(PrivacyKeyPrefix, ownerID)
}

func FollowKey(viewerID, ownerID uint) string {
	return fmt.Sprintf(FollowKeyPrefix, viewerID, ownerID)
}

// FeedKey is scoped to the viewer so one viewer's page is never served to another.
func FeedKey(viewerID uint, limit int, cursor string) string {
	if cursor == "" {
		cursor = FirstPageSentinel
	}
	return fmt.Sprintf(FeedKeyPrefix, viewerID, limit, cursor)
}

// FeedFirstPageKeys lists the first-page keys of a viewer for every accepted limit.
func FeedFirstPageKeys(viewerID uint) []string {
	keys := make([]string, 0, MaxFeedLimit-MinFeedLimit+1)
	for l := MinFeedLimit; l <= MaxFeedLimit; l++ {
		keys = append(keys, FeedKey(viewerID, l, ""))
	}
	return keys
}

// Kind returns the namespace of a key ("privacy", "follow", "feed").
func Kind(key string) string {
	kind, _, found := strings.Cut(key, ":")
	if !found {
		return "unknown"
	}
	return kind
}
