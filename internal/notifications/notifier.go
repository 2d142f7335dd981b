// Package notifications publishes follow events over Redis pub/sub and fans
// them out to websocket clients.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"lattice/internal/middleware"
	"lattice/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Event types published on a user's channel.
const (
	EventFollowRequested = "follow_requested"
	EventFollowAccepted  = "follow_accepted"
	EventFollowed        = "followed"
)

const userChannelPrefix = "notifications:user:"

// Event is the JSON envelope delivered to websocket clients.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// FollowPayload describes the edge a follow event refers to.
type FollowPayload struct {
	FollowerID       uint   `json:"follower_id"`
	FolloweeID       uint   `json:"followee_id"`
	FollowerUsername string `json:"follower_username,omitempty"`
	Status           string `json:"status"`
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
	now func() time.Time
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb, now: time.Now}
}

// PublishUser sends a raw payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// NotifyFollow publishes a follow event to recipient's channel.
func (n *Notifier) NotifyFollow(ctx context.Context, recipientID uint, eventType string, p FollowPayload) error {
	if n == nil || n.rdb == nil {
		observability.NotificationsPublished.WithLabelValues(eventType, "skipped").Inc()
		return nil
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	envelope, err := json.Marshal(Event{Type: eventType, Payload: body, CreatedAt: n.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := n.PublishUser(ctx, recipientID, string(envelope)); err != nil {
		observability.NotificationsPublished.WithLabelValues(eventType, "error").Inc()
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	observability.NotificationsPublished.WithLabelValues(eventType, "ok").Inc()
	return nil
}

// StartPatternSubscriber subscribes to `notifications:user:*` and calls onMessage
// for each incoming message until ctx is cancelled.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel string, payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*")
	// Wait for the subscription to be confirmed so publishes right after
	// startup are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in notification subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ParseUserChannel extracts the user id from a channel built by UserChannel.
func ParseUserChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
