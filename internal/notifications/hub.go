package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"lattice/internal/middleware"
	"lattice/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// Registration failures.
var (
	ErrHubFull         = errors.New("server connection limit reached")
	ErrTooManySessions = errors.New("user connection limit reached")
	ErrHubShuttingDown = errors.New("notification hub is shutting down")
)

const (
	defaultMaxPerUser = 12
	defaultMaxTotal   = 10000
)

// HubOption tunes a Hub.
type HubOption func(*Hub)

// WithLimits caps sessions per user and in total. Non-positive values keep
// the defaults.
func WithLimits(perUser, total int) HubOption {
	return func(h *Hub) {
		if perUser > 0 {
			h.maxPerUser = perUser
		}
		if total > 0 {
			h.maxTotal = total
		}
	}
}

// Hub tracks the open websocket sessions of each user and fans notification
// payloads out to them.
type Hub struct {
	mu       sync.RWMutex
	sessions map[uint]map[*Client]struct{}
	total    int
	closed   bool

	maxPerUser int
	maxTotal   int
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		sessions:   make(map[uint]map[*Client]struct{}),
		maxPerUser: defaultMaxPerUser,
		maxTotal:   defaultMaxTotal,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds a session for userID.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case h.closed:
		return nil, ErrHubShuttingDown
	case h.total >= h.maxTotal:
		return nil, ErrHubFull
	case len(h.sessions[userID]) >= h.maxPerUser:
		return nil, ErrTooManySessions
	}

	c := newClient(h, conn, userID)
	if h.sessions[userID] == nil {
		h.sessions[userID] = make(map[*Client]struct{})
	}
	h.sessions[userID][c] = struct{}{}
	h.total++
	observability.WebSocketConnectionsTotal.Inc()
	return c, nil
}

// UnregisterClient drops c. Repeated calls are no-ops.
func (h *Hub) UnregisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.sessions[c.UserID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.sessions, c.UserID)
	}
	h.total--
	observability.WebSocketConnectionsTotal.Dec()
}

// Deliver queues payload on every session of userID and returns how many
// accepted it.
func (h *Hub) Deliver(userID uint, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.sessions[userID] {
		if c.TrySend(payload) {
			delivered++
		}
	}
	return delivered
}

// ConnectionCount returns the open sessions of userID.
func (h *Hub) ConnectionCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

// StartWiring forwards every message published on a user channel to that
// user's sessions until ctx ends.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		userID, ok := ParseUserChannel(channel)
		if !ok {
			middleware.Logger.Warn("invalid notification channel", slog.String("channel", channel))
			return
		}
		h.Deliver(userID, []byte(payload))
	})
}

// Shutdown refuses new sessions and asks every open one to close. Each
// session's WritePump sends the close frame.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, set := range h.sessions {
		for c := range set {
			c.evict()
			observability.WebSocketConnectionsTotal.Dec()
		}
	}
	h.sessions = make(map[uint]map[*Client]struct{})
	h.total = 0
	return nil
}
