package notifications

import (
	"log/slog"
	"sync"
	"time"

	"lattice/internal/middleware"
	"lattice/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// Inbound traffic is limited to pongs and close frames.
	maxMessageSize = 512

	sendBufferSize = 64
)

// registry is the part of Hub a Client reports back to.
type registry interface {
	UnregisterClient(c *Client)
}

// Client is one websocket session of a user. The hub queues events on it and
// WritePump is the only goroutine that writes to the connection.
type Client struct {
	UserID uint

	hub  registry
	conn *websocket.Conn
	send chan []byte

	// readDone closes when ReadPump returns.
	readDone chan struct{}
	// stop closes when the hub evicts the session.
	stop     chan struct{}
	stopOnce sync.Once
}

func newClient(hub registry, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		UserID:   userID,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		readDone: make(chan struct{}),
		stop:     make(chan struct{}),
	}
}

// ReadPump consumes control frames until the peer disconnects or stops
// answering pings. It blocks.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		close(c.readDone)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				middleware.Logger.Debug("websocket closed unexpectedly",
					slog.Uint64("user_id", uint64(c.UserID)), slog.String("error", err.Error()))
			}
			return
		}
	}
}

// WritePump delivers queued events and keepalive pings. It returns when the
// reader is gone, the hub evicts the session or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.readDone:
			return
		case <-c.stop:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues msg without blocking. It reports false when the session is
// stopped or its buffer is full; notifications are best effort.
func (c *Client) TrySend(msg []byte) bool {
	select {
	case <-c.stop:
		observability.WebSocketBackpressureDrops.WithLabelValues("closed").Inc()
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues("full").Inc()
		middleware.Logger.Warn("websocket buffer full, dropped notification",
			slog.Uint64("user_id", uint64(c.UserID)))
		return false
	}
}

func (c *Client) evict() {
	c.stopOnce.Do(func() { close(c.stop) })
}
