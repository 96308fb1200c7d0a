package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sponsorama/internal/infrastructure"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 512

	sendBufferSize = 16
)

// ClientOptions holds the keepalive timings of a client.
type ClientOptions struct {
	PingPeriod time.Duration
	PongWait   time.Duration
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn Connection
	opts ClientOptions

	// Buffered channel of outbound messages, closed by the hub.
	send chan []byte

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	logger *slog.Logger
}

// NewClient creates a client for conn. traceID ties the client's logs to the upgrade request.
func NewClient(hub *Hub, conn Connection, opts ClientOptions, traceID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	id := uuid.NewString()
	return &Client{
		hub:         hub,
		conn:        conn,
		opts:        opts,
		send:        make(chan []byte, sendBufferSize),
		id:          id,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		logger: logger.With(
			slog.String("component", "websocket.client"),
			slog.String("client_id", id),
		),
	}
}

// ID returns the client identifier.
func (c *Client) ID() string {
	return c.id
}

func (c *Client) context() context.Context {
	if c.traceID == "" {
		return context.Background()
	}
	return infrastructure.WithTraceID(context.Background(), c.traceID)
}

// ReadPump drains the connection until it fails. Clients only send heartbeats;
// anything else is ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WarnContext(c.context(), "Unexpected WebSocket close error",
					slog.String("error", err.Error()))
			}
			return
		}

		var msg struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(bytes.TrimSpace(message), &msg) == nil && msg.Type == TypeHeartbeat {
			c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
			continue
		}
		c.logger.DebugContext(c.context(), "Ignoring client message",
			slog.Int("size", len(message)))
	}
}

// WritePump writes queued messages and keepalive pings until the hub closes send.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.WarnContext(c.context(), "Error writing message to WebSocket",
					slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(c.context(), "Failed to send ping message",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}
