package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"sponsorama/internal/infrastructure"
)

// ErrHubStopped is returned when broadcasting to a stopped hub.
var ErrHubStopped = errors.New("websocket hub stopped")

// Greeting produces the message sent to each client right after it connects.
type Greeting func() (msgType string, data any)

type outbound struct {
	msgType string
	payload []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
// The client set is owned by the Run loop.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	greeting Greeting
	logger   *slog.Logger
	metrics  *Metrics

	active   atomic.Int64
	done     chan struct{}
	stopOnce sync.Once
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithGreeting sends the result of g to every newly registered client.
func WithGreeting(g Greeting) HubOption {
	return func(h *Hub) { h.greeting = g }
}

// WithMetrics records hub activity on m.
func WithMetrics(m *Metrics) HubOption {
	return func(h *Hub) { h.metrics = m }
}

// NewHub creates a new Hub. Run must be started before clients register.
func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	h := &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan outbound, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processes registrations and broadcasts until ctx is done or Stop is called.
// All remaining clients are closed on return.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			h.Stop()
			return

		case <-h.done:
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.active.Store(int64(len(h.clients)))
			h.metrics.recordConnect(client.context())

			h.logger.InfoContext(client.context(), "Client registered",
				slog.Int("total_clients", len(h.clients)),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			h.greet(client)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; !ok {
				continue
			}
			h.remove(client, "closed")

		case msg := <-h.broadcast:
			sent := 0
			for client := range h.clients {
				select {
				case client.send <- msg.payload:
					sent++
				default:
					h.metrics.recordDropped(client.context(), msg.msgType)
					h.logger.WarnContext(client.context(), "Client send buffer full, disconnecting",
						slog.String("client_id", client.id))
					h.remove(client, "slow_consumer")
				}
			}
			h.metrics.recordSent(context.Background(), msg.msgType, sent)

			h.logger.Debug("Broadcast delivered",
				slog.String("type", msg.msgType),
				slog.Int("client_count", sent),
				slog.Int("message_size", len(msg.payload)))
		}
	}
}

func (h *Hub) greet(client *Client) {
	msgType, data := TypeConnection, any(map[string]string{
		"status":    "connected",
		"client_id": client.id,
	})
	payload, err := encodeMessage(msgType, data, client.traceID)
	if err == nil {
		client.send <- payload
	}

	if h.greeting == nil {
		return
	}
	msgType, data = h.greeting()
	payload, err = encodeMessage(msgType, data, client.traceID)
	if err != nil {
		h.logger.ErrorContext(client.context(), "Error marshaling greeting",
			slog.String("error", err.Error()))
		return
	}
	client.send <- payload
}

// remove must only be called from the Run loop.
func (h *Hub) remove(client *Client, reason string) {
	delete(h.clients, client)
	close(client.send)
	h.active.Store(int64(len(h.clients)))

	duration := time.Since(client.connectedAt)
	h.metrics.recordDisconnect(client.context(), duration, reason)
	h.logger.InfoContext(client.context(), "Client unregistered",
		slog.Int("total_clients", len(h.clients)),
		slog.String("client_id", client.id),
		slog.String("reason", reason),
		slog.Duration("connection_duration", duration))
}

func (h *Hub) closeAll() {
	for client := range h.clients {
		h.remove(client, "shutdown")
	}
}

// Broadcast queues a message for every connected client.
func (h *Hub) Broadcast(msgType string, data any) error {
	return h.BroadcastWithTrace(msgType, data, "")
}

// BroadcastWithTrace queues a message carrying traceID for every connected client.
func (h *Hub) BroadcastWithTrace(msgType string, data any, traceID string) error {
	payload, err := encodeMessage(msgType, data, traceID)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", msgType, err)
	}

	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	select {
	case h.broadcast <- outbound{msgType: msgType, payload: payload}:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// Register adds a client to the hub. It returns false if the hub is stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	return int(h.active.Load())
}

// Stop makes Run return and close every client. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.logger.Info("Hub shutting down")
	})
}
