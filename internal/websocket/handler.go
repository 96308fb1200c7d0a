package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"sponsorama/internal/config"
	apierrors "sponsorama/internal/errors"
	"sponsorama/internal/infrastructure"
)

// Handler upgrades HTTP requests and attaches the resulting clients to a hub.
type Handler struct {
	hub            *Hub
	upgrader       websocket.Upgrader
	clientOpts     ClientOptions
	allowedOrigins []string
	clientLogger   *slog.Logger
	logger         *slog.Logger
}

// NewHandler creates the /ws endpoint handler.
func NewHandler(hub *Hub, cfg config.WebSocketConfig, allowedOrigins []string, logger *slog.Logger) *Handler {
	h := &Handler{
		hub:            hub,
		clientOpts:     ClientOptions{PingPeriod: cfg.PingPeriod, PongWait: cfg.PongWait},
		allowedOrigins: allowedOrigins,
		clientLogger:   logger,
		logger:         logger.With(slog.String("component", "websocket.handler")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			h.logger.WarnContext(r.Context(), "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			apierrors.WriteError(w, apierrors.NewWithDetails(status,
				apierrors.CodeWebSocketUpgrade, "WebSocket upgrade failed", reason.Error()))
		},
	}
	return h
}

// checkOrigin allows requests without Origin, same-host origins and the configured allow list.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied.
		return
	}

	client := NewClient(h.hub, NewConnectionWrapper(conn), h.clientOpts, infrastructure.GetTraceID(ctx), h.clientLogger)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	h.logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr))

	go client.WritePump()
	go client.ReadPump()
}
