// Package ws implements the websocket connection handler: protocol
// handshake, room registration, relay of backplane events to the socket,
// and disconnect detection.
package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	otelx "github.com/adaptivelabs/quizhub/internal/adapter/otel"
	"github.com/adaptivelabs/quizhub/internal/config"
	"github.com/adaptivelabs/quizhub/internal/hub"
	"github.com/adaptivelabs/quizhub/internal/service"
)

// Handler accepts websocket connections and runs their lifecycle.
type Handler struct {
	log       *slog.Logger
	hub       *hub.Hub
	snapshots *service.Snapshot
	metrics   *otelx.Metrics
	cfg       config.Hub
}

// NewHandler creates a connection handler bound to the given hub.
// snapshots and metrics may be nil.
func NewHandler(log *slog.Logger, h *hub.Hub, snapshots *service.Snapshot, metrics *otelx.Metrics, cfg config.Hub) *Handler {
	return &Handler{
		log:       log,
		hub:       h,
		snapshots: snapshots,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// ServeWS upgrades the request on /ws/{quizID} and runs the connection
// until either side closes it. The handler returns once the pumps are
// started; the connection's goroutines own it from there.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "quizID")
	if roomID == "" {
		http.Error(w, "quiz id required", http.StatusBadRequest)
		return
	}

	_, span := otelx.StartHandshakeSpan(r.Context(), roomID)
	defer span.End()

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		// Handshake failure: the connection never joins a room.
		h.log.Warn("websocket handshake failed", "room", roomID, "remote", r.RemoteAddr, "error", err)
		return
	}

	// The connection outlives this handler, so its context is detached
	// from the request.
	ctx, cancel := context.WithCancel(context.Background())
	c := newConn(uuid.NewString(), roomID, wsConn, h.log, h.cfg.SendBuffer, h.cfg.WriteTimeout, cancel)

	c.onSlowConsumer = func(c *Conn) {
		h.log.Warn("slow consumer, outbound buffer full", "conn", c.ID(), "room", c.RoomID())
		if h.metrics != nil {
			h.metrics.SlowConsumers.Add(ctx, 1)
		}
	}
	c.onClosed = func(c *Conn) {
		h.hub.Leave(c.RoomID(), c)
		h.hub.Registry().Unregister(c.ID())
		if h.metrics != nil {
			h.metrics.ConnectionsClosed.Add(context.Background(), 1)
		}
		h.log.Info("websocket disconnected", "conn", c.ID(), "room", c.RoomID())
	}

	if err := h.hub.Registry().Register(c); err != nil {
		cancel()
		_ = wsConn.Close(websocket.StatusInternalError, "duplicate connection")
		h.log.Error("connection registration failed", "conn", c.ID(), "error", err)
		return
	}

	if !c.advance(StateOpen) {
		// Torn down before it ever opened.
		h.hub.Registry().Unregister(c.ID())
		cancel()
		return
	}

	// Late joiners get the room's current quiz right away. Queued before
	// Join so a quiz broadcast racing the join cannot be ordered ahead of
	// the older snapshot.
	if h.snapshots != nil {
		if data, ok := h.snapshots.Latest(ctx, roomID); ok {
			_ = c.Send(data)
		}
	}

	if err := h.hub.Join(roomID, c); err != nil {
		h.log.Warn("room join refused", "conn", c.ID(), "room", roomID, "error", err)
		c.close(websocket.StatusTryAgainLater, "join refused")
		return
	}

	h.log.Info("websocket connected", "conn", c.ID(), "room", roomID, "remote", r.RemoteAddr)
	if h.metrics != nil {
		h.metrics.ConnectionsOpened.Add(ctx, 1)
	}

	go c.writePump(ctx)
	go c.readPump(ctx)
}
