package hub

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/adaptivelabs/quizhub/internal/domain"
	"github.com/adaptivelabs/quizhub/internal/domain/event"
	"github.com/adaptivelabs/quizhub/internal/port/backplane"
	"github.com/adaptivelabs/quizhub/internal/resilience"
)

// Hub maps rooms to their local connections and fans published events out
// to them. One Hub instance runs per process; the backplane links instances
// so a publish from any process reaches every room member everywhere.
type Hub struct {
	log      *slog.Logger
	bp       backplane.Backplane
	breaker  *resilience.Breaker
	registry *Registry

	// Delivery accounting hooks, set once before serving. The hub itself
	// carries no telemetry imports.
	onDelivered func(roomID string, n int)
	onDropped   func(roomID string)

	mu     sync.Mutex
	rooms  map[string]*room
	joined map[string]string // connection ID -> room ID
	closed bool
}

// New creates a hub wired to the given backplane. The breaker guards the
// publish path so a dead backplane degrades to local-only delivery instead
// of stalling producers.
func New(log *slog.Logger, bp backplane.Backplane, breaker *resilience.Breaker, registry *Registry) *Hub {
	return &Hub{
		log:      log,
		bp:       bp,
		breaker:  breaker,
		registry: registry,
		rooms:    make(map[string]*room),
		joined:   make(map[string]string),
	}
}

// Registry returns the hub's connection registry.
func (h *Hub) Registry() *Registry { return h.registry }

// SetDeliveryHooks installs callbacks invoked after each local fan-out and
// for each dropped malformed payload. Must be called before the hub serves
// traffic.
func (h *Hub) SetDeliveryHooks(onDelivered func(roomID string, n int), onDropped func(roomID string)) {
	h.onDelivered = onDelivered
	h.onDropped = onDropped
}

// Join adds a connection to a room, creating the room on first member.
// The process's first member for a room also subscribes the room's
// backplane channel. A connection may join exactly one room in its
// lifetime; a second Join returns domain.ErrAlreadyJoined.
func (h *Hub) Join(roomID string, c Conn) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return domain.ErrConnectionClosed
	}
	if _, ok := h.joined[c.ID()]; ok {
		h.mu.Unlock()
		return domain.ErrAlreadyJoined
	}

	r, exists := h.rooms[roomID]
	if !exists {
		r = newRoom()
		h.rooms[roomID] = r
	}
	h.joined[c.ID()] = roomID
	// Membership is established before the index lock drops, so a
	// concurrent last-member Leave can never see this room empty and
	// delete it out from under a join in progress.
	members := r.add(c)
	h.mu.Unlock()

	if !exists {
		h.subscribeRoom(roomID, r)
	}

	h.log.Info("connection joined room", "room", roomID, "conn", c.ID(), "members", members)
	return nil
}

// subscribeRoom attaches the room to its backplane channel. A subscribe
// failure leaves the room in local-only delivery; the backplane client
// re-establishes channels itself once connectivity returns.
func (h *Hub) subscribeRoom(roomID string, r *room) {
	cancel, err := h.bp.Subscribe(roomID, h.onBackplaneEvent)
	if err != nil {
		h.log.Warn("backplane subscribe failed, room is local-only", "room", roomID, "error", err)
		return
	}

	r.mu.Lock()
	r.cancelSub = cancel
	r.mu.Unlock()

	// The room may have been emptied and dropped while we were
	// subscribing; release the subscription rather than leak it.
	h.mu.Lock()
	current, ok := h.rooms[roomID]
	h.mu.Unlock()
	if !ok || current != r {
		cancel()
	}
}

// Leave removes a connection from a room. The last member out drops the
// room entry and releases its backplane subscription, so room churn never
// grows the index.
func (h *Hub) Leave(roomID string, c Conn) {
	h.mu.Lock()
	r, ok := h.rooms[roomID]
	if joinedRoom, joined := h.joined[c.ID()]; joined && joinedRoom == roomID {
		delete(h.joined, c.ID())
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	members := r.remove(c.ID())
	h.log.Info("connection left room", "room", roomID, "conn", c.ID(), "members", members)

	if members > 0 {
		return
	}

	h.mu.Lock()
	if current, present := h.rooms[roomID]; present && current == r && r.size() == 0 {
		delete(h.rooms, roomID)
		h.mu.Unlock()

		r.mu.Lock()
		cancel := r.cancelSub
		r.cancelSub = nil
		r.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		h.log.Info("room removed", "room", roomID)
		return
	}
	h.mu.Unlock()
}

// Publish sends a serialized event to a room via the backplane, which
// loops it back to this process along with every other subscribed hub.
// While the backplane is down the event is delivered to local members
// only; producers never see the failure.
func (h *Hub) Publish(ctx context.Context, roomID string, data []byte) {
	err := h.breaker.Execute(func() error {
		return h.bp.Publish(ctx, roomID, data)
	})
	if err == nil {
		return
	}

	h.log.Warn("backplane publish failed, delivering locally only",
		"room", roomID, "error", err)
	h.BroadcastLocal(roomID, data)
}

// onBackplaneEvent is the delivery callback for subscribed rooms.
// Malformed payloads are dropped here; a broken producer must never take
// the hub down or affect other events.
func (h *Hub) onBackplaneEvent(_ context.Context, roomID string, data []byte) {
	ev, err := event.Decode(data)
	if err != nil {
		h.log.Error("dropping malformed backplane event", "room", roomID, "error", err)
		if h.onDropped != nil {
			h.onDropped(roomID)
		}
		return
	}

	h.log.Debug("backplane event", "room", roomID, "type", ev.Type)
	h.BroadcastLocal(roomID, ev.Raw)
}

// BroadcastLocal sends data to every local member of the room: one
// independent delivery attempt per connection. A slow or broken member is
// closed and skipped; it never blocks delivery to the rest.
func (h *Hub) BroadcastLocal(roomID string, data []byte) int {
	h.mu.Lock()
	r, ok := h.rooms[roomID]
	h.mu.Unlock()
	if !ok {
		return 0
	}

	delivered := 0
	for _, c := range r.snapshot() {
		err := c.Send(data)
		if err == nil {
			delivered++
			continue
		}

		reason := "delivery failed"
		if errors.Is(err, domain.ErrSlowConsumer) {
			reason = "slow consumer"
			h.log.Warn("closing slow consumer", "room", roomID, "conn", c.ID())
		} else {
			h.log.Debug("send failed", "room", roomID, "conn", c.ID(), "error", err)
		}
		// Close runs the connection's cleanup (Leave + Unregister);
		// off the fan-out loop so one teardown cannot stall the room.
		go c.Close(reason)
	}
	if h.onDelivered != nil {
		h.onDelivered(roomID, delivered)
	}
	return delivered
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int { return h.registry.Count() }

// Rooms returns a snapshot of room IDs to local member counts.
func (h *Hub) Rooms() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]int, len(h.rooms))
	for id, r := range h.rooms {
		out[id] = r.size()
	}
	return out
}

// Shutdown closes every connection and releases every backplane
// subscription. The drain is bounded by ctx; connections still open at the
// deadline are abandoned to the process exit.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	var g errgroup.Group
	for _, c := range h.registry.Connections() {
		g.Go(func() error {
			c.Close("server shutting down")
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	h.mu.Lock()
	remaining := h.rooms
	h.rooms = make(map[string]*room)
	h.mu.Unlock()

	for id, r := range remaining {
		r.mu.Lock()
		cancel := r.cancelSub
		r.cancelSub = nil
		r.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		h.log.Info("room released on shutdown", "room", id)
	}

	return err
}
