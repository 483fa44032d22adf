// Package backplane defines the port for the cross-process publish/subscribe
// medium that links every hub instance holding connections for a room.
package backplane

import "context"

// Handler processes a raw payload delivered for a subscribed room.
type Handler func(ctx context.Context, roomID string, data []byte)

// Backplane is the port interface over the external pub/sub medium.
// A payload published for room R reaches every process subscribed to R,
// at least once. Delivery order is per-room, per-process; nothing is
// guaranteed across rooms.
type Backplane interface {
	// Publish sends a serialized event to the given room's channel.
	Publish(ctx context.Context, roomID string, data []byte) error

	// Subscribe registers a handler for the given room's channel.
	// The returned function cancels the subscription.
	Subscribe(roomID string, handler Handler) (cancel func(), err error)

	// IsConnected reports whether the backplane is currently reachable.
	IsConnected() bool

	// Drain gracefully flushes pending messages before closing.
	Drain() error

	// Close shuts down the backplane connection immediately.
	Close() error
}
