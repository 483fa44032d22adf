// Package hub implements the room-based broadcast core: the connection
// registry, the room membership index, and local fan-out. It is transport
// agnostic; the websocket adapter supplies Conn implementations and the
// backplane port supplies cross-process delivery.
package hub

// Conn is the hub's view of a single client connection. The connection
// handler that created it owns the transport; the hub only holds
// references in its membership index.
type Conn interface {
	// ID is the connection's unique identifier.
	ID() string

	// RoomID is the room this connection joined. Fixed for the
	// connection's lifetime.
	RoomID() string

	// Send enqueues data for delivery without blocking. It returns
	// domain.ErrSlowConsumer when the outbound buffer is full and
	// domain.ErrConnectionClosed once the connection is closing or closed.
	Send(data []byte) error

	// Close tears the connection down. It must be idempotent and must
	// eventually run the connection's cleanup path (Leave + Unregister),
	// so no connection is ever left dangling in a room's set.
	Close(reason string)
}
