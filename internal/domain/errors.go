// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrDuplicateConnection indicates a connection ID is already registered.
// Connection IDs are random UUIDs, so this is an invariant violation and
// fatal to the offending connection attempt only.
var ErrDuplicateConnection = errors.New("duplicate connection id")

// ErrAlreadyJoined indicates a connection attempted to join a second room.
// A connection belongs to exactly one room for its whole lifetime; clients
// reconnect to switch quizzes.
var ErrAlreadyJoined = errors.New("connection already joined a room")

// ErrConnectionClosed indicates a send was attempted on a connection that
// is closing or closed.
var ErrConnectionClosed = errors.New("connection closed")

// ErrSlowConsumer indicates a connection's outbound buffer is full. The
// connection is forcibly closed rather than blocking the room's fan-out.
var ErrSlowConsumer = errors.New("slow consumer: outbound buffer full")

// ErrBackplaneUnavailable indicates the pub/sub backplane is unreachable.
// The hub degrades to local-only delivery rather than failing producers.
var ErrBackplaneUnavailable = errors.New("backplane unavailable")

// ErrMalformedEvent indicates a payload that is not a valid wire event
// (not JSON, or missing the type discriminator). Malformed events are
// dropped and logged; they never affect other events.
var ErrMalformedEvent = errors.New("malformed event payload")
