package ws

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/adaptivelabs/quizhub/internal/domain"
)

// echoPrefix is prepended to client text frames relayed back to the sender.
const echoPrefix = "server echo: "

// Conn wraps one websocket connection with a bounded outbound queue and
// the lifecycle state machine. It implements hub.Conn.
type Conn struct {
	id     string
	roomID string
	ws     *websocket.Conn
	log    *slog.Logger

	send         chan []byte
	state        atomic.Int32
	cancel       context.CancelFunc
	writeTimeout time.Duration

	closeOnce sync.Once
	// onClosed runs exactly once when the connection reaches Closed:
	// Leave, Unregister, metrics. Set by the handler before the pumps start.
	onClosed func(*Conn)
	// onSlowConsumer fires once when the outbound queue first overflows.
	onSlowConsumer func(*Conn)
	slowOnce       sync.Once
}

func newConn(id, roomID string, wsc *websocket.Conn, log *slog.Logger, buffer int, writeTimeout time.Duration, cancel context.CancelFunc) *Conn {
	c := &Conn{
		id:           id,
		roomID:       roomID,
		ws:           wsc,
		log:          log,
		send:         make(chan []byte, buffer),
		cancel:       cancel,
		writeTimeout: writeTimeout,
	}
	c.state.Store(int32(StateConnecting))
	return c
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string { return c.id }

// RoomID returns the room this connection joined.
func (c *Conn) RoomID() string { return c.roomID }

// State returns the connection's current lifecycle state.
func (c *Conn) State() State { return State(c.state.Load()) }

// advance moves the state machine forward. Returns false when the
// transition is not allowed from the current state.
func (c *Conn) advance(to State) bool {
	for {
		cur := State(c.state.Load())
		if !canTransition(cur, to) {
			return false
		}
		if c.state.CompareAndSwap(int32(cur), int32(to)) {
			return true
		}
	}
}

// Send enqueues data for the write pump without blocking. A full queue
// means the client is not keeping up; the caller closes the connection
// rather than stalling the room's fan-out.
func (c *Conn) Send(data []byte) error {
	if c.State() != StateOpen {
		return domain.ErrConnectionClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.slowOnce.Do(func() {
			if c.onSlowConsumer != nil {
				c.onSlowConsumer(c)
			}
		})
		return domain.ErrSlowConsumer
	}
}

// Close drives the connection to Closed from any state. Safe to call
// concurrently and repeatedly; cleanup runs exactly once.
func (c *Conn) Close(reason string) {
	code := websocket.StatusPolicyViolation
	if reason == "server shutting down" {
		code = websocket.StatusGoingAway
	}
	c.close(code, reason)
}

func (c *Conn) close(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		c.advance(StateClosing)

		// Unblock any in-flight read or write before closing the socket.
		c.cancel()
		if err := c.ws.Close(code, reason); err != nil {
			c.log.Debug("websocket close", "conn", c.id, "error", err)
		}

		c.advance(StateClosed)
		if c.onClosed != nil {
			c.onClosed(c)
		}
	})
}

// writePump drains the outbound queue onto the socket. A failed or timed
// out write tears the connection down.
func (c *Conn) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
			err := c.ws.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				c.close(websocket.StatusAbnormalClosure, "write failed")
				return
			}
		}
	}
}

// readPump consumes inbound frames until the client closes or the
// transport fails, then drives the connection to Closed. Text frames are
// echoed back; the hub itself never interprets client input.
func (c *Conn) readPump(ctx context.Context) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				c.log.Debug("client closed connection", "conn", c.id, "status", status)
			}
			c.close(websocket.StatusNormalClosure, "")
			return
		}
		if typ == websocket.MessageText {
			_ = c.Send(append([]byte(echoPrefix), data...))
		}
	}
}
