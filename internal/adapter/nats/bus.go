// Package nats implements the backplane port over NATS core pub/sub, with
// one subject per room. Core (non-persisted) delivery matches the hub's
// contract: live fan-out only, no replay for disconnected clients.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/adaptivelabs/quizhub/internal/config"
	"github.com/adaptivelabs/quizhub/internal/domain"
	"github.com/adaptivelabs/quizhub/internal/port/backplane"
)

const subjectPrefix = "quiz.room."

// Bus implements backplane.Backplane using a NATS connection.
type Bus struct {
	nc  *nats.Conn
	log *slog.Logger
}

// Connect establishes a NATS connection with infinite reconnect. Existing
// room subscriptions are re-established by the client on reconnect, so an
// outage degrades delivery instead of losing rooms.
func Connect(cfg config.NATS, log *slog.Logger) (*Bus, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("backplane disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("backplane reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info("backplane connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Info("backplane connected", "url", cfg.URL)
	return &Bus{nc: nc, log: log}, nil
}

// Publish sends data on the room's subject. While disconnected it fails
// fast with domain.ErrBackplaneUnavailable instead of buffering; the
// caller's breaker decides how to degrade.
func (b *Bus) Publish(_ context.Context, roomID string, data []byte) error {
	if !b.nc.IsConnected() {
		return fmt.Errorf("publish %s: %w", roomID, domain.ErrBackplaneUnavailable)
	}
	if err := b.nc.Publish(subject(roomID), data); err != nil {
		return fmt.Errorf("publish %s: %w", roomID, err)
	}
	return nil
}

// Subscribe attaches handler to the room's subject. The returned cancel
// releases the subscription.
func (b *Bus) Subscribe(roomID string, handler backplane.Handler) (func(), error) {
	sub, err := b.nc.Subscribe(subject(roomID), func(msg *nats.Msg) {
		handler(context.Background(), roomID, msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", roomID, err)
	}

	return func() {
		if err := sub.Unsubscribe(); err != nil {
			b.log.Debug("unsubscribe failed", "room", roomID, "error", err)
		}
	}, nil
}

// IsConnected reports whether the backplane is currently reachable.
func (b *Bus) IsConnected() bool {
	return b.nc.IsConnected()
}

// KeyValue returns a JetStream KV bucket, creating it with the given TTL
// if absent. Used as the shared L2 store for room snapshots.
func (b *Bus) KeyValue(ctx context.Context, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	js, err := jetstream.New(b.nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("kv bucket %s: %w", bucket, err)
	}
	return kv, nil
}

// Drain flushes pending messages and closes the connection.
func (b *Bus) Drain() error {
	return b.nc.Drain()
}

// Close shuts down the connection immediately.
func (b *Bus) Close() error {
	b.nc.Close()
	return nil
}

// subject maps a room ID to its NATS subject, replacing characters that
// would split or wildcard the subject token.
func subject(roomID string) string {
	return subjectPrefix + strings.NewReplacer(
		".", "_",
		" ", "_",
		"*", "_",
		">", "_",
	).Replace(roomID)
}
