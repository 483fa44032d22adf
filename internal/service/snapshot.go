// Package service holds application services built on the hub core.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/adaptivelabs/quizhub/internal/port/cache"
)

const snapshotKeyPrefix = "room:"

// Snapshot keeps the latest QUIZ_DATA payload per room so a client joining
// mid-quiz gets the current quiz immediately, without event replay. It is
// best-effort: cache failures are logged and never surface to producers or
// joining clients.
type Snapshot struct {
	log   *slog.Logger
	cache cache.Cache
	ttl   time.Duration
}

// NewSnapshot creates a snapshot service over the given cache.
func NewSnapshot(log *slog.Logger, c cache.Cache, ttl time.Duration) *Snapshot {
	return &Snapshot{log: log, cache: c, ttl: ttl}
}

// Store records data as the room's latest quiz state.
func (s *Snapshot) Store(ctx context.Context, roomID string, data []byte) {
	if err := s.cache.Set(ctx, snapshotKeyPrefix+roomID, data, s.ttl); err != nil {
		s.log.Warn("snapshot store failed", "room", roomID, "error", err)
	}
}

// Latest returns the room's latest quiz state, if any.
func (s *Snapshot) Latest(ctx context.Context, roomID string) ([]byte, bool) {
	data, ok, err := s.cache.Get(ctx, snapshotKeyPrefix+roomID)
	if err != nil {
		s.log.Warn("snapshot lookup failed", "room", roomID, "error", err)
		return nil, false
	}
	return data, ok
}

// Drop removes the room's snapshot, for when a quiz ends.
func (s *Snapshot) Drop(ctx context.Context, roomID string) {
	if err := s.cache.Delete(ctx, snapshotKeyPrefix+roomID); err != nil {
		s.log.Warn("snapshot delete failed", "room", roomID, "error", err)
	}
}
