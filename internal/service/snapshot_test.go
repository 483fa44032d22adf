package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

type memCache struct {
	data map[string][]byte
	fail bool
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.fail {
		return nil, false, errors.New("cache down")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if m.fail {
		return errors.New("cache down")
	}
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func TestSnapshotStoreAndLatest(t *testing.T) {
	s := NewSnapshot(slog.New(slog.DiscardHandler), newMemCache(), time.Hour)
	ctx := context.Background()

	if _, ok := s.Latest(ctx, "quiz1"); ok {
		t.Fatal("expected no snapshot before Store")
	}

	payload := []byte(`{"type":"QUIZ_DATA","topic":"Math"}`)
	s.Store(ctx, "quiz1", payload)

	got, ok := s.Latest(ctx, "quiz1")
	if !ok {
		t.Fatal("expected snapshot after Store")
	}
	if string(got) != string(payload) {
		t.Errorf("Latest = %q, want %q", got, payload)
	}

	// A later quiz replaces the snapshot.
	updated := []byte(`{"type":"QUIZ_DATA","topic":"History"}`)
	s.Store(ctx, "quiz1", updated)
	got, _ = s.Latest(ctx, "quiz1")
	if string(got) != string(updated) {
		t.Errorf("Latest = %q, want %q", got, updated)
	}
}

func TestSnapshotRoomsIndependent(t *testing.T) {
	s := NewSnapshot(slog.New(slog.DiscardHandler), newMemCache(), time.Hour)
	ctx := context.Background()

	s.Store(ctx, "quiz1", []byte("a"))

	if _, ok := s.Latest(ctx, "quiz2"); ok {
		t.Fatal("snapshot must not leak across rooms")
	}
}

func TestSnapshotDrop(t *testing.T) {
	s := NewSnapshot(slog.New(slog.DiscardHandler), newMemCache(), time.Hour)
	ctx := context.Background()

	s.Store(ctx, "quiz1", []byte("a"))
	s.Drop(ctx, "quiz1")

	if _, ok := s.Latest(ctx, "quiz1"); ok {
		t.Fatal("expected no snapshot after Drop")
	}
}

func TestSnapshotCacheFailureIsNonFatal(t *testing.T) {
	c := newMemCache()
	c.fail = true
	s := NewSnapshot(slog.New(slog.DiscardHandler), c, time.Hour)
	ctx := context.Background()

	// Neither call panics or returns stale data.
	s.Store(ctx, "quiz1", []byte("a"))
	if _, ok := s.Latest(ctx, "quiz1"); ok {
		t.Fatal("expected miss while cache is failing")
	}
}
