package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/adaptivelabs/quizhub/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	log, closer := New(config.Logging{Level: "debug", Service: "quizhub-test"})
	defer closer.Close()

	if log == nil {
		t.Fatal("expected non-nil logger")
	}
	if !log.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug level should be enabled")
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if RequestID(ctx) != "" {
		t.Error("expected empty request ID on fresh context")
	}

	ctx = WithRequestID(ctx, "req-1")
	if got := RequestID(ctx); got != "req-1" {
		t.Errorf("RequestID = %q, want req-1", got)
	}
}

func TestAsyncHandlerDelivers(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	h := NewAsyncHandler(inner, 16, 1)

	log := slog.New(h)
	log.Info("hello", "k", "v")

	h.Close()

	if !bytes.Contains(buf.Bytes(), []byte("hello")) {
		t.Errorf("expected record in output, got %q", buf.String())
	}
	if h.DroppedCount() != 0 {
		t.Errorf("expected 0 dropped, got %d", h.DroppedCount())
	}
}

func TestAsyncHandlerDropsWhenFull(t *testing.T) {
	inner := &blockingHandler{release: make(chan struct{})}
	h := NewAsyncHandler(inner, 1, 1)

	log := slog.New(h)
	// First record occupies the worker, second fills the channel, the
	// rest must be dropped without blocking.
	for range 10 {
		log.Info("x")
	}

	deadline := time.After(2 * time.Second)
	for h.DroppedCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("expected dropped records")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	close(inner.release)
	h.Close()
}

type blockingHandler struct {
	release chan struct{}
}

func (b *blockingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (b *blockingHandler) Handle(context.Context, slog.Record) error {
	<-b.release
	return nil
}

func (b *blockingHandler) WithAttrs([]slog.Attr) slog.Handler { return b }
func (b *blockingHandler) WithGroup(string) slog.Handler      { return b }
