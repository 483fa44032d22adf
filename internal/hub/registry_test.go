package hub

import (
	"errors"
	"testing"

	"github.com/adaptivelabs/quizhub/internal/domain"
)

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	c := &fakeConn{id: "c1", room: "quiz1"}
	if err := r.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if r.Count() != 1 {
		t.Fatalf("Count = %d, want 1", r.Count())
	}
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry()

	c := &fakeConn{id: "c1", room: "quiz1"}
	if err := r.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}

	dup := &fakeConn{id: "c1", room: "quiz2"}
	err := r.Register(dup)
	if !errors.Is(err, domain.ErrDuplicateConnection) {
		t.Fatalf("Register duplicate: error = %v, want ErrDuplicateConnection", err)
	}
	if r.Count() != 1 {
		t.Fatalf("Count = %d, want 1", r.Count())
	}
}

func TestRegistryUnregisterIdempotent(t *testing.T) {
	r := NewRegistry()

	c := &fakeConn{id: "c1", room: "quiz1"}
	if err := r.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}

	r.Unregister("c1")
	if r.Count() != 0 {
		t.Fatalf("Count = %d, want 0", r.Count())
	}

	// Second removal is a no-op.
	r.Unregister("c1")
	r.Unregister("never-existed")
	if r.Count() != 0 {
		t.Fatalf("Count = %d, want 0", r.Count())
	}
}

func TestRegistryConnectionsSnapshot(t *testing.T) {
	r := NewRegistry()

	for _, id := range []string{"a", "b", "c"} {
		if err := r.Register(&fakeConn{id: id, room: "quiz1"}); err != nil {
			t.Fatalf("Register %s: %v", id, err)
		}
	}

	conns := r.Connections()
	if len(conns) != 3 {
		t.Fatalf("Connections returned %d, want 3", len(conns))
	}

	seen := make(map[string]bool)
	for _, c := range conns {
		seen[c.ID()] = true
	}
	for _, id := range []string{"a", "b", "c"} {
		if !seen[id] {
			t.Errorf("missing connection %s in snapshot", id)
		}
	}
}
