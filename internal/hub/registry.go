package hub

import (
	"sync"

	"github.com/adaptivelabs/quizhub/internal/domain"
)

// Registry tracks all open connections independent of room membership,
// for diagnostics and graceful shutdown.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Register adds a newly opened connection. Returns domain.ErrDuplicateConnection
// if the ID is already present.
func (r *Registry) Register(c Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[c.ID()]; exists {
		return domain.ErrDuplicateConnection
	}
	r.conns[c.ID()] = c
	return nil
}

// Unregister removes a connection by ID. It is idempotent; removing an
// absent ID is a no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

// Count returns the current number of open connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Connections returns a snapshot of all registered connections.
func (r *Registry) Connections() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}
