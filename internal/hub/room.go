package hub

import "sync"

// room holds one room's local membership. Membership mutation and fan-out
// iteration synchronize on the room's own mutex, so traffic in one room
// never contends with another.
type room struct {
	mu        sync.RWMutex
	members   map[string]Conn
	cancelSub func()
}

func newRoom() *room {
	return &room{members: make(map[string]Conn)}
}

func (r *room) add(c Conn) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[c.ID()] = c
	return len(r.members)
}

func (r *room) remove(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, id)
	return len(r.members)
}

// snapshot copies the member set so fan-out never holds the lock while
// writing, and a member's teardown mid-broadcast cannot invalidate the
// iteration.
func (r *room) snapshot() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Conn, 0, len(r.members))
	for _, c := range r.members {
		out = append(out, c)
	}
	return out
}

func (r *room) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}
