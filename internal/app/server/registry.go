package server

import "sync"

// registry binds display names to connections. At most one live
// connection per name; a dead binding is kept so the next connection with
// that name can inherit its room.
type registry struct {
	mu      sync.Mutex
	clients map[string]*client
}

func newRegistry() *registry {
	return &registry{clients: make(map[string]*client)}
}

// bind registers the client and returns the room it should be routed to.
// ErrDuplicateLogin means an older connection with this name is still
// live; the caller must drop the new connection, not the old one.
func (r *registry) bind(c *client) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, exists := r.clients[c.name]
	if exists && old.alive() {
		return "", ErrDuplicateLogin
	}
	room := lobbyRoom
	if exists {
		if oldRoom := old.currentRoom(); oldRoom != "" {
			room = oldRoom
		}
	}
	r.clients[c.name] = c
	return room, nil
}

// drop marks the client dead and reports whether it was still the current
// binding for its name. A connection that was already replaced must not
// trigger disconnect side effects for the name.
func (r *registry) drop(c *client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.markDead()
	return r.clients[c.name] == c
}

func (r *registry) lookup(name string) *client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clients[name]
}
