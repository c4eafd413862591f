package server

import "sync"

// hub is the room-based publish/subscribe fabric. Rooms are identified by
// string: "lobby" or "game<id>". Within a room, members are keyed by
// display name since at most one connection per name is ever live.
type hub struct {
	mu    sync.Mutex
	rooms map[string]map[string]*client
}

func newHub() *hub {
	return &hub{rooms: make(map[string]map[string]*client)}
}

func (h *hub) join(room string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*client)
		h.rooms[room] = members
	}
	members[c.name] = c
}

// leave removes the client from the room, but only if it is still the
// member registered under its name. A reconnected client that already
// took over the slot is left alone.
func (h *hub) leave(room string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	if members[c.name] == c {
		delete(members, c.name)
	}
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *hub) broadcast(room string, ev Event) {
	for _, c := range h.members(room, nil) {
		c.deliver(ev)
	}
}

func (h *hub) broadcastExcept(room string, ev Event, except ...string) {
	for _, c := range h.members(room, except) {
		c.deliver(ev)
	}
}

// sendTo delivers to a single named member of the room, dropping the
// event if the name is not present there.
func (h *hub) sendTo(room, name string, ev Event) {
	h.mu.Lock()
	c, ok := h.rooms[room][name]
	h.mu.Unlock()
	if ok {
		c.deliver(ev)
	}
}

func (h *hub) members(room string, except []string) []*client {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.rooms[room]
	out := make([]*client, 0, len(members))
	for name, c := range members {
		if contains(except, name) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
