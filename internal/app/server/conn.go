package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Matir03/ttc-server/pkg/logging"
)

// wire is the transport half of a connection: it takes outbound events
// and can be torn down. The websocket implementation lives below; tests
// substitute an in-memory one.
type wire interface {
	deliver(ev Event)
	close()
}

// client binds a display name to one physical connection and remembers
// which room the connection is in. A client that lost its transport stays
// registered (dead) so a reconnection can inherit its room.
type client struct {
	id   string
	name string
	w    wire

	mu   sync.Mutex
	room string
	live bool
}

func newClient(name string, w wire) *client {
	return &client{
		id:   uuid.NewString(),
		name: name,
		w:    w,
		live: true,
	}
}

func (c *client) deliver(ev Event) {
	c.w.deliver(ev)
}

func (c *client) currentRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *client) setRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.room = room
}

func (c *client) alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

func (c *client) markDead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.live = false
}

// terminate drops the transport; the read loop then observes the close
// and runs the disconnect path.
func (c *client) terminate() {
	c.markDead()
	c.w.close()
}

// wsWire sends events over a gorilla websocket connection through a
// buffered channel drained by a single write pump, so broadcasts never
// block on a slow peer.
type wsWire struct {
	conn         *websocket.Conn
	send         chan []byte
	writeTimeout time.Duration
	closeOnce    sync.Once
	done         chan struct{}
}

func newWsWire(conn *websocket.Conn, writeTimeout time.Duration) *wsWire {
	w := &wsWire{
		conn:         conn,
		send:         make(chan []byte, 64),
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
	go w.writePump()
	return w
}

func (w *wsWire) deliver(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		logging.Error("failed to encode event", zap.Error(err))
		return
	}
	select {
	case w.send <- data:
	case <-w.done:
	default:
		logging.Warn("send buffer full, dropping connection",
			zap.String("remote_address", w.conn.RemoteAddr().String()),
		)
		w.close()
	}
}

func (w *wsWire) writePump() {
	for {
		select {
		case data := <-w.send:
			w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
			if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				w.close()
				return
			}
		case <-w.done:
			return
		}
	}
}

func (w *wsWire) close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.conn.Close()
	})
}
