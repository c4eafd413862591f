package server

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/Matir03/ttc-server/internal/domains/entities"
)

// testWire records delivered events in memory instead of writing to a
// websocket.
type testWire struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (w *testWire) deliver(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, ev)
}

func (w *testWire) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

func (w *testWire) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *testWire) all() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Event, len(w.events))
	copy(out, w.events)
	return out
}

func (w *testWire) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = nil
}

func eventsOf[T Event](w *testWire) []T {
	var out []T
	for _, ev := range w.all() {
		if typed, ok := ev.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

func newTestServer(t *testing.T) (*server, *clockwork.FakeClock) {
	t.Helper()
	clk := clockwork.NewFakeClock()
	cfg := Config{
		Port:           "0",
		WriteTimeout:   time.Second,
		MaxMessageSize: 4096,
	}
	return newServer(cfg, clk), clk
}

// joinPlayer registers a name as a fresh connection and routes it into
// its room, the way serveConn does after a valid join frame.
func joinPlayer(t *testing.T, srv *server, name string) (*client, *testWire) {
	t.Helper()
	w := &testWire{}
	c := newClient(name, w)
	room, err := srv.reg.bind(c)
	require.NoError(t, err)
	srv.changeRoom(c, room)
	return c, w
}

// startTimedGame runs the matchmaking path for a game between alice
// (White) and bob (Black) with the given controls and returns the
// session.
func startTimedGame(t *testing.T, srv *server, timeWhite, timeBlack entities.TimeControl) (*session, *client, *client, *testWire, *testWire) {
	t.Helper()
	alice, aliceWire := joinPlayer(t, srv, "alice")
	bob, bobWire := joinPlayer(t, srv, "bob")

	srv.handleLobbyAction(alice, MakeSeek{
		Color:     entities.SeekWhite,
		TimeWhite: timeWhite,
		TimeBlack: timeBlack,
	})
	srv.handleLobbyAction(bob, AcceptSeek{Id: 0})

	srv.mu.Lock()
	sess := srv.sessions[0]
	srv.mu.Unlock()
	require.NotNil(t, sess)
	require.Equal(t, "alice", sess.white)
	require.Equal(t, "bob", sess.black)
	return sess, alice, bob, aliceWire, bobWire
}
