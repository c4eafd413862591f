package server

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/Matir03/ttc-server/internal/domains/entities"
	"github.com/Matir03/ttc-server/pkg/logging"
)

// server is the orchestrator: it owns the lobby, the connection registry
// and the session map, and wires inbound actions to them. One instance
// per process, created at startup, never reset.
type server struct {
	address  string
	upgrader websocket.Upgrader
	config   Config

	hub   *hub
	lobby *lobby
	reg   *registry
	clock *clockScheduler
	coin  func() bool

	mu         sync.Mutex
	sessions   map[int]*session
	nextGameId int
}

func NewServer() *server {
	return newServer(NewConfig(), clockwork.NewRealClock())
}

func newServer(cfg Config, clk clockwork.Clock) *server {
	h := newHub()
	return &server{
		address: "0.0.0.0:" + cfg.Port,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		config:   cfg,
		hub:      h,
		lobby:    newLobby(h),
		reg:      newRegistry(),
		clock:    &clockScheduler{clk: clk},
		coin:     func() bool { return rand.Intn(2) == 0 },
		sessions: make(map[int]*session),
	}
}

// Start method    starts the game server
func (s *server) Start() error {
	http.HandleFunc("/play", func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Error(
				"failed to upgrade connection",
				zap.String("error", err.Error()),
			)
			return
		}
		s.serveConn(conn)
	})
	logging.Info("websocket server started", zap.String("port", s.config.Port))
	return http.ListenAndServe(s.address, nil)
}

// serveConn runs the read loop for one physical connection. The first
// frame must identify the player; an empty name is a protocol violation
// and terminates the connection.
func (s *server) serveConn(conn *websocket.Conn) {
	conn.SetReadLimit(s.config.MaxMessageSize)

	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return
	}
	name, err := parseJoin(data)
	if err != nil {
		logging.Info("connection sent invalid join frame",
			zap.String("remote_address", conn.RemoteAddr().String()),
			zap.Error(err),
		)
		conn.Close()
		return
	}

	c := newClient(name, newWsWire(conn, s.config.WriteTimeout))
	room, err := s.reg.bind(c)
	if err != nil {
		// The old connection is still live; the new one loses.
		logging.Info("duplicate login rejected",
			zap.String("player", name),
			zap.String("connection_id", c.id),
		)
		c.terminate()
		return
	}
	logging.Info("player joined",
		zap.String("player", name),
		zap.String("connection_id", c.id),
		zap.String("room", room),
	)
	s.changeRoom(c, room)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.handleDisconnect(c)
			logging.Info("connection closed",
				zap.String("player", c.name),
				zap.Error(err),
			)
			return
		}
		s.dispatch(c, data)
	}
}

// parseJoin validates the identification frame that must open every
// connection.
func parseJoin(data []byte) (string, error) {
	var join struct {
		Kind string `json:"kind"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &join); err != nil {
		return "", err
	}
	if join.Kind != "Join" {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, join.Kind)
	}
	if join.Name == "" {
		return "", ErrEmptyName
	}
	return join.Name, nil
}

// dispatch decodes the frame against the scope of the room the
// connection is currently in. Unknown kinds are dropped, not answered.
func (s *server) dispatch(c *client, data []byte) {
	room := c.currentRoom()
	if room == lobbyRoom {
		action, err := decodeLobbyAction(data)
		if err != nil {
			logging.Info("dropped lobby action",
				zap.String("player", c.name), zap.Error(err))
			return
		}
		s.handleLobbyAction(c, action)
		return
	}

	action, err := decodeGameAction(data)
	if err != nil {
		logging.Info("dropped game action",
			zap.String("player", c.name), zap.Error(err))
		return
	}
	sess := s.sessionByRoom(room)
	if sess == nil {
		// The session was disposed while this connection was still in
		// its room; the lobby is the only place left to go.
		logging.Info("game action for missing session",
			zap.String("player", c.name), zap.String("room", room))
		s.changeRoom(c, lobbyRoom)
		return
	}
	sess.handle(c.name, action)
}

func (s *server) handleLobbyAction(c *client, action LobbyAction) {
	switch a := action.(type) {
	case MakeSeek:
		if !validSeekColor(a.Color) || a.TimeWhite.Base < 0 || a.TimeBlack.Base < 0 ||
			a.TimeWhite.Increment < 0 || a.TimeBlack.Increment < 0 {
			logging.Info("dropped malformed seek", zap.String("player", c.name))
			return
		}
		s.lobby.insertSeek(entities.Seek{
			Player:    c.name,
			Opponent:  a.Opponent,
			Color:     a.Color,
			TimeWhite: a.TimeWhite,
			TimeBlack: a.TimeBlack,
		})
	case DeleteSeek:
		if seek, ok := s.lobby.seek(a.Id); ok && seek.Player == c.name {
			s.lobby.removeSeek(a.Id)
		}
	case AcceptSeek:
		s.acceptSeek(c, a.Id)
	case LobbyChat:
		s.lobby.appendChat(entities.ChatMessage{Sender: c.name, Text: a.Message})
	case WatchGame:
		s.mu.Lock()
		sess := s.sessions[a.Id]
		s.mu.Unlock()
		if sess != nil {
			s.changeRoom(c, sess.room())
		}
	case WatchPlayer:
		if sess := s.findActiveSession(a.Name); sess != nil {
			s.changeRoom(c, sess.room())
		}
	}
}

// acceptSeek resolves a seek into a new session. Lookup and removal
// happen under the orchestrator lock so that two racing acceptances of
// the same seek resolve to first wins, second no-op.
func (s *server) acceptSeek(c *client, id int) {
	name := c.name

	s.mu.Lock()
	seek, ok := s.lobby.seek(id)
	if !ok || seek.Player == name ||
		(seek.Opponent != "" && seek.Opponent != name) {
		s.mu.Unlock()
		return
	}
	owner := s.reg.lookup(seek.Player)
	if owner == nil || !owner.alive() {
		s.lobby.removeSeek(seek.Id)
		s.mu.Unlock()
		return
	}

	// Black seek: accepter plays White. White seek: accepter plays
	// Black. Random: coin flip.
	accepterWhite := seek.Color == entities.SeekBlack ||
		(seek.Color == entities.SeekRandom && s.coin())
	white, black := seek.Player, name
	if accepterWhite {
		white, black = name, seek.Player
	}

	sess := s.createSessionLocked(white, black, seek.TimeWhite, seek.TimeBlack)
	s.lobby.removePlayerSeeks(seek.Player)
	s.lobby.removePlayerSeeks(name)
	s.mu.Unlock()

	s.launch(sess)
}

// startRematch spins up the follow-up session for a finished one: colors
// swapped, each player keeping their own time control, fresh clock.
// Called with the old session's lock held.
func (s *server) startRematch(old *session) {
	s.mu.Lock()
	sess := s.createSessionLocked(old.black, old.white, old.clock.Black, old.clock.White)
	s.mu.Unlock()
	s.launch(sess)
	// Both players are in the new room now, so the finished session can
	// go; its spectators return to the lobby.
	s.disposeIfAbandoned(old)
}

func (s *server) createSessionLocked(white, black string, timeWhite, timeBlack entities.TimeControl) *session {
	id := s.nextGameId
	s.nextGameId++
	sess := newSession(s, id, white, black, timeWhite, timeBlack)
	s.sessions[id] = sess
	return sess
}

// launch arms the clock, routes both players into the room and announces
// the game to the lobby.
func (s *server) launch(sess *session) {
	sess.mu.Lock()
	s.clock.start(sess)
	sess.mu.Unlock()

	s.routeToGame(sess.white, sess)
	s.routeToGame(sess.black, sess)

	s.lobby.updateGame(entities.LobbyGame{
		Id:     sess.id,
		White:  sess.white,
		Black:  sess.black,
		Status: "playing",
	})
	s.lobby.appendChat(entities.ChatMessage{
		Text: sess.white + " and " + sess.black + " are playing",
	})
	logging.Info("game started",
		zap.Int("game_id", sess.id),
		zap.String("white", sess.white),
		zap.String("black", sess.black),
	)
}

func (s *server) routeToGame(name string, sess *session) {
	if c := s.reg.lookup(name); c != nil && c.alive() {
		s.changeRoom(c, sess.room())
	}
}

func (s *server) routeToLobby(name string) {
	if c := s.reg.lookup(name); c != nil && c.alive() {
		s.changeRoom(c, lobbyRoom)
	}
}

// changeRoom moves a connection between rooms: no-op if already there,
// otherwise leave old, join new, one snapshot, one player-status update.
// A game room whose session is gone falls back to the lobby, so a
// reconnection into a disposed game still gets a snapshot.
func (s *server) changeRoom(c *client, room string) {
	var sess *session
	if room != lobbyRoom {
		sess = s.sessionByRoom(room)
		if sess == nil {
			logging.Info("room without session, rerouting to lobby",
				zap.String("room", room), zap.String("player", c.name))
			room = lobbyRoom
		}
	}

	old := c.currentRoom()
	if old == room {
		return
	}
	if old != "" {
		s.hub.leave(old, c)
	}
	c.setRoom(room)
	s.hub.join(room, c)

	if room == lobbyRoom {
		c.deliver(s.lobby.snapshotFor(c.name))
		s.lobby.updatePlayer(entities.LobbyPlayer{
			Name:   c.name,
			Status: entities.StatusOnline,
		})
		return
	}

	c.deliver(sess.snapshotFor(c.name))
	status := entities.StatusSpectating
	if sess.participant(c.name) {
		status = entities.StatusPlaying
	}
	s.lobby.updatePlayer(entities.LobbyPlayer{Name: c.name, Status: status})
}

func (s *server) handleDisconnect(c *client) {
	c.w.close()
	if !s.reg.drop(c) {
		// Already replaced by a newer connection for this name.
		return
	}
	room := c.currentRoom()
	s.hub.leave(room, c)
	s.lobby.updatePlayer(entities.LobbyPlayer{
		Name:   c.name,
		Status: entities.StatusOffline,
	})
	if room == lobbyRoom {
		s.lobby.removePlayerSeeks(c.name)
	}
}

func (s *server) sessionByRoom(room string) *session {
	id, ok := parseGameRoom(room)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// findActiveSession returns an unfinished session the player is part of.
// Ended-state checks happen outside the orchestrator lock; participant
// names are immutable.
func (s *server) findActiveSession(name string) *session {
	s.mu.Lock()
	var candidates []*session
	for _, sess := range s.sessions {
		if sess.participant(name) {
			candidates = append(candidates, sess)
		}
	}
	s.mu.Unlock()
	for _, sess := range candidates {
		if !sess.isEnded() {
			return sess
		}
	}
	return nil
}

// disposeIfAbandoned drops the session once neither player is in its
// room anymore. The lobby's game record stays; it is the history view.
func (s *server) disposeIfAbandoned(sess *session) {
	room := sess.room()
	for _, name := range []string{sess.white, sess.black} {
		if c := s.reg.lookup(name); c != nil && c.currentRoom() == room {
			return
		}
	}
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()

	// Anyone still in the room is a spectator with no session left to
	// watch; send them back to the lobby.
	for _, c := range s.hub.members(room, nil) {
		s.changeRoom(c, lobbyRoom)
	}
	logging.Info("session disposed", zap.Int("game_id", sess.id))
}

func validSeekColor(c entities.SeekColor) bool {
	return c == entities.SeekWhite || c == entities.SeekBlack || c == entities.SeekRandom
}

func parseGameRoom(room string) (int, bool) {
	const prefix = "game"
	if len(room) <= len(prefix) || room[:len(prefix)] != prefix {
		return 0, false
	}
	id := 0
	for _, r := range room[len(prefix):] {
		if r < '0' || r > '9' {
			return 0, false
		}
		id = id*10 + int(r-'0')
	}
	return id, true
}
