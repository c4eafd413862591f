package server

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/Matir03/ttc-server/internal/domains/entities"
	"github.com/Matir03/ttc-server/internal/engine"
	"github.com/Matir03/ttc-server/pkg/logging"
)

// rematchNever permanently blocks rematch offers once either player has
// exited the room.
const rematchNever = "never"

// session is the state machine for one match. Every mutating entry point
// (player actions and the flag-fall callback) takes mu, so events for a
// session are handled strictly one at a time.
type session struct {
	id    int
	white string
	black string
	srv   *server

	mu            sync.Mutex
	game          *engine.Game
	playerChat    []entities.ChatMessage
	spectatorChat []entities.ChatMessage
	drawOffer     string
	rematch       string
	ended         bool
	clock         entities.ClockInfo

	pendingTimer  clockwork.Timer
	pendingCancel chan struct{}
	timerGen      uint64
}

func newSession(srv *server, id int, white, black string, timeWhite, timeBlack entities.TimeControl) *session {
	s := &session{
		id:    id,
		white: white,
		black: black,
		srv:   srv,
		game:  engine.NewGame(),
		clock: entities.ClockInfo{
			White:     timeWhite,
			Black:     timeBlack,
			Timestamp: srv.clock.clk.Now(),
		},
	}
	s.playerChat = append(s.playerChat, entities.ChatMessage{
		Text: fmt.Sprintf("New game started between %s and %s", white, black),
	})
	return s
}

func (s *session) room() string {
	return "game" + strconv.Itoa(s.id)
}

func (s *session) participant(name string) bool {
	return name == s.white || name == s.black
}

func (s *session) colorOf(name string) engine.Color {
	if name == s.white {
		return engine.White
	}
	return engine.Black
}

func (s *session) nameOf(color engine.Color) string {
	if color == engine.White {
		return s.white
	}
	return s.black
}

func (s *session) isEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// handle applies one game action on behalf of name. Spectators may only
// chat and leave; everything else from them is dropped. Invalid actions
// are silent no-ops: the client is assumed to act on a stale snapshot,
// and the server just keeps state consistent.
func (s *session) handle(name string, action GameAction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.participant(name) {
		switch a := action.(type) {
		case GameChat:
			s.spectatorChatLocked(name, a.Message)
		case ExitGame:
			s.srv.routeToLobby(name)
		default:
			logging.Info("spectator action dropped",
				zap.Int("game_id", s.id),
				zap.String("player", name),
			)
		}
		return
	}

	switch a := action.(type) {
	case MakeMove:
		s.makeMoveLocked(name, a.Move)
	case GameChat:
		s.playerChatLocked(name, a.Message)
	case Resign:
		s.resignLocked(name)
	case OfferDraw:
		s.offerDrawLocked(name)
	case AcceptDraw:
		s.acceptDrawLocked(name)
	case DeclineDraw:
		s.declineDrawLocked(name)
	case ClaimDraw:
		s.claimDrawLocked(name)
	case ExitGame:
		s.exitGameLocked(name)
	case Rematch:
		s.rematchLocked(name)
	}
}

func (s *session) makeMoveLocked(name, move string) {
	if s.ended {
		return
	}
	color := s.colorOf(name)
	if s.game.Turn() != color {
		logging.Info("move out of turn",
			zap.Int("game_id", s.id),
			zap.String("player", name),
		)
		return
	}
	if !s.game.MakeMove(move) {
		logging.Info("illegal move",
			zap.Int("game_id", s.id),
			zap.String("player", name),
			zap.String("move", move),
		)
		return
	}

	s.srv.clock.onMove(s, color)
	s.srv.hub.broadcast(s.room(), PerformMove{
		Kind:      "PerformMove",
		Move:      move,
		Color:     color,
		Timestamp: s.srv.clock.clk.Now(),
	})

	if result := s.game.Result(); result != engine.None {
		s.endGameLocked(result)
		return
	}

	// A move implicitly declines a draw offered by the opponent, but
	// not one offered by the mover.
	if s.drawOffer != "" && s.drawOffer != name {
		s.drawOffer = ""
	}
}

func (s *session) playerChatLocked(name, text string) {
	msg := entities.ChatMessage{Sender: name, Text: text}
	s.playerChat = append(s.playerChat, msg)
	s.srv.hub.broadcast(s.room(), ChatEvent{Kind: "ChatEvent", Message: msg})
}

// spectatorChatLocked goes to the spectator log and spectator
// subscribers only; it must never reach the players' chat.
func (s *session) spectatorChatLocked(name, text string) {
	msg := entities.ChatMessage{Sender: name, Text: text}
	s.spectatorChat = append(s.spectatorChat, msg)
	s.srv.hub.broadcastExcept(s.room(), ChatEvent{Kind: "ChatEvent", Message: msg}, s.white, s.black)
}

// systemLocked posts a server notice into the player chat, which reaches
// the whole room.
func (s *session) systemLocked(text string) {
	s.playerChatLocked("", text)
}

func (s *session) resignLocked(name string) {
	if s.ended {
		return
	}
	s.systemLocked(fmt.Sprintf("%s resigned", name))
	winner := engine.Opposite(s.colorOf(name))
	if winner == engine.White {
		s.endGameLocked(engine.WhiteWon)
	} else {
		s.endGameLocked(engine.BlackWon)
	}
}

func (s *session) offerDrawLocked(name string) {
	if s.ended {
		return
	}
	if s.drawOffer == name {
		return
	}
	if s.drawOffer != "" {
		// The opponent already offered: this is an acceptance.
		s.systemLocked("Players agreed to a draw")
		s.endGameLocked(engine.Draw)
		return
	}
	s.drawOffer = name
	s.systemLocked(fmt.Sprintf("%s offered a draw", name))
	s.srv.hub.broadcast(s.room(), DrawOffered{Kind: "DrawOffered", Player: name})
}

func (s *session) acceptDrawLocked(name string) {
	if s.ended || s.drawOffer == "" || s.drawOffer == name {
		return
	}
	s.systemLocked(fmt.Sprintf("%s accepted a draw", name))
	s.endGameLocked(engine.Draw)
}

func (s *session) declineDrawLocked(name string) {
	if s.ended || s.drawOffer == "" || s.drawOffer == name {
		return
	}
	s.drawOffer = ""
	s.systemLocked(fmt.Sprintf("%s declined a draw", name))
}

func (s *session) claimDrawLocked(name string) {
	if s.ended || !s.game.CanClaimDraw() {
		return
	}
	s.systemLocked(fmt.Sprintf("%s claimed a draw", name))
	s.endGameLocked(engine.Draw)
}

func (s *session) exitGameLocked(name string) {
	if !s.ended {
		return
	}
	s.rematch = rematchNever
	s.systemLocked(fmt.Sprintf("%s left the game", name))
	s.srv.routeToLobby(name)
	s.srv.disposeIfAbandoned(s)
}

func (s *session) rematchLocked(name string) {
	if !s.ended {
		return
	}
	if s.rematch != "" {
		if s.rematch == name || s.rematch == rematchNever {
			return
		}
		s.systemLocked("Players agreed to a rematch")
		s.rematch = ""
		s.srv.startRematch(s)
		return
	}
	s.rematch = name
	s.systemLocked(fmt.Sprintf("%s wants a rematch", name))
}

// flagFall is the timer callback: the side on move ran out of time. gen
// guards against a timer that fired while a move was being processed;
// only the currently armed generation may end the game.
func (s *session) flagFall(side engine.Color, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || gen != s.timerGen {
		return
	}
	s.systemLocked(fmt.Sprintf("%s ran out of time", s.nameOf(side)))
	if engine.Opposite(side) == engine.White {
		s.endGameLocked(engine.WhiteWon)
	} else {
		s.endGameLocked(engine.BlackWon)
	}
}

// endGameLocked terminates the session exactly once: cancels the pending
// timer, posts the summary to the room, notifies the lobby and marks the
// session ended.
func (s *session) endGameLocked(result engine.Result) {
	if s.ended {
		return
	}
	s.srv.clock.cancel(s)

	var summary, status, lobbyLine string
	switch result {
	case engine.Draw:
		summary = "Game ended in a draw"
		status = "draw"
		lobbyLine = fmt.Sprintf("%s and %s drew", s.white, s.black)
	case engine.WhiteWon:
		summary = "Game ended in a win for white"
		status = "white won"
		lobbyLine = fmt.Sprintf("%s won against %s", s.white, s.black)
	default:
		summary = "Game ended in a win for black"
		status = "black won"
		lobbyLine = fmt.Sprintf("%s won against %s", s.black, s.white)
	}

	s.systemLocked(summary)
	s.srv.hub.broadcast(s.room(), GameEnd{Kind: "GameEnd"})
	s.srv.lobby.updateGame(entities.LobbyGame{
		Id:     s.id,
		White:  s.white,
		Black:  s.black,
		Status: status,
	})
	s.srv.lobby.appendChat(entities.ChatMessage{Text: lobbyLine})
	s.ended = true

	logging.Info("game ended",
		zap.Int("game_id", s.id),
		zap.String("status", status),
	)
}

// snapshotFor builds the full session state for a connection joining the
// room. Players see the player chat, spectators the spectator chat.
func (s *session) snapshotFor(name string) GameState {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.playerChat
	if !s.participant(name) {
		chat = s.spectatorChat
	}
	chatCopy := make([]entities.ChatMessage, len(chat))
	copy(chatCopy, chat)

	clock := s.clock
	clock.Timeleft = append([]int64(nil), s.clock.Timeleft...)

	return GameState{
		Kind:      "GameState",
		White:     s.white,
		Black:     s.black,
		Moves:     s.game.Moves(),
		Chat:      chatCopy,
		Clock:     clock,
		DrawOffer: s.drawOffer,
		Ended:     s.ended,
	}
}
