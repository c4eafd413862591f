package server

import (
	"sort"
	"sync"

	"github.com/Matir03/ttc-server/internal/domains/entities"
)

const lobbyRoom = "lobby"

// lobby is the authoritative matchmaking state: open seeks, the game
// history record, player statuses and the lobby chat. Every mutator
// broadcasts its own delta while still holding the lock; nothing else
// broadcasts lobby events. That keeps state and notification atomic, so
// subscribers observe deltas in the order they were applied.
type lobby struct {
	mu         sync.Mutex
	hub        *hub
	nextSeekId int
	seeks      map[int]entities.Seek
	games      map[int]entities.LobbyGame
	players    map[string]entities.LobbyPlayer
	chat       []entities.ChatMessage
}

func newLobby(h *hub) *lobby {
	return &lobby{
		hub:     h,
		seeks:   make(map[int]entities.Seek),
		games:   make(map[int]entities.LobbyGame),
		players: make(map[string]entities.LobbyPlayer),
	}
}

// insertSeek assigns the next seek id, stores the seek and broadcasts
// AddSeek. A targeted seek is announced only to its owner and the named
// opponent; nobody else ever learns it exists.
func (l *lobby) insertSeek(seek entities.Seek) entities.Seek {
	l.mu.Lock()
	defer l.mu.Unlock()
	seek.Id = l.nextSeekId
	l.nextSeekId++
	l.seeks[seek.Id] = seek

	ev := AddSeek{Kind: "AddSeek", Seek: seek}
	if seek.Opponent == "" {
		l.hub.broadcast(lobbyRoom, ev)
	} else {
		l.hub.sendTo(lobbyRoom, seek.Player, ev)
		l.hub.sendTo(lobbyRoom, seek.Opponent, ev)
	}
	return seek
}

// removeSeek drops the seek and broadcasts RemoveSeek; no-op if absent.
func (l *lobby) removeSeek(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removeSeekLocked(id)
}

func (l *lobby) removeSeekLocked(id int) {
	seek, ok := l.seeks[id]
	if !ok {
		return
	}
	delete(l.seeks, id)

	ev := RemoveSeek{Kind: "RemoveSeek", Id: id}
	if seek.Opponent == "" {
		l.hub.broadcast(lobbyRoom, ev)
	} else {
		l.hub.sendTo(lobbyRoom, seek.Player, ev)
		l.hub.sendTo(lobbyRoom, seek.Opponent, ev)
	}
}

// removePlayerSeeks removes every seek owned by the player. A player
// entering a game abandons all their open offers.
func (l *lobby) removePlayerSeeks(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, seek := range l.seeks {
		if seek.Player == name {
			l.removeSeekLocked(id)
		}
	}
}

func (l *lobby) seek(id int) (entities.Seek, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	seek, ok := l.seeks[id]
	return seek, ok
}

func (l *lobby) updateGame(game entities.LobbyGame) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.games[game.Id] = game
	l.hub.broadcast(lobbyRoom, UpdateGame{Kind: "UpdateGame", Game: game})
}

func (l *lobby) updatePlayer(player entities.LobbyPlayer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.players[player.Name] = player
	l.hub.broadcast(lobbyRoom, UpdatePlayer{Kind: "UpdatePlayer", Player: player})
}

func (l *lobby) playerStatus(name string) entities.PlayerStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	player, ok := l.players[name]
	if !ok {
		return entities.StatusOffline
	}
	return player.Status
}

func (l *lobby) appendChat(msg entities.ChatMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.chat = append(l.chat, msg)
	l.hub.broadcast(lobbyRoom, ChatEvent{Kind: "ChatEvent", Message: msg})
}

// snapshotFor builds the full lobby state for a joining connection.
// Seeks are filtered to public ones, the connection's own, and those
// targeted at it.
func (l *lobby) snapshotFor(name string) LobbyState {
	l.mu.Lock()
	defer l.mu.Unlock()

	seeks := make([]entities.Seek, 0, len(l.seeks))
	for _, seek := range l.seeks {
		if seek.Opponent == "" || seek.Player == name || seek.Opponent == name {
			seeks = append(seeks, seek)
		}
	}
	sort.Slice(seeks, func(i, j int) bool { return seeks[i].Id < seeks[j].Id })

	games := make([]entities.LobbyGame, 0, len(l.games))
	for _, game := range l.games {
		games = append(games, game)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].Id < games[j].Id })

	players := make([]entities.LobbyPlayer, 0, len(l.players))
	for _, player := range l.players {
		players = append(players, player)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Name < players[j].Name })

	chat := make([]entities.ChatMessage, len(l.chat))
	copy(chat, l.chat)

	return LobbyState{
		Kind:    "LobbyState",
		Seeks:   seeks,
		Games:   games,
		Players: players,
		Chat:    chat,
	}
}
