package server

import (
	"time"

	"github.com/Matir03/ttc-server/internal/domains/entities"
	"github.com/Matir03/ttc-server/internal/engine"
)

// Outbound events. Every event carries its kind tag in the frame so
// clients can dispatch without sniffing fields.

type Event interface{ event() }

type AddSeek struct {
	Kind string        `json:"kind"`
	Seek entities.Seek `json:"seek"`
}

type RemoveSeek struct {
	Kind string `json:"kind"`
	Id   int    `json:"id"`
}

type UpdateGame struct {
	Kind string             `json:"kind"`
	Game entities.LobbyGame `json:"game"`
}

type UpdatePlayer struct {
	Kind   string               `json:"kind"`
	Player entities.LobbyPlayer `json:"player"`
}

type ChatEvent struct {
	Kind    string               `json:"kind"`
	Message entities.ChatMessage `json:"message"`
}

// LobbyState is the full snapshot sent to a connection joining the lobby.
// Seeks are filtered per connection, see lobby.snapshotFor.
type LobbyState struct {
	Kind    string                 `json:"kind"`
	Seeks   []entities.Seek        `json:"seeks"`
	Games   []entities.LobbyGame   `json:"games"`
	Players []entities.LobbyPlayer `json:"players"`
	Chat    []entities.ChatMessage `json:"chat"`
}

type PerformMove struct {
	Kind      string       `json:"kind"`
	Move      string       `json:"move"`
	Color     engine.Color `json:"color"`
	Timestamp time.Time    `json:"timestamp"`
}

type DrawOffered struct {
	Kind   string `json:"kind"`
	Player string `json:"player"`
}

type GameEnd struct {
	Kind string `json:"kind"`
}

// GameState is the full snapshot sent to a connection joining a game
// room. Chat varies by role: players get the player chat, spectators the
// spectator chat.
type GameState struct {
	Kind      string                 `json:"kind"`
	White     string                 `json:"white"`
	Black     string                 `json:"black"`
	Moves     []string               `json:"moves"`
	Chat      []entities.ChatMessage `json:"chat"`
	Clock     entities.ClockInfo     `json:"clock"`
	DrawOffer string                 `json:"drawOffer"`
	Ended     bool                   `json:"ended"`
}

func (AddSeek) event()      {}
func (RemoveSeek) event()   {}
func (UpdateGame) event()   {}
func (UpdatePlayer) event() {}
func (ChatEvent) event()    {}
func (LobbyState) event()   {}
func (PerformMove) event()  {}
func (DrawOffered) event()  {}
func (GameEnd) event()      {}
func (GameState) event()    {}
