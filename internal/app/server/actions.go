package server

import (
	"encoding/json"
	"fmt"

	"github.com/Matir03/ttc-server/internal/domains/entities"
)

// Inbound actions form two closed sets, one per room scope. A connection
// in the lobby may only send lobby actions; a connection in a game room
// may only send game actions. Anything else is dropped.

type LobbyAction interface{ lobbyAction() }

type MakeSeek struct {
	Color     entities.SeekColor   `json:"color"`
	TimeWhite entities.TimeControl `json:"timeWhite"`
	TimeBlack entities.TimeControl `json:"timeBlack"`
	Opponent  string               `json:"opponent"`
}

type DeleteSeek struct {
	Id int `json:"id"`
}

type AcceptSeek struct {
	Id int `json:"id"`
}

type LobbyChat struct {
	Message string `json:"message"`
}

type WatchGame struct {
	Id int `json:"id"`
}

type WatchPlayer struct {
	Name string `json:"name"`
}

func (MakeSeek) lobbyAction()    {}
func (DeleteSeek) lobbyAction()  {}
func (AcceptSeek) lobbyAction()  {}
func (LobbyChat) lobbyAction()   {}
func (WatchGame) lobbyAction()   {}
func (WatchPlayer) lobbyAction() {}

type GameAction interface{ gameAction() }

type MakeMove struct {
	Move string `json:"move"`
}

type GameChat struct {
	Message string `json:"message"`
}

type (
	Resign      struct{}
	OfferDraw   struct{}
	AcceptDraw  struct{}
	DeclineDraw struct{}
	ClaimDraw   struct{}
	ExitGame    struct{}
	Rematch     struct{}
)

func (MakeMove) gameAction()    {}
func (GameChat) gameAction()    {}
func (Resign) gameAction()      {}
func (OfferDraw) gameAction()   {}
func (AcceptDraw) gameAction()  {}
func (DeclineDraw) gameAction() {}
func (ClaimDraw) gameAction()   {}
func (ExitGame) gameAction()    {}
func (Rematch) gameAction()     {}

type envelope struct {
	Kind string `json:"kind"`
}

func decodeLobbyAction(data []byte) (LobbyAction, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case "MakeSeek":
		var a MakeSeek
		return a, json.Unmarshal(data, &a)
	case "DeleteSeek":
		var a DeleteSeek
		return a, json.Unmarshal(data, &a)
	case "AcceptSeek":
		var a AcceptSeek
		return a, json.Unmarshal(data, &a)
	case "ChatAction":
		var a LobbyChat
		return a, json.Unmarshal(data, &a)
	case "WatchGame":
		var a WatchGame
		return a, json.Unmarshal(data, &a)
	case "WatchPlayer":
		var a WatchPlayer
		return a, json.Unmarshal(data, &a)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Kind)
}

func decodeGameAction(data []byte) (GameAction, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case "MakeMove":
		var a MakeMove
		return a, json.Unmarshal(data, &a)
	case "ChatAction":
		var a GameChat
		return a, json.Unmarshal(data, &a)
	case "Resign":
		return Resign{}, nil
	case "OfferDraw":
		return OfferDraw{}, nil
	case "AcceptDraw":
		return AcceptDraw{}, nil
	case "DeclineDraw":
		return DeclineDraw{}, nil
	case "ClaimDraw":
		return ClaimDraw{}, nil
	case "ExitGame":
		return ExitGame{}, nil
	case "Rematch":
		return Rematch{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Kind)
}
