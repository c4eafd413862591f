package entities

import "time"

type SeekColor string

const (
	SeekWhite  SeekColor = "White"
	SeekBlack  SeekColor = "Black"
	SeekRandom SeekColor = "Random"
)

// TimeControl is immutable once a session starts. Values are milliseconds.
type TimeControl struct {
	Base      int64 `json:"base"`
	Increment int64 `json:"increment"`
}

// Seek is an open offer to start a game. An empty Opponent means anyone
// may accept; otherwise only the named player sees and may accept it.
type Seek struct {
	Id        int         `json:"id"`
	Player    string      `json:"player"`
	Opponent  string      `json:"opponent"`
	Color     SeekColor   `json:"color"`
	TimeWhite TimeControl `json:"timeWhite"`
	TimeBlack TimeControl `json:"timeBlack"`
}

type PlayerStatus string

const (
	StatusOnline     PlayerStatus = "online"
	StatusOffline    PlayerStatus = "offline"
	StatusPlaying    PlayerStatus = "playing"
	StatusSpectating PlayerStatus = "spectating"
)

type LobbyPlayer struct {
	Name   string       `json:"name"`
	Status PlayerStatus `json:"status"`
}

// LobbyGame is the lobby's record of a session. Entries are upserted on
// state transitions and never deleted.
type LobbyGame struct {
	Id     int    `json:"id"`
	White  string `json:"white"`
	Black  string `json:"black"`
	Status string `json:"status"`
}

// ChatMessage with an empty sender is a system message.
type ChatMessage struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// ClockInfo tracks both players' clocks for one session. Timeleft holds
// remaining milliseconds after each completed move; even indices belong
// to White, odd to Black.
type ClockInfo struct {
	White     TimeControl `json:"white"`
	Black     TimeControl `json:"black"`
	Timeleft  []int64     `json:"timeleft"`
	Timestamp time.Time   `json:"timestamp"`
}
