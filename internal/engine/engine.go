// Package engine wraps the board representation and move legality rules
// behind the narrow contract the session layer needs. The session layer
// never inspects positions directly; it only relays moves and asks for
// the verdict.
package engine

import (
	"github.com/notnil/chess"
)

type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func Opposite(c Color) Color {
	if c == White {
		return Black
	}
	return White
}

// Result of a game as reported by the board rules. "none" means the game
// is still in progress.
type Result string

const (
	WhiteWon Result = "white"
	BlackWon Result = "black"
	Draw     Result = "draw"
	None     Result = "none"
)

// Game is one board with its move history. Moves are exchanged in UCI
// notation ("e2e4", "e7e8q").
type Game struct {
	inner *chess.Game
}

func NewGame() *Game {
	return &Game{
		inner: chess.NewGame(
			chess.UseNotation(chess.UCINotation{}),
		),
	}
}

// FromFEN builds a game from a position export, for restoring a session
// snapshot without its move history.
func FromFEN(fen string) (*Game, error) {
	withFen, err := chess.FEN(fen)
	if err != nil {
		return nil, err
	}
	return &Game{
		inner: chess.NewGame(
			withFen,
			chess.UseNotation(chess.UCINotation{}),
		),
	}, nil
}

// FromMoves replays a recorded move log from the starting position.
func FromMoves(moves []string) (*Game, error) {
	g := NewGame()
	for _, m := range moves {
		if err := g.inner.MoveStr(m); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Game) Turn() Color {
	if g.inner.Position().Turn() == chess.White {
		return White
	}
	return Black
}

// IsLegal reports whether the move could be played in the current
// position, without applying it.
func (g *Game) IsLegal(move string) bool {
	pos := g.inner.Position()
	decoded, err := chess.UCINotation{}.Decode(pos, move)
	if err != nil {
		return false
	}
	for _, valid := range g.inner.ValidMoves() {
		if valid.String() == decoded.String() {
			return true
		}
	}
	return false
}

// MakeMove applies the move iff it is legal and reports whether it was.
func (g *Game) MakeMove(move string) bool {
	return g.inner.MoveStr(move) == nil
}

func (g *Game) Result() Result {
	switch g.inner.Outcome() {
	case chess.WhiteWon:
		return WhiteWon
	case chess.BlackWon:
		return BlackWon
	case chess.Draw:
		return Draw
	}
	return None
}

// CanClaimDraw reports whether the side to move may claim a draw by
// threefold repetition or the fifty-move rule.
func (g *Game) CanClaimDraw() bool {
	for _, method := range g.inner.EligibleDraws() {
		if method == chess.ThreefoldRepetition || method == chess.FiftyMoveRule {
			return true
		}
	}
	return false
}

func (g *Game) FEN() string {
	return g.inner.FEN()
}

// Moves returns the move log in UCI notation.
func (g *Game) Moves() []string {
	moves := g.inner.Moves()
	log := make([]string, len(moves))
	for i, m := range moves {
		log[i] = m.String()
	}
	return log
}

// MoveToString renders a legal move in standard algebraic notation for
// display. Falls back to the UCI form if the move cannot be decoded.
func (g *Game) MoveToString(move string) string {
	pos := g.inner.Position()
	decoded, err := chess.UCINotation{}.Decode(pos, move)
	if err != nil {
		return move
	}
	return chess.AlgebraicNotation{}.Encode(pos, decoded)
}
