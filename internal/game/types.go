// internal/game/types.go
//
// Core type definitions for the Quarto state machine.
// Defines:
//   - Player: one of the two seats.
//   - Status: tagged game status (initial move, move, won, draw).
//   - Rules: rule variant fixed at construction.
//   - Move: one decision (a hand-off, or a placement plus a hand-off).
//   - Turn: a committed move as recorded in the game history.

package game

import (
	"errors"
	"fmt"

	"github.com/robalobadob/quarto/internal/board"
	"github.com/robalobadob/quarto/internal/piece"
)

var (
	ErrIllegalTransition = errors.New("illegal transition")
	ErrUnknownPiece      = errors.New("piece not remaining")
	ErrNothingToUndo     = errors.New("nothing to undo")
)

// Player identifies a seat.
type Player uint8

const (
	PlayerOne Player = iota
	PlayerTwo
)

// Next returns the opponent.
func (p Player) Next() Player {
	if p == PlayerOne {
		return PlayerTwo
	}
	return PlayerOne
}

// Index is 0 for PlayerOne and 1 for PlayerTwo.
func (p Player) Index() int { return int(p) }

// Number is 1 for PlayerOne and 2 for PlayerTwo.
func (p Player) Number() int { return int(p) + 1 }

func (p Player) String() string { return fmt.Sprintf("Player %d", p.Number()) }

// PlayerFromNumber maps 1/2 to a Player.
func PlayerFromNumber(n int) (Player, bool) {
	switch n {
	case 1:
		return PlayerOne, true
	case 2:
		return PlayerTwo, true
	}
	return 0, false
}

// StatusKind tags a Status.
type StatusKind uint8

const (
	StatusInitialMove StatusKind = iota
	StatusMove
	StatusWon
	StatusDraw
)

func (k StatusKind) String() string {
	switch k {
	case StatusInitialMove:
		return "initial_move"
	case StatusMove:
		return "move"
	case StatusWon:
		return "won"
	case StatusDraw:
		return "draw"
	}
	return "unknown"
}

// Status is the game status. Player is the starting player, the player to
// move, the winner or the last mover depending on Kind. Piece is the forced
// piece and is only meaningful for StatusMove.
type Status struct {
	Kind   StatusKind
	Player Player
	Piece  piece.Piece
}

func (s Status) String() string {
	switch s.Kind {
	case StatusInitialMove:
		return fmt.Sprintf("initial move, %s hands off", s.Player)
	case StatusMove:
		return fmt.Sprintf("%s places %s", s.Player, s.Piece)
	case StatusWon:
		return fmt.Sprintf("%s won", s.Player)
	case StatusDraw:
		return fmt.Sprintf("draw after %s", s.Player)
	}
	return "unknown"
}

// Rules holds the rule variant.
type Rules struct {
	// SquareMode adds the nine 2x2 blocks to the winning lines.
	SquareMode bool
}

// Move is one decision. An initial move only hands off Piece. Otherwise the
// forced piece goes to Pos and Piece is handed to the opponent.
type Move struct {
	Initial bool
	Pos     board.Pos
	Piece   piece.Piece
}

// Apply commits m to g.
func (m Move) Apply(g *Game) error {
	if m.Initial {
		return g.InitialMove(m.Piece)
	}
	return g.DoMove(m.Pos, m.Piece)
}

func (m Move) String() string {
	if m.Initial {
		return fmt.Sprintf("hand off %s", m.Piece)
	}
	return fmt.Sprintf("place at %s, hand off %s", m.Pos, m.Piece)
}

// Turn is a committed move.
type Turn struct {
	Player  Player      `json:"player"`
	Initial bool        `json:"initial"`
	Pos     board.Pos   `json:"pos"`
	Placed  piece.Piece `json:"placed"`
	// HandOff is only meaningful when HandOffTaken; the 16th placement ends
	// the game before a hand-off happens.
	HandOff      piece.Piece `json:"handOff"`
	HandOffTaken bool        `json:"handOffTaken"`
	prev         Status
}
