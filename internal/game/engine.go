// internal/game/engine.go
//
// Quarto state machine for a single game.
// Responsibilities:
//   - Create games with the full canonical piece set in InitialMove.
//   - Apply the opening hand-off and subsequent placements, enforcing the
//     forced-piece rule.
//   - Resolve wins and the draw on the 16th placement.
//   - Undo the latest placement (search and tests).
//
// Notes:
//   - remaining keeps canonical order with removed pieces excised. The AI
//     uses it as its fallback order and the HTTP layer indexes into it.
//   - A failed call leaves the game untouched.
package game

import (
	"fmt"

	"github.com/robalobadob/quarto/internal/board"
	"github.com/robalobadob/quarto/internal/piece"
)

// Game is one Quarto game. Not safe for concurrent use.
type Game struct {
	rules     Rules
	field     board.Field
	remaining []piece.Piece
	status    Status
	history   []Turn
}

// New constructs a game where starting hands off the first piece.
func New(starting Player, rules Rules) *Game {
	return &Game{
		rules:     rules,
		field:     board.New(),
		remaining: piece.Canonical(),
		status:    Status{Kind: StatusInitialMove, Player: starting},
		history:   make([]Turn, 0, piece.Count),
	}
}

// Clone returns an independent deep copy.
func (g *Game) Clone() *Game {
	c := *g
	c.remaining = append([]piece.Piece(nil), g.remaining...)
	c.history = append([]Turn(nil), g.history...)
	return &c
}

func (g *Game) Rules() Rules   { return g.rules }
func (g *Game) Status() Status { return g.status }

// Field returns a copy of the board.
func (g *Game) Field() board.Field { return g.field }

// RemainingPieces returns a copy of the unplaced, not handed-off pieces.
func (g *Game) RemainingPieces() []piece.Piece {
	return append([]piece.Piece(nil), g.remaining...)
}

// History returns the committed turns, oldest first.
func (g *Game) History() []Turn {
	return append([]Turn(nil), g.history...)
}

// Round starts at 1 and advances every two hand-offs.
func (g *Game) Round() int {
	return (piece.Count-len(g.remaining))/2 + 1
}

// Running is true until the game is won or drawn.
func (g *Game) Running() bool {
	return g.status.Kind == StatusInitialMove || g.status.Kind == StatusMove
}

func (g *Game) IsInitialMove() bool { return g.status.Kind == StatusInitialMove }

// Player returns the player carried by the status.
func (g *Game) Player() Player { return g.status.Player }

func (g *Game) Winner() (Player, bool) {
	if g.status.Kind == StatusWon {
		return g.status.Player, true
	}
	return 0, false
}

// NextPiece returns the forced piece while a placement is due.
func (g *Game) NextPiece() (piece.Piece, bool) {
	if g.status.Kind == StatusMove {
		return g.status.Piece, true
	}
	return 0, false
}

func (g *Game) indexOf(p piece.Piece) int {
	for i, r := range g.remaining {
		if r == p {
			return i
		}
	}
	return -1
}

func (g *Game) take(i int) {
	g.remaining = append(g.remaining[:i], g.remaining[i+1:]...)
}

// putBack reinserts p at its canonical position.
func (g *Game) putBack(p piece.Piece) {
	i := 0
	for i < len(g.remaining) && g.remaining[i] < p {
		i++
	}
	g.remaining = append(g.remaining, 0)
	copy(g.remaining[i+1:], g.remaining[i:])
	g.remaining[i] = p
}

// InitialMove hands p to the opponent without placing anything.
func (g *Game) InitialMove(p piece.Piece) error {
	if g.status.Kind != StatusInitialMove {
		return fmt.Errorf("initial move during %s: %w", g.status.Kind, ErrIllegalTransition)
	}
	i := g.indexOf(p)
	if i < 0 {
		return fmt.Errorf("initial move %s: %w", p, ErrUnknownPiece)
	}
	starting := g.status.Player
	g.take(i)
	g.history = append(g.history, Turn{
		Player: starting, Initial: true, HandOff: p, HandOffTaken: true, prev: g.status,
	})
	g.status = Status{Kind: StatusMove, Player: starting.Next(), Piece: p}
	return nil
}

// DoMove places the forced piece at pos and hands next to the opponent. The
// next argument is ignored on the 16th placement, which ends in a draw.
func (g *Game) DoMove(pos board.Pos, next piece.Piece) error {
	if g.status.Kind != StatusMove {
		return fmt.Errorf("move during %s: %w", g.status.Kind, ErrIllegalTransition)
	}
	prev := g.status
	mover, forced := prev.Player, prev.Piece
	if err := g.field.Put(pos, forced); err != nil {
		return err
	}
	turn := Turn{Player: mover, Pos: pos, Placed: forced, prev: prev}

	if len(g.remaining) == 0 {
		g.history = append(g.history, turn)
		g.status = Status{Kind: StatusDraw, Player: mover}
		return nil
	}

	i := g.indexOf(next)
	if i < 0 {
		_, _ = g.field.Clear(pos)
		return fmt.Errorf("hand off %s: %w", next, ErrUnknownPiece)
	}
	g.take(i)
	turn.HandOff, turn.HandOffTaken = next, true
	g.history = append(g.history, turn)

	if g.field.CheckForWin(g.rules.SquareMode) {
		g.status = Status{Kind: StatusWon, Player: mover}
	} else {
		g.status = Status{Kind: StatusMove, Player: mover.Next(), Piece: next}
	}
	return nil
}

// Unmove reverts the latest placement, which must have been at pos.
func (g *Game) Unmove(pos board.Pos) error {
	n := len(g.history)
	if n == 0 || g.history[n-1].Initial {
		return ErrNothingToUndo
	}
	last := g.history[n-1]
	if last.Pos != pos {
		return fmt.Errorf("unmove %s, last placement was %s: %w", pos, last.Pos, ErrIllegalTransition)
	}
	if _, err := g.field.Clear(pos); err != nil {
		return err
	}
	if last.HandOffTaken {
		g.putBack(last.HandOff)
	}
	g.status = last.prev
	g.history = g.history[:n-1]
	return nil
}

// LastPlacement returns the position of the latest placement, if any.
func (g *Game) LastPlacement() (board.Pos, bool) {
	n := len(g.history)
	if n == 0 || g.history[n-1].Initial {
		return board.Pos{}, false
	}
	return g.history[n-1].Pos, true
}
