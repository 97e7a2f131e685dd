// internal/ai/strategy.go
//
// Computer players.
// Responsibilities:
//   - Strategy: a swappable move chooser with a single Decide method.
//   - Play: commit a strategy's decision to a game.
//   - New: build a strategy from its configured name.
//
// Strategies never mutate the game passed to Decide. An engine error on a
// move a strategy produced is a bug in the strategy, so Play panics.
package ai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robalobadob/quarto/internal/game"
)

var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrGameOver        = errors.New("game is over")
	ErrNotOurTurn      = errors.New("not this player's turn")
)

// Strategy picks the next move for the player whose turn it is.
type Strategy interface {
	Decide(g *game.Game) game.Move
}

// Play commits s's decision to g and returns g.
func Play(s Strategy, g *game.Game) *game.Game {
	m := s.Decide(g)
	if err := m.Apply(g); err != nil {
		panic(fmt.Errorf("ai: strategy produced illegal move (%s): %w", m, err))
	}
	return g
}

// Names of the built-in strategies.
const (
	KindHeuristic = "heuristic"
	KindMinimax   = "minimax"
)

// New builds the named strategy for player.
func New(kind string, player game.Player, seed uint64, depth int) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindHeuristic:
		return NewHeuristic(player, seed), nil
	case KindMinimax:
		return NewMinimax(player, seed, depth), nil
	}
	return nil, fmt.Errorf("%q: %w", kind, ErrUnknownStrategy)
}

// checkTurn panics unless g is running and it is player's decision.
func checkTurn(name string, player game.Player, g *game.Game) {
	if !g.Running() {
		panic(fmt.Errorf("%s: decide during %s: %w", name, g.Status().Kind, ErrGameOver))
	}
	if g.Player() != player {
		panic(fmt.Errorf("%s: %s asked to move for %s: %w", name, player, g.Player(), ErrNotOurTurn))
	}
}
