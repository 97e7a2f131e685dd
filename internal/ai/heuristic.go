// internal/ai/heuristic.go
//
// One-ply heuristic player.
// Responsibilities:
//   - Take an immediate win when the forced piece completes a line.
//   - Otherwise drop placements and hand-offs that give the opponent an
//     immediate win, then pick among the rest with the seeded generator.
//   - Fall back to an arbitrary move when nothing is safe.
//
// Reasoning is logged at debug level.

package ai

import (
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/quarto/internal/board"
	"github.com/robalobadob/quarto/internal/game"
	"github.com/robalobadob/quarto/internal/piece"
	"github.com/robalobadob/quarto/internal/rng"
)

// Heuristic looks one ply ahead: it wins immediately when it can and
// otherwise avoids placements and hand-offs that give the opponent an
// immediate win.
//
// A piece found unsafe for any candidate placement is treated as unsafe for
// all of them. This can reject hand-offs that would have been safe next to a
// particular placement; the behaviour is kept so decision sequences stay
// reproducible for a given seed.
type Heuristic struct {
	player game.Player
	rng    *rng.Rand
}

// NewHeuristic returns a heuristic player seeded with seed.
func NewHeuristic(player game.Player, seed uint64) *Heuristic {
	return &Heuristic{player: player, rng: rng.New(seed)}
}

func (h *Heuristic) Player() game.Player { return h.player }

// Play commits one move to g and returns it.
func (h *Heuristic) Play(g *game.Game) *game.Game { return Play(h, g) }

type candidate struct {
	field   board.Field
	pos     board.Pos
	removed bool
}

// Decide implements Strategy.
func (h *Heuristic) Decide(g *game.Game) game.Move {
	checkTurn("heuristic", h.player, g)
	remaining := g.RemainingPieces()
	st := g.Status()

	if st.Kind == game.StatusInitialMove {
		p := rng.Choose(h.rng, remaining)
		log.Debug().Stringer("player", h.player).Stringer("piece", p).Msg("heuristic: opening hand-off is arbitrary")
		return game.Move{Initial: true, Piece: p}
	}

	square := g.Rules().SquareMode
	forced := st.Piece
	field := g.Field()
	empty := field.EmptySpaces()

	candidates := make([]candidate, 0, len(empty))
	for _, pos := range empty {
		next := field
		_ = next.Put(pos, forced)
		if next.CheckForWin(square) {
			handOff := forced
			if len(remaining) > 0 {
				handOff = remaining[0]
			}
			log.Debug().Stringer("player", h.player).Stringer("pos", pos).Msg("heuristic: winning placement")
			return game.Move{Pos: pos, Piece: handOff}
		}
		candidates = append(candidates, candidate{field: next, pos: pos})
	}

	var unsafe [piece.Count]bool
	for i := range candidates {
		c := &candidates[i]
		replies := c.field.EmptySpaces()
		for _, p := range remaining {
			for _, pos := range replies {
				reply := c.field
				_ = reply.Put(pos, p)
				if reply.CheckForWin(square) {
					c.removed = true
					unsafe[p] = true
					break
				}
			}
		}
	}

	safe := make([]piece.Piece, 0, len(remaining))
	for _, p := range remaining {
		if !unsafe[p] {
			safe = append(safe, p)
		}
	}
	log.Debug().
		Stringer("player", h.player).
		Int("candidates", len(candidates)).
		Int("remaining", len(remaining)).
		Int("safe", len(safe)).
		Msg("heuristic: evaluated replies")

	if len(safe) == 0 {
		if len(remaining) == 0 {
			return game.Move{Pos: candidates[0].pos, Piece: forced}
		}
		log.Debug().Stringer("player", h.player).Msg("heuristic: every hand-off loses, picking any piece")
		return game.Move{Pos: candidates[0].pos, Piece: rng.Choose(h.rng, remaining)}
	}

	pick := rng.Choose(h.rng, safe)
	survivors := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.removed {
			survivors = append(survivors, c)
		}
	}
	if len(survivors) == 0 {
		log.Debug().Stringer("player", h.player).Msg("heuristic: every placement loses, moving at random")
		p := rng.Choose(h.rng, remaining)
		return game.Move{Pos: rng.Choose(h.rng, empty), Piece: p}
	}
	return game.Move{Pos: rng.Choose(h.rng, survivors).pos, Piece: pick}
}
