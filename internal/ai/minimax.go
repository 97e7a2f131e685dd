// internal/ai/minimax.go
//
// Depth-limited negamax player.
// Responsibilities:
//   - Score every (placement, hand-off) pair by searching the clone of the
//     game with DoMove/Unmove.
//   - Memoize positions in a bounded table keyed by the packed board.

package ai

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/quarto/internal/board"
	"github.com/robalobadob/quarto/internal/game"
	"github.com/robalobadob/quarto/internal/piece"
	"github.com/robalobadob/quarto/internal/rng"
)

// DefaultDepth is the search depth used when none is configured.
const DefaultDepth = 2

// memoLimit bounds the transposition table; it is dropped when full.
const memoLimit = 1 << 20

// Minimax is a depth-limited negamax over placement and hand-off pairs.
// One ply is a placement plus the hand-off that follows it. Scores are +1
// for a win by the side to move, -1 for a loss and 0 otherwise. Equal
// moves are broken with the player's own generator.
type Minimax struct {
	player game.Player
	depth  int
	rng    *rng.Rand
	memo   map[memoKey]int
	limit  int
}

type memoKey struct {
	cells     uint64
	occupied  uint16
	remaining uint16
	forced    uint8
	depth     uint8
	square    bool
}

// NewMinimax returns a searcher. depth < 1 falls back to DefaultDepth.
func NewMinimax(player game.Player, seed uint64, depth int) *Minimax {
	if depth < 1 {
		depth = DefaultDepth
	}
	return &Minimax{player: player, depth: depth, rng: rng.New(seed), memo: make(map[memoKey]int), limit: memoLimit}
}

func (m *Minimax) Player() game.Player { return m.player }
func (m *Minimax) Depth() int          { return m.depth }

// Decide implements Strategy.
func (m *Minimax) Decide(g *game.Game) game.Move {
	checkTurn("minimax", m.player, g)
	if g.IsInitialMove() {
		// Every opening hand-off is equivalent under attribute symmetry.
		return game.Move{Initial: true, Piece: rng.Choose(m.rng, g.RemainingPieces())}
	}
	work := g.Clone()
	best := -2
	var moves []game.Move
	for _, pos := range work.Field().EmptySpaces() {
		for _, next := range handOffs(work) {
			s := m.score(work, pos, next, m.depth)
			if s == 1 {
				log.Debug().Stringer("player", m.player).Stringer("pos", pos).Msg("minimax: winning placement")
				return game.Move{Pos: pos, Piece: next}
			}
			if s > best {
				best, moves = s, moves[:0]
			}
			if s == best {
				moves = append(moves, game.Move{Pos: pos, Piece: next})
			}
		}
	}
	log.Debug().
		Stringer("player", m.player).
		Int("score", best).
		Int("ties", len(moves)).
		Int("memo", len(m.memo)).
		Msg("minimax: searched")
	return rng.Choose(m.rng, moves)
}

// handOffs lists the pieces the mover may hand off. On the last placement
// the hand-off is ignored, so the forced piece stands in for it.
func handOffs(g *game.Game) []piece.Piece {
	rem := g.RemainingPieces()
	if len(rem) == 0 {
		p, _ := g.NextPiece()
		return []piece.Piece{p}
	}
	return rem
}

// score plays pos/next on g, evaluates it for the mover and takes it back.
func (m *Minimax) score(g *game.Game, pos board.Pos, next piece.Piece, depth int) int {
	if err := g.DoMove(pos, next); err != nil {
		panic(fmt.Errorf("minimax: search move (%s, %s): %w", pos, next, err))
	}
	defer func() {
		if err := g.Unmove(pos); err != nil {
			panic(fmt.Errorf("minimax: take back %s: %w", pos, err))
		}
	}()
	switch g.Status().Kind {
	case game.StatusWon:
		return 1
	case game.StatusDraw:
		return 0
	}
	if depth <= 1 {
		return 0
	}
	return -m.search(g, depth-1)
}

// search returns the best score for the side to move in g.
func (m *Minimax) search(g *game.Game, depth int) int {
	f := g.Field()
	forced, _ := g.NextPiece()
	key := memoKey{
		cells:     f.Packed(),
		occupied:  f.Mask(),
		remaining: remainingMask(g.RemainingPieces()),
		forced:    forced.Bits(),
		depth:     uint8(depth),
		square:    g.Rules().SquareMode,
	}
	if v, ok := m.memo[key]; ok {
		return v
	}

	best := -2
	next := handOffs(g)
outer:
	for _, pos := range f.EmptySpaces() {
		for _, p := range next {
			if s := m.score(g, pos, p, depth); s > best {
				best = s
				if best == 1 {
					break outer
				}
			}
		}
	}
	if len(m.memo) >= m.limit {
		m.memo = make(map[memoKey]int)
	}
	m.memo[key] = best
	return best
}

func remainingMask(ps []piece.Piece) uint16 {
	var mask uint16
	for _, p := range ps {
		mask |= 1 << p.Bits()
	}
	return mask
}
