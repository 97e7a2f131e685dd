// internal/store/session.go
//
// Live game sessions.
// A Session couples one game with its two seats. A seat is either a human
// (moves arrive over HTTP) or a Strategy that the server runs itself.
// Callers hold the session lock for the whole read-modify-write of a request.

package store

import (
	"sync"
	"time"

	"github.com/robalobadob/quarto/internal/ai"
	"github.com/robalobadob/quarto/internal/auth"
	"github.com/robalobadob/quarto/internal/game"
)

// Mode describes who sits at the table.
type Mode string

const (
	ModePvP   Mode = "pvp"   // two humans sharing the session
	ModeAI    Mode = "ai"    // one human against a strategy
	ModeAIvAI Mode = "aivai" // two strategies, advanced one ply per step
	ModeDaily Mode = "daily" // ModeAI against the seeded daily opponent
)

// Valid reports whether m is a known mode a client may request.
func (m Mode) Valid() bool {
	return m == ModePvP || m == ModeAI || m == ModeAIvAI
}

// Seat is one side of the table. A nil AI means a human seat.
type Seat struct {
	AI       ai.Strategy
	Strategy string
}

func (s Seat) Human() bool { return s.AI == nil }

// Session is one live game.
type Session struct {
	mu sync.Mutex

	ID        string
	Game      *game.Game
	Mode      Mode
	Seats     [2]Seat
	Seed      uint64
	Owner     auth.Owner
	DailyDate string
	StartedAt time.Time
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Seat returns the seat of p.
func (s *Session) Seat(p game.Player) Seat { return s.Seats[p.Index()] }

// HumanPlayer returns the only human seat, if exactly one exists. Results of
// such games count towards the owner's stats.
func (s *Session) HumanPlayer() *game.Player {
	var found *game.Player
	for _, p := range []game.Player{game.PlayerOne, game.PlayerTwo} {
		if s.Seat(p).Human() {
			if found != nil {
				return nil
			}
			p := p
			found = &p
		}
	}
	return found
}

// HumanToMove is true while the game runs and a human seat must act.
func (s *Session) HumanToMove() bool {
	return s.Game.Running() && s.Seat(s.Game.Player()).Human()
}

// Step lets the strategy whose turn it is play one ply. It reports false when
// the game is over or a human is due.
func (s *Session) Step() bool {
	if !s.Game.Running() {
		return false
	}
	seat := s.Seat(s.Game.Player())
	if seat.Human() {
		return false
	}
	ai.Play(seat.AI, s.Game)
	return true
}

// RunAI steps until a human is due or the game ends and returns the number
// of plies played.
func (s *Session) RunAI() int {
	n := 0
	for s.Step() {
		n++
	}
	return n
}
