// internal/records/records.go
//
// Durable game history.
// Responsibilities:
//   - One games row per session, created on start and rewritten after every
//     committed move (status, winner, round, move list as JSON).
//   - Bumping the owner's games_played/wins/streak in the same transaction
//     that records a finished game.
//   - Listing a user's recent games and moving guest games to a new account.
//
// Seeds are stored as decimal text because SQLite integers are signed.
package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/robalobadob/quarto/internal/auth"
	"github.com/robalobadob/quarto/internal/game"
)

var ErrNotFound = errors.New("game record not found")

// Store persists games in SQLite.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Start describes a new game row.
type Start struct {
	ID         string
	Owner      auth.Owner
	Mode       string
	Seed       uint64
	SquareMode bool
	StartedAt  time.Time
}

// Summary is a games row as listed to its owner.
type Summary struct {
	ID         string       `json:"id"`
	Mode       string       `json:"mode"`
	Seed       string       `json:"seed"`
	SquareMode bool         `json:"squareMode"`
	Status     string       `json:"status"`
	Winner     int          `json:"winner,omitempty"`
	Rounds     int          `json:"rounds"`
	Moves      []TurnRecord `json:"moves,omitempty"`
	StartedAt  string       `json:"startedAt"`
	FinishedAt string       `json:"finishedAt,omitempty"`
}

// TurnRecord is the stored form of a committed turn. Indices are zero-based
// and players are numbered 1 and 2.
type TurnRecord struct {
	Player  int  `json:"player"`
	Initial bool `json:"initial,omitempty"`
	Row     int  `json:"row"`
	Col     int  `json:"col"`
	Placed  int  `json:"placed"`
	HandOff *int `json:"handOff,omitempty"`
}

// Turns converts a game's history to its stored form.
func Turns(history []game.Turn) []TurnRecord {
	out := make([]TurnRecord, 0, len(history))
	for _, t := range history {
		r := TurnRecord{Player: t.Player.Number(), Initial: t.Initial}
		if !t.Initial {
			r.Row, r.Col, r.Placed = t.Pos.Row, t.Pos.Col, int(t.Placed.Bits())
		}
		if t.HandOffTaken {
			h := int(t.HandOff.Bits())
			r.HandOff = &h
		}
		out = append(out, r)
	}
	return out
}

func ownerColumn(o auth.Owner) string {
	if o.IsUser {
		return "user_id"
	}
	return "anonymous_id"
}

// Create inserts the row for a new game.
func (s *Store) Create(ctx context.Context, st Start) error {
	col := ownerColumn(st.Owner)
	_, err := s.db.ExecContext(ctx, `INSERT INTO games (id, `+col+`, mode, seed, square_mode, status, rounds, moves, started_at)
	                                 VALUES (?,?,?,?,?,?,1,'[]',?)`,
		st.ID, st.Owner.ID, st.Mode, strconv.FormatUint(st.Seed, 10), st.SquareMode,
		game.StatusInitialMove.String(), st.StartedAt.UTC().Format(time.RFC3339))
	return err
}

// Update rewrites the row from g. When g is over and human is set, the stats
// of the user owning the row are bumped in the same transaction, counting a
// win for human's seat only. The owner is read from the row, so games claimed
// by an account mid-play are credited to it.
func (s *Store) Update(ctx context.Context, id string, g *game.Game, human *game.Player) error {
	moves, err := json.Marshal(Turns(g.History()))
	if err != nil {
		return err
	}
	var winner any
	if w, ok := g.Winner(); ok {
		winner = w.Number()
	}
	var finished any
	if !g.Running() {
		finished = time.Now().UTC().Format(time.RFC3339)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var userID string
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(user_id, '') FROM games WHERE id=?`, id).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load game %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE games SET status=?, winner=?, rounds=?, moves=?, finished_at=? WHERE id=?`,
		g.Status().Kind.String(), winner, g.Round(), string(moves), finished, id); err != nil {
		return fmt.Errorf("update game %s: %w", id, err)
	}

	if !g.Running() && human != nil && userID != "" {
		w, ok := g.Winner()
		if err := bumpStats(ctx, tx, userID, ok && w == *human); err != nil {
			return fmt.Errorf("bump stats: %w", err)
		}
	}
	return tx.Commit()
}

// bumpStats increments games played and updates wins and streak.
func bumpStats(ctx context.Context, tx *sql.Tx, userID string, won bool) error {
	var gp, wins, streak int
	row := tx.QueryRowContext(ctx, `SELECT games_played, wins, streak FROM users WHERE id=?`, userID)
	if err := row.Scan(&gp, &wins, &streak); err != nil {
		return err
	}
	gp++
	if won {
		wins++
		streak++
	} else {
		streak = 0
	}
	_, err := tx.ExecContext(ctx, `UPDATE users SET games_played=?, wins=?, streak=? WHERE id=?`, gp, wins, streak, userID)
	return err
}

const summaryColumns = `id, mode, seed, square_mode, status, COALESCE(winner, 0), rounds, moves, started_at, COALESCE(finished_at, '')`

func scanSummary(scan func(...any) error) (Summary, error) {
	var sm Summary
	var moves string
	if err := scan(&sm.ID, &sm.Mode, &sm.Seed, &sm.SquareMode, &sm.Status, &sm.Winner, &sm.Rounds,
		&moves, &sm.StartedAt, &sm.FinishedAt); err != nil {
		return sm, err
	}
	if err := json.Unmarshal([]byte(moves), &sm.Moves); err != nil {
		return sm, fmt.Errorf("decode moves of %s: %w", sm.ID, err)
	}
	return sm, nil
}

// Get loads one row.
func (s *Store) Get(ctx context.Context, id string) (Summary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM games WHERE id=?`, id)
	sm, err := scanSummary(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return sm, ErrNotFound
	}
	return sm, err
}

// ListByUser returns the user's most recent games, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+summaryColumns+` FROM games
	                                     WHERE user_id=? ORDER BY started_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		sm, err := scanSummary(rows.Scan)
		if err != nil {
			return nil, err
		}
		sm.Moves = nil
		out = append(out, sm)
	}
	return out, rows.Err()
}

// ClaimAnonymous moves a guest's games to a user account.
func (s *Store) ClaimAnonymous(ctx context.Context, anonID, userID string) error {
	if anonID == "" || userID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `UPDATE games SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID)
	return err
}
