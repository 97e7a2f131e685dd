package daily

import (
	"context"
	"database/sql"
	"strconv"
)

// Outcomes stored for a daily game, from the player's side.
const (
	OutcomeWon  = "won"
	OutcomeLost = "lost"
	OutcomeDraw = "draw"
)

type Result struct {
	UserID    string `json:"userId"`
	Date      string `json:"date"`
	Seed      uint64 `json:"-"`
	Outcome   string `json:"outcome"`
	Rounds    int    `json:"rounds"`
	ElapsedMs int    `json:"elapsedMs"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) AlreadyPlayed(ctx context.Context, userID, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM daily_results WHERE user_id=? AND date=?`,
		userID, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult keeps the first result per user and date.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(user_id, date, seed, outcome, rounds, elapsed_ms)
		 VALUES(?,?,?,?,?,?)`,
		r.UserID, r.Date, strconv.FormatUint(r.Seed, 10), r.Outcome, r.Rounds, r.ElapsedMs,
	)
	return err
}

type LBRow struct {
	UserID    string `json:"userId"`
	Outcome   string `json:"outcome"`
	Rounds    int    `json:"rounds"`
	ElapsedMs int    `json:"elapsedMs"`
}

// Leaderboard ranks wins first, then draws, then losses; quicker games
// (fewer rounds, then less time) rank higher within each outcome.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, outcome, rounds, elapsed_ms
		 FROM daily_results
		 WHERE date=?
		 ORDER BY CASE outcome WHEN 'won' THEN 0 WHEN 'draw' THEN 1 ELSE 2 END,
		          rounds ASC, elapsed_ms ASC, created_at ASC
		 LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LBRow{}
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.UserID, &r.Outcome, &r.Rounds, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
