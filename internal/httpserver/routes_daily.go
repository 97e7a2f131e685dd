// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
// Exposes two endpoints under /daily:
//   - POST /daily/new         → start today's game (creates or reuses session)
//   - GET  /daily/leaderboard → fetch the top 20 results for today (or a given date)
//
// Moves go through the regular /game/{id} routes. The human is Player 1 and
// starts; the opponent is the heuristic strategy seeded by daily.Seed, so
// every player faces the same opponent on a given date.
// Each owner can play once per day (enforced by DB + in-memory session).

package httpserver

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/quarto/internal/ai"
	"github.com/robalobadob/quarto/internal/daily"
	"github.com/robalobadob/quarto/internal/game"
	"github.com/robalobadob/quarto/internal/store"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	now      func() time.Time
	sessions map[string]string // game id keyed by ownerID|date
	mu       sync.Mutex        // guards sessions and serializes /daily/new
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	s.daily = &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.db),
		salt:     s.cfg.DailySalt,
		now:      time.Now,
		sessions: make(map[string]string),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", s.daily.handleNew)
		r.Get("/leaderboard", s.daily.handleLeaderboard)
	})
}

type dailyNewRes struct {
	GameID string    `json:"gameId"`
	Date   string    `json:"date"`
	Played bool      `json:"played"`
	Game   *gameView `json:"game,omitempty"`
}

// handleNew creates or reuses the owner's daily session for today.
// - If the owner already has a DB row for today → Played=true.
// - Otherwise reuse the in-memory session or open a new one.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	owner := d.srv.auth.OwnerOf(w, r)
	now := d.now().UTC()
	date := daily.DateKey(now)

	if played, err := d.store.AlreadyPlayed(r.Context(), owner.ID, date); err == nil && played {
		writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Played: true})
		return
	} else if err != nil {
		log.Warn().Err(err).Msg("daily already played")
	}

	key := owner.ID + "|" + date
	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.sessions[key]; ok {
		if sess, err := d.srv.store.Get(r.Context(), id); err == nil {
			sess.Lock()
			v := d.srv.view(sess)
			sess.Unlock()
			writeJSON(w, http.StatusOK, dailyNewRes{GameID: id, Date: date, Game: &v})
			return
		}
	}

	seed := daily.SeedForKey(date, d.salt)
	sess := &store.Session{
		ID:        uuid.NewString(),
		Game:      game.New(game.PlayerOne, game.Rules{SquareMode: d.srv.cfg.SquareMode}),
		Mode:      store.ModeDaily,
		Seed:      seed,
		Owner:     owner,
		DailyDate: date,
		StartedAt: now,
	}
	sess.Seats[game.PlayerTwo.Index()] = store.Seat{
		AI:       ai.NewHeuristic(game.PlayerTwo, seed),
		Strategy: ai.KindHeuristic,
	}

	v, err := d.srv.open(r.Context(), sess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error")
		return
	}
	d.sessions[key] = sess.ID
	writeJSON(w, http.StatusOK, dailyNewRes{GameID: sess.ID, Date: date, Game: &v})
}

// reassign moves open daily sessions from one owner id to another.
func (d *dailyServer) reassign(from, to string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, id := range d.sessions {
		if owner, date, ok := strings.Cut(key, "|"); ok && owner == from {
			delete(d.sessions, key)
			d.sessions[to+"|"+date] = id
		}
	}
}

// finish stores the result of a finished daily game. The caller holds the
// session lock.
func (d *dailyServer) finish(ctx context.Context, sess *store.Session) {
	g := sess.Game
	res := daily.Result{
		UserID:    sess.Owner.ID,
		Date:      sess.DailyDate,
		Seed:      sess.Seed,
		Outcome:   dailyOutcome(g),
		Rounds:    g.Round(),
		ElapsedMs: int(d.now().Sub(sess.StartedAt).Milliseconds()),
	}
	if err := d.store.InsertResult(ctx, res); err != nil {
		log.Warn().Err(err).Str("gameId", sess.ID).Msg("insert daily result")
	}
}

// dailyOutcome is the result of g from Player 1's side.
func dailyOutcome(g *game.Game) string {
	w, ok := g.Winner()
	switch {
	case !ok:
		return daily.OutcomeDraw
	case w == game.PlayerOne:
		return daily.OutcomeWon
	}
	return daily.OutcomeLost
}

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(d.now())
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}
