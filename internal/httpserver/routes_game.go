// internal/httpserver/routes_game.go
//
// Game routes.
//   - POST /game/new          → create a session, run AI seats that are due
//   - GET  /game/{id}         → current view
//   - POST /game/{id}/initial → first hand-off
//   - POST /game/{id}/move    → placement + hand-off
//   - POST /game/{id}/step    → one AI ply (aivai)
//   - POST /game/{id}/undo    → revert the last placement (pvp)
//
// Every committed change goes through commit, which lets AI seats answer,
// rewrites the games row, records daily results and publishes the view.
// Row, column and piece indices in requests use the configured index base.

package httpserver

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/quarto/internal/ai"
	"github.com/robalobadob/quarto/internal/board"
	"github.com/robalobadob/quarto/internal/game"
	"github.com/robalobadob/quarto/internal/piece"
	"github.com/robalobadob/quarto/internal/records"
	"github.com/robalobadob/quarto/internal/store"
)

// secondSeatSalt decorrelates the two strategies of an aivai game.
const secondSeatSalt = 0x9E3779B97F4A7C15

func (s *Server) mountGame(r chi.Router) {
	r.Post("/game/new", s.handleNewGame)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetGame)
		r.Post("/initial", s.handleInitial)
		r.Post("/move", s.handleMove)
		r.Post("/step", s.handleStep)
		r.Post("/undo", s.handleUndo)
	})
}

type newGameReq struct {
	Mode           store.Mode `json:"mode"`
	StartingPlayer int        `json:"startingPlayer"`
	HumanPlayer    int        `json:"humanPlayer"`
	Strategy       string     `json:"strategy"`
	Seed           *uint64    `json:"seed,omitempty"`
	SquareMode     *bool      `json:"squareMode,omitempty"`
	Depth          int        `json:"depth"`
}

type initialReq struct {
	Piece int `json:"piece"`
}

type moveReq struct {
	Row   int `json:"row"`
	Col   int `json:"col"`
	Piece int `json:"piece"`
}

// gameErrorStatus maps engine errors to HTTP codes.
func gameErrorStatus(err error) int {
	switch {
	case errors.Is(err, game.ErrUnknownPiece), errors.Is(err, board.ErrOutOfBounds):
		return http.StatusBadRequest
	case errors.Is(err, board.ErrCellOccupied),
		errors.Is(err, game.ErrIllegalTransition),
		errors.Is(err, game.ErrNothingToUndo):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeGameError(w http.ResponseWriter, err error) {
	writeError(w, gameErrorStatus(err), err.Error())
}

func randomSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// newSession builds a session whose seats not marked in humans run strategy.
func (s *Server) newSession(mode store.Mode, starting game.Player, humans [2]bool, strategy string, seed uint64, depth int, rules game.Rules) (*store.Session, error) {
	if strategy == "" {
		strategy = s.cfg.AIStrategy
	}
	if depth <= 0 {
		depth = s.cfg.MinimaxDepth
	}
	sess := &store.Session{
		ID:        uuid.NewString(),
		Game:      game.New(starting, rules),
		Mode:      mode,
		Seed:      seed,
		StartedAt: time.Now(),
	}
	for i, p := range []game.Player{game.PlayerOne, game.PlayerTwo} {
		if humans[i] {
			continue
		}
		seatSeed := seed
		if p == game.PlayerTwo && !humans[0] {
			seatSeed ^= secondSeatSalt
		}
		strat, err := ai.New(strategy, p, seatSeed, depth)
		if err != nil {
			return nil, err
		}
		sess.Seats[i] = store.Seat{AI: strat, Strategy: strategy}
	}
	return sess, nil
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Mode == "" {
		req.Mode = store.ModeAI
	}
	if !req.Mode.Valid() {
		writeError(w, http.StatusBadRequest, "invalid mode")
		return
	}
	if req.StartingPlayer == 0 {
		req.StartingPlayer = 1
	}
	starting, ok := game.PlayerFromNumber(req.StartingPlayer)
	if !ok {
		writeError(w, http.StatusBadRequest, "startingPlayer must be 1 or 2")
		return
	}

	var humans [2]bool
	switch req.Mode {
	case store.ModePvP:
		humans = [2]bool{true, true}
	case store.ModeAI:
		if req.HumanPlayer == 0 {
			req.HumanPlayer = 1
		}
		hp, ok := game.PlayerFromNumber(req.HumanPlayer)
		if !ok {
			writeError(w, http.StatusBadRequest, "humanPlayer must be 1 or 2")
			return
		}
		humans[hp.Index()] = true
	}

	if req.Depth < 0 || req.Depth > s.cfg.MinimaxMaxDepth {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("depth must be between 1 and %d", s.cfg.MinimaxMaxDepth))
		return
	}

	seed := randomSeed()
	if req.Seed != nil {
		seed = *req.Seed
	}
	rules := game.Rules{SquareMode: s.cfg.SquareMode}
	if req.SquareMode != nil {
		rules.SquareMode = *req.SquareMode
	}

	sess, err := s.newSession(req.Mode, starting, humans, req.Strategy, seed, req.Depth, rules)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess.Owner = s.auth.OwnerOf(w, r)
	v, err := s.open(r.Context(), sess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// open stores a fresh session, records it and lets a due AI seat move.
func (s *Server) open(ctx context.Context, sess *store.Session) (gameView, error) {
	if err := s.store.Save(ctx, sess); err != nil {
		return gameView{}, err
	}
	if err := s.records.Create(ctx, records.Start{
		ID:         sess.ID,
		Owner:      sess.Owner,
		Mode:       string(sess.Mode),
		Seed:       sess.Seed,
		SquareMode: sess.Game.Rules().SquareMode,
		StartedAt:  sess.StartedAt,
	}); err != nil {
		log.Warn().Err(err).Str("gameId", sess.ID).Msg("record new game")
	}
	log.Info().Str("gameId", sess.ID).Str("mode", string(sess.Mode)).Uint64("seed", sess.Seed).Msg("game started")

	sess.Lock()
	defer sess.Unlock()
	return s.commit(ctx, sess), nil
}

// commit runs AI seats in ai and daily modes, persists and publishes. The
// caller holds the session lock. Writes outlive the request deadline since
// the move is already committed in memory.
func (s *Server) commit(ctx context.Context, sess *store.Session) gameView {
	ctx = context.WithoutCancel(ctx)
	if sess.Mode == store.ModeAI || sess.Mode == store.ModeDaily {
		sess.RunAI()
	}
	g := sess.Game
	if len(g.History()) > 0 {
		if err := s.records.Update(ctx, sess.ID, g, sess.HumanPlayer()); err != nil {
			log.Warn().Err(err).Str("gameId", sess.ID).Msg("record game")
		}
	}
	if sess.Mode == store.ModeDaily && !g.Running() {
		s.daily.finish(ctx, sess)
	}
	if !g.Running() {
		log.Info().Str("gameId", sess.ID).Str("status", g.Status().String()).Int("round", g.Round()).Msg("game over")
	}
	v := s.view(sess)
	s.hub.Publish(sess.ID, v)
	return v
}

// session loads the {id} session or writes 404.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*store.Session, bool) {
	sess, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Lock()
	defer sess.Unlock()
	writeJSON(w, http.StatusOK, s.view(sess))
}

// authorized writes 403 unless the caller owns sess. Two-player sessions
// are shared by whoever holds the id.
func (s *Server) authorized(w http.ResponseWriter, r *http.Request, sess *store.Session) bool {
	if sess.Mode == store.ModePvP || s.auth.OwnerOf(w, r) == sess.Owner {
		return true
	}
	writeError(w, http.StatusForbidden, "not_your_game")
	return false
}

// humanTurn writes 409 while an AI seat is due.
func humanTurn(w http.ResponseWriter, sess *store.Session) bool {
	if sess.Game.Running() && !sess.HumanToMove() {
		writeError(w, http.StatusConflict, "ai_to_move")
		return false
	}
	return true
}

// remainingAt resolves a based index into the remaining pieces.
func (s *Server) remainingAt(g *game.Game, based int) (piece.Piece, error) {
	rem := g.RemainingPieces()
	i := s.cfg.IndexBase.Unbased(based)
	if i < 0 || i >= len(rem) {
		return 0, game.ErrUnknownPiece
	}
	return rem[i], nil
}

func (s *Server) handleInitial(w http.ResponseWriter, r *http.Request) {
	var req initialReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Lock()
	defer sess.Unlock()
	if !s.authorized(w, r, sess) || !humanTurn(w, sess) {
		return
	}

	p, err := s.remainingAt(sess.Game, req.Piece)
	if err == nil {
		err = sess.Game.InitialMove(p)
	}
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.commit(r.Context(), sess))
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Lock()
	defer sess.Unlock()
	if !s.authorized(w, r, sess) || !humanTurn(w, sess) {
		return
	}

	g := sess.Game
	base := s.cfg.IndexBase
	pos := board.Pos{Row: base.Unbased(req.Row), Col: base.Unbased(req.Col)}
	var next piece.Piece
	var err error
	if g.Running() && len(g.RemainingPieces()) > 0 {
		next, err = s.remainingAt(g, req.Piece)
	}
	if err == nil {
		err = g.DoMove(pos, next)
	}
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.commit(r.Context(), sess))
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Lock()
	defer sess.Unlock()
	if !s.authorized(w, r, sess) {
		return
	}
	if !sess.Step() {
		writeError(w, http.StatusConflict, "no_ai_to_move")
		return
	}
	writeJSON(w, http.StatusOK, s.commit(r.Context(), sess))
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Lock()
	defer sess.Unlock()
	if sess.Mode != store.ModePvP {
		writeError(w, http.StatusConflict, "undo is only available in pvp games")
		return
	}
	pos, ok := sess.Game.LastPlacement()
	if !ok {
		writeGameError(w, game.ErrNothingToUndo)
		return
	}
	if err := sess.Game.Unmove(pos); err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.commit(r.Context(), sess))
}
