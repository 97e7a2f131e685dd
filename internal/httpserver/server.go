// internal/httpserver/server.go
//
// HTTP server wiring for the Quarto backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Game endpoints (optional auth): /game/new, /game/{id}[/initial|/move|/step|/undo].
//   - Daily challenge endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /games/mine.
//   - Live game feed: /ws/game/{id}.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - A panic in a strategy is recovered by chimw.Recoverer and answered 500.
//   - The websocket route sits outside the timeout and JSON middleware.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/robalobadob/quarto/internal/auth"
	"github.com/robalobadob/quarto/internal/config"
	"github.com/robalobadob/quarto/internal/records"
	"github.com/robalobadob/quarto/internal/store"
)

// Server bundles the router, live sessions and the database.
type Server struct {
	r       *chi.Mux
	cfg     config.Config
	store   store.Store
	db      *sql.DB
	auth    *auth.Service
	records *records.Store
	hub     *Hub
	daily   *dailyServer
}

// New constructs a Server, installs middleware and registers routes. The
// caller runs hub.
func New(cfg config.Config, st store.Store, db *sql.DB, hub *Hub) *Server {
	s := &Server{
		r:       chi.NewRouter(),
		cfg:     cfg,
		store:   st,
		db:      db,
		auth:    auth.New(db, cfg),
		records: records.NewStore(db),
		hub:     hub,
	}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(s.cors)

	s.r.Group(func(api chi.Router) {
		api.Use(chimw.Timeout(cfg.HTTPTimeout))
		api.Use(jsonContentType)

		api.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"service":"quarto-go","endpoints":["/health","POST /game/new","GET /game/{id}","POST /game/{id}/initial","POST /game/{id}/move","POST /game/{id}/step","POST /game/{id}/undo","/daily/*","/auth/*","/ws/game/{id}"]}`))
		})
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		// Game endpoints: OPTIONAL AUTH (guests can play)
		api.Group(func(r chi.Router) {
			r.Use(s.auth.Optional())
			s.mountGame(r)
			s.mountDaily(r)
		})

		s.mountAuthRoutes(api)

		api.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
		})
	})

	s.r.Get("/ws/game/{id}", s.handleWS)
	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
