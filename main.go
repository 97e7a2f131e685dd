// main.go
//
// Entry point of the Quarto server.
// Responsibilities:
//   - Load .env and the configuration, set up zerolog.
//   - Open and migrate the SQLite database.
//   - Start the websocket hub and serve HTTP.

package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/quarto/assets"
	"github.com/robalobadob/quarto/internal/config"
	"github.com/robalobadob/quarto/internal/database"
	"github.com/robalobadob/quarto/internal/httpserver"
	"github.com/robalobadob/quarto/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
	}
	defer db.Close()
	if err := database.Migrate(db, assets.Migrations()); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	hub := httpserver.NewHub()
	done := make(chan struct{})
	defer close(done)
	go hub.Run(done)

	srv := httpserver.New(cfg, store.NewMemoryStore(), db, hub)
	log.Info().
		Str("port", cfg.Port).
		Str("strategy", cfg.AIStrategy).
		Bool("squareMode", cfg.SquareMode).
		Int("indexBase", int(cfg.IndexBase)).
		Msg("starting quarto server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
