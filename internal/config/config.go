// internal/config/config.go
//
// Runtime configuration for the Quarto server.
// Everything comes from the environment (main loads .env first). Unset or
// empty variables fall back to development defaults; malformed numbers and
// booleans fall back too, with a warning.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// IndexBase is the numbering used for rows, columns and piece indices in the
// HTTP API.
type IndexBase int

const (
	ZeroBased IndexBase = 0
	OneBased  IndexBase = 1
)

// Based converts a zero-based index for display.
func (b IndexBase) Based(i int) int { return i + int(b) }

// Unbased converts a displayed index back to zero-based.
func (b IndexBase) Unbased(i int) int { return i - int(b) }

// Config holds every tunable of the server.
type Config struct {
	Port      string
	LogLevel  string
	LogPretty bool
	DBPath    string

	JWTSecret      string
	JWTExpiresDays int
	CookieName     string
	AnonCookieName string
	ClientOrigin   string
	Production     bool

	DailySalt       string
	IndexBase       IndexBase
	SquareMode      bool
	AIStrategy      string
	MinimaxDepth    int
	MinimaxMaxDepth int // caps MinimaxDepth and per-game depth requests
	HTTPTimeout     time.Duration
}

// Load reads the configuration from the environment.
func Load() Config {
	c := Config{
		Port:            getEnv("PORT", "5175"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogPretty:       envBool("LOG_PRETTY", false),
		DBPath:          getEnv("DB_PATH", "./data/quarto.db"),
		JWTSecret:       getEnv("JWT_SECRET", "dev_secret_change_me"),
		JWTExpiresDays:  envInt("JWT_EXPIRES_DAYS", 14),
		CookieName:      getEnv("COOKIE_NAME", "quarto_token"),
		AnonCookieName:  getEnv("ANON_COOKIE_NAME", "quarto_anon"),
		ClientOrigin:    getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		Production:      os.Getenv("NODE_ENV") == "production",
		DailySalt:       getEnv("DAILY_SALT", "local_dev_salt"),
		IndexBase:       OneBased,
		SquareMode:      envBool("SQUARE_MODE", false),
		AIStrategy:      strings.ToLower(getEnv("AI_STRATEGY", "heuristic")),
		MinimaxDepth:    envInt("MINIMAX_DEPTH", 2),
		MinimaxMaxDepth: envInt("MINIMAX_MAX_DEPTH", 3),
		HTTPTimeout:     envDuration("HTTP_TIMEOUT", 10*time.Second),
	}
	if envInt("INDEX_BASE", 1) == 0 {
		c.IndexBase = ZeroBased
	}
	if c.MinimaxMaxDepth < 1 {
		log.Warn().Int("max", c.MinimaxMaxDepth).Msg("MINIMAX_MAX_DEPTH below 1, using 1")
		c.MinimaxMaxDepth = 1
	}
	if c.MinimaxDepth > c.MinimaxMaxDepth {
		log.Warn().Int("depth", c.MinimaxDepth).Int("max", c.MinimaxMaxDepth).Msg("MINIMAX_DEPTH above the maximum, clamping")
		c.MinimaxDepth = c.MinimaxMaxDepth
	}
	return c
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		return def
	}
	return n
}

func envBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("not a boolean, using default")
		return def
	}
	return b
}

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("not a duration, using default")
		return def
	}
	return d
}
