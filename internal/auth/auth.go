// internal/auth/auth.go
//
// JWT sessions for the Quarto server.
// Responsibilities:
//   - Signing and parsing HS256 tokens carrying id/username.
//   - Reading tokens from "Authorization: Bearer" or the auth cookie.
//   - Optional and required auth middleware that put a Principal in the
//     request context.
//   - A long-lived anonymous cookie so guest games have a stable owner.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/robalobadob/quarto/internal/config"
)

var ErrInvalidToken = errors.New("invalid token")

// Principal is the authenticated caller.
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type ctxUserKey struct{}

// FromContext returns the caller placed by the middleware, or nil for guests.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxUserKey{}).(*Principal)
	return p
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, p)
}

// Service bundles the user table and token settings.
type Service struct {
	db          *sql.DB
	secret      []byte
	expiresDays int
	cookieName  string
	anonCookie  string
	secure      bool
}

// New builds a Service from the server configuration.
func New(db *sql.DB, cfg config.Config) *Service {
	return &Service{
		db:          db,
		secret:      []byte(cfg.JWTSecret),
		expiresDays: cfg.JWTExpiresDays,
		cookieName:  cfg.CookieName,
		anonCookie:  cfg.AnonCookieName,
		secure:      cfg.Production,
	}
}

// Sign creates an HS256 token for the user.
func (s *Service) Sign(id, username string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(time.Duration(s.expiresDays) * 24 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       id,
		"username": username,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	ss, err := t.SignedString(s.secret)
	return ss, exp, err
}

// Parse validates a token and returns its principal.
func (s *Service) Parse(token string) (*Principal, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return nil, ErrInvalidToken
	}
	id, _ := claims["id"].(string)
	username, _ := claims["username"].(string)
	if id == "" || username == "" {
		return nil, ErrInvalidToken
	}
	return &Principal{ID: id, Username: username}, nil
}

// TokenFrom extracts a bearer token or the auth cookie.
func (s *Service) TokenFrom(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.cookieName); err == nil {
		return c.Value
	}
	return ""
}

func (s *Service) sameSite() http.SameSite {
	if s.secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// SetCookie writes the auth token cookie.
func (s *Service) SetCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: s.sameSite(),
		Expires:  exp,
	})
}

// ClearCookie deletes the auth token cookie.
func (s *Service) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: s.sameSite(),
		MaxAge:   -1,
	})
}

// EnsureAnonID returns the anonymous cookie, setting a fresh one if missing.
func (s *Service) EnsureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(s.anonCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     s.anonCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: s.sameSite(),
		Expires:  time.Now().Add(180 * 24 * time.Hour),
	})
	return id
}

// Owner identifies whoever a game belongs to: a user or an anonymous cookie.
type Owner struct {
	ID     string
	IsUser bool
}

// OwnerOf returns the signed-in user, falling back to the anonymous cookie.
func (s *Service) OwnerOf(w http.ResponseWriter, r *http.Request) Owner {
	if p := FromContext(r.Context()); p != nil {
		return Owner{ID: p.ID, IsUser: true}
	}
	return Owner{ID: s.EnsureAnonID(w, r)}
}

// Optional decorates requests with the caller when a valid token is present.
// It never rejects.
func (s *Service) Optional() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := s.TokenFrom(r); tok != "" {
				if p, err := s.Parse(tok); err == nil {
					if _, err := s.FindByID(r.Context(), p.ID); err == nil {
						r = r.WithContext(WithPrincipal(r.Context(), p))
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Required rejects requests without a valid token for an existing user.
func (s *Service) Required() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := s.TokenFrom(r)
			if tok == "" {
				http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
				return
			}
			p, err := s.Parse(tok)
			if err != nil {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			if _, err := s.FindByID(r.Context(), p.ID); err != nil {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
