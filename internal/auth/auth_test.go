package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/robalobadob/quarto/internal/config"
	"github.com/robalobadob/quarto/internal/database/dbtest"
)

func newService(t *testing.T) *Service {
	t.Helper()
	cfg := config.Load()
	cfg.JWTSecret = "test_secret"
	cfg.CookieName = "tok"
	cfg.AnonCookieName = "anon"
	return New(dbtest.Open(t), cfg)
}

func TestValidateSignup(t *testing.T) {
	cases := []struct {
		user, pw string
		want     error
	}{
		{"bob_42", "password1", nil},
		{"bo", "password1", ErrInvalidUsername},
		{"bob smith", "password1", ErrInvalidUsername},
		{"bob", "short", ErrInvalidPassword},
	}
	for _, tc := range cases {
		if err := ValidateSignup(tc.user, tc.pw); !errors.Is(err, tc.want) {
			t.Fatalf("%q/%q: expected %v, got %v", tc.user, tc.pw, tc.want, err)
		}
	}
}

func TestCreateAndAuthenticate(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "  Alice ", "correct-horse")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Username != "Alice" || u.ID == "" {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := s.CreateUser(ctx, "alice", "another-pass"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := s.Authenticate(ctx, "ALICE", "correct-horse"); err != nil {
		t.Fatalf("expected case-insensitive login, got %v", err)
	}
	if _, err := s.Authenticate(ctx, "alice", "wrong-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	got, err := s.FindByID(ctx, u.ID)
	if err != nil || got.GamesPlayed != 0 || !got.CreatedAt.Equal(u.CreatedAt) {
		t.Fatalf("unexpected lookup %+v %v", got, err)
	}
}

func TestSignAndParse(t *testing.T) {
	s := newService(t)
	tok, exp, err := s.Sign("id-1", "bob")
	if err != nil || exp.IsZero() {
		t.Fatalf("sign: %v", err)
	}
	p, err := s.Parse(tok)
	if err != nil || p.ID != "id-1" || p.Username != "bob" {
		t.Fatalf("unexpected principal %+v %v", p, err)
	}

	other := *s
	other.secret = []byte("someone_else")
	if _, err := other.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for a foreign secret, got %v", err)
	}
	if _, err := s.Parse("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	s := newService(t)
	u, err := s.CreateUser(context.Background(), "carol", "password123")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tok, _, _ := s.Sign(u.ID, u.Username)

	var seen *Principal
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { seen = FromContext(r.Context()) })

	rec := httptest.NewRecorder()
	s.Required()(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	s.Required()(h).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || seen == nil || seen.ID != u.ID {
		t.Fatalf("expected the principal in context, got %d %+v", rec.Code, seen)
	}

	seen = nil
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "tok", Value: tok})
	s.Optional()(h).ServeHTTP(httptest.NewRecorder(), req)
	if seen == nil || seen.Username != "carol" {
		t.Fatalf("expected the cookie to authenticate, got %+v", seen)
	}

	seen = &Principal{}
	s.Optional()(h).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if seen != nil {
		t.Fatalf("expected guests to pass without a principal")
	}
}

func TestEnsureAnonID(t *testing.T) {
	s := newService(t)
	rec := httptest.NewRecorder()
	id := s.EnsureAnonID(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if id == "" || len(rec.Result().Cookies()) != 1 {
		t.Fatalf("expected a fresh anonymous cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "anon", Value: id})
	rec = httptest.NewRecorder()
	if got := s.EnsureAnonID(rec, req); got != id || len(rec.Result().Cookies()) != 0 {
		t.Fatalf("expected the existing cookie to be reused")
	}
	if o := s.OwnerOf(rec, req); o.IsUser || o.ID != id {
		t.Fatalf("expected an anonymous owner, got %+v", o)
	}
}
