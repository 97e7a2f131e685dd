package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/robalobadob/quarto/internal/board"
	"github.com/robalobadob/quarto/internal/config"
	"github.com/robalobadob/quarto/internal/database/dbtest"
	"github.com/robalobadob/quarto/internal/store"
)

type testEnv struct {
	srv *Server
	ts  *httptest.Server
}

func newTestEnv(t *testing.T, opts ...func(*Server)) *testEnv {
	t.Helper()
	cfg := config.Load()
	cfg.JWTSecret = "test_secret"
	cfg.IndexBase = config.OneBased
	cfg.SquareMode = false
	cfg.AIStrategy = "heuristic"
	cfg.MinimaxDepth = 1
	cfg.MinimaxMaxDepth = 3
	cfg.HTTPTimeout = 10 * time.Second
	cfg.DailySalt = "test_salt"
	cfg.Production = false

	hub := NewHub()
	done := make(chan struct{})
	go hub.Run(done)

	srv := New(cfg, store.NewMemoryStore(), dbtest.Open(t), hub)
	for _, opt := range opts {
		opt(srv)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		close(done)
	})
	return &testEnv{srv: srv, ts: ts}
}

func (e *testEnv) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar}
}

// do sends body as JSON and decodes the answer into out when out is set.
func (e *testEnv) do(t *testing.T, c *http.Client, method, path string, body, out any) int {
	t.Helper()
	var b []byte
	if body != nil {
		var err error
		if b, err = json.Marshal(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, e.ts.URL+path, bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if out != nil && res.StatusCode < 300 {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return res.StatusCode
}

func (e *testEnv) newGame(t *testing.T, c *http.Client, req map[string]any) gameView {
	t.Helper()
	var v gameView
	if code := e.do(t, c, http.MethodPost, "/game/new", req, &v); code != http.StatusOK {
		t.Fatalf("new game %v: expected 200, got %d", req, code)
	}
	return v
}

// firstEmpty returns the based coordinates of the first free cell.
func firstEmpty(v gameView) (int, int) {
	for r := 0; r < board.Size; r++ {
		for c := 0; c < board.Size; c++ {
			if v.Board[r][c] == nil {
				return r + v.IndexBase, c + v.IndexBase
			}
		}
	}
	return -1, -1
}

func finished(v gameView) bool { return v.Status == "won" || v.Status == "draw" }

// playOut makes the human seat play the first free cell and the first
// remaining piece until the game ends.
func (e *testEnv) playOut(t *testing.T, c *http.Client, v gameView) gameView {
	t.Helper()
	for i := 0; i < 20 && !finished(v); i++ {
		if !v.HumanToMove {
			t.Fatalf("expected a human to move, got %+v", v)
		}
		path := "/game/" + v.GameID
		var code int
		if v.Status == "initial_move" {
			code = e.do(t, c, http.MethodPost, path+"/initial", map[string]int{"piece": v.IndexBase}, &v)
		} else {
			row, col := firstEmpty(v)
			code = e.do(t, c, http.MethodPost, path+"/move", map[string]int{"row": row, "col": col, "piece": v.IndexBase}, &v)
		}
		if code != http.StatusOK {
			t.Fatalf("move %d: expected 200, got %d", i, code)
		}
	}
	if !finished(v) {
		t.Fatalf("game did not finish: %+v", v)
	}
	return v
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	var body map[string]bool
	if code := e.do(t, e.client(t), http.MethodGet, "/health", nil, &body); code != http.StatusOK || !body["ok"] {
		t.Fatalf("expected ok, got %d %v", code, body)
	}
}

func TestPvPFlow(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	v := e.newGame(t, c, map[string]any{"mode": "pvp", "startingPlayer": 2})

	if v.Status != "initial_move" || v.Player != 2 || v.Round != 1 || len(v.Remaining) != 16 {
		t.Fatalf("unexpected start view %+v", v)
	}
	if *v.Remaining[0].Index != 1 || v.Seats != [2]string{"human", "human"} {
		t.Fatalf("expected one-based indices and human seats, got %+v", v)
	}

	path := "/game/" + v.GameID
	e.do(t, c, http.MethodPost, path+"/initial", map[string]int{"piece": 16}, &v)
	if v.Status != "move" || v.Player != 1 || v.NextPiece == nil || v.NextPiece.Value != 15 || len(v.Remaining) != 15 {
		t.Fatalf("unexpected view after hand-off %+v", v)
	}

	e.do(t, c, http.MethodPost, path+"/move", map[string]int{"row": 1, "col": 1, "piece": 1}, &v)
	if v.Board[0][0] == nil || v.Board[0][0].Value != 15 {
		t.Fatalf("expected piece 15 at the top-left, got %+v", v.Board[0][0])
	}
	if v.Player != 2 || v.NextPiece.Value != 0 || v.Round != 2 {
		t.Fatalf("unexpected view after move %+v", v)
	}

	var got gameView
	if code := e.do(t, c, http.MethodGet, path, nil, &got); code != http.StatusOK || got.Round != v.Round {
		t.Fatalf("get game: %d %+v", code, got)
	}

	rec, err := e.srv.records.Get(context.Background(), v.GameID)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.Mode != "pvp" || len(rec.Moves) != 2 || rec.Status != "move" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestGameErrors(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	v := e.newGame(t, c, map[string]any{"mode": "pvp"})
	path := "/game/" + v.GameID

	cases := []struct {
		name string
		path string
		body any
		want int
	}{
		{"unknown game", "/game/nope", nil, http.StatusNotFound},
		{"move before hand-off", path + "/move", map[string]int{"row": 1, "col": 1, "piece": 1}, http.StatusConflict},
		{"unknown piece index", path + "/initial", map[string]int{"piece": 17}, http.StatusBadRequest},
		{"zero index when one-based", path + "/initial", map[string]int{"piece": 0}, http.StatusBadRequest},
		{"hand-off", path + "/initial", map[string]int{"piece": 1}, http.StatusOK},
		{"second hand-off", path + "/initial", map[string]int{"piece": 1}, http.StatusConflict},
		{"off the board", path + "/move", map[string]int{"row": 5, "col": 1, "piece": 1}, http.StatusBadRequest},
		{"place", path + "/move", map[string]int{"row": 2, "col": 2, "piece": 1}, http.StatusOK},
		{"occupied cell", path + "/move", map[string]int{"row": 2, "col": 2, "piece": 1}, http.StatusConflict},
		{"step without ai", path + "/step", nil, http.StatusConflict},
	}
	for _, tc := range cases {
		method := http.MethodPost
		if tc.body == nil && !strings.HasSuffix(tc.path, "/step") {
			method = http.MethodGet
		}
		if code := e.do(t, c, method, tc.path, tc.body, nil); code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, code)
		}
	}

	if code := e.do(t, c, http.MethodPost, "/game/new", map[string]any{"mode": "chess"}, nil); code != http.StatusBadRequest {
		t.Fatalf("invalid mode: expected 400, got %d", code)
	}
	if code := e.do(t, c, http.MethodPost, "/game/new", map[string]any{"mode": "ai", "strategy": "oracle"}, nil); code != http.StatusBadRequest {
		t.Fatalf("unknown strategy: expected 400, got %d", code)
	}
}

func TestUndo(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	v := e.newGame(t, c, map[string]any{"mode": "pvp"})
	path := "/game/" + v.GameID

	if code := e.do(t, c, http.MethodPost, path+"/undo", nil, nil); code != http.StatusConflict {
		t.Fatalf("undo on a fresh game: expected 409, got %d", code)
	}
	e.do(t, c, http.MethodPost, path+"/initial", map[string]int{"piece": 3}, &v)
	before := v
	e.do(t, c, http.MethodPost, path+"/move", map[string]int{"row": 4, "col": 4, "piece": 5}, &v)

	if code := e.do(t, c, http.MethodPost, path+"/undo", nil, &v); code != http.StatusOK {
		t.Fatalf("undo: expected 200, got %d", code)
	}
	if v.Board[3][3] != nil || v.Player != before.Player || v.NextPiece.Value != before.NextPiece.Value {
		t.Fatalf("undo did not restore the position: %+v", v)
	}
	for i, p := range v.Remaining {
		if p.Value != before.Remaining[i].Value {
			t.Fatalf("remaining order changed at %d: %d vs %d", i, p.Value, before.Remaining[i].Value)
		}
	}

	ai := e.newGame(t, c, map[string]any{"mode": "ai"})
	if code := e.do(t, c, http.MethodPost, "/game/"+ai.GameID+"/undo", nil, nil); code != http.StatusConflict {
		t.Fatalf("undo in ai mode: expected 409, got %d", code)
	}
}

func TestAIAnswersImmediately(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	v := e.newGame(t, c, map[string]any{"mode": "ai", "startingPlayer": 1, "humanPlayer": 2, "seed": 7})

	if v.Status != "move" || v.Player != 2 || !v.HumanToMove || len(v.Remaining) != 15 {
		t.Fatalf("expected the ai to open with a hand-off, got %+v", v)
	}
	if v.Seats != [2]string{"heuristic", "human"} {
		t.Fatalf("unexpected seats %v", v.Seats)
	}

	v = e.playOut(t, c, v)
	rec, err := e.srv.records.Get(context.Background(), v.GameID)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.Status != v.Status || rec.FinishedAt == "" || rec.Seed != "7" {
		t.Fatalf("unexpected record %+v for view %+v", rec, v)
	}
}

func TestAIvAIStepsToTheEnd(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	v := e.newGame(t, c, map[string]any{"mode": "aivai", "strategy": "minimax", "depth": 1, "seed": 11, "squareMode": true})
	if v.Status != "initial_move" || v.HumanToMove || !v.SquareMode {
		t.Fatalf("aivai must wait for a step, got %+v", v)
	}

	path := "/game/" + v.GameID
	steps := 0
	for !finished(v) {
		if code := e.do(t, c, http.MethodPost, path+"/step", nil, &v); code != http.StatusOK {
			t.Fatalf("step %d: expected 200, got %d", steps, code)
		}
		steps++
		if steps > 17 {
			t.Fatalf("too many steps: %+v", v)
		}
	}
	if code := e.do(t, c, http.MethodPost, path+"/step", nil, nil); code != http.StatusConflict {
		t.Fatalf("step after the end: expected 409, got %d", code)
	}
	if v.Status == "won" && len(v.WinningLine) != 4 {
		t.Fatalf("expected a winning line, got %+v", v.WinningLine)
	}
}

func TestAuthStatsAndHistory(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	if code := e.do(t, c, http.MethodGet, "/auth/me", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("me without token: expected 401, got %d", code)
	}

	guest := e.newGame(t, c, map[string]any{"mode": "pvp"})

	creds := map[string]string{"username": "alice", "password": "password1"}
	if code := e.do(t, c, http.MethodPost, "/auth/signup", creds, nil); code != http.StatusOK {
		t.Fatalf("signup: expected 200, got %d", code)
	}
	if code := e.do(t, c, http.MethodPost, "/auth/signup", creds, nil); code != http.StatusConflict {
		t.Fatalf("duplicate signup: expected 409, got %d", code)
	}

	var me map[string]string
	if code := e.do(t, c, http.MethodGet, "/auth/me", nil, &me); code != http.StatusOK || me["username"] != "alice" {
		t.Fatalf("me: %d %v", code, me)
	}

	var mine []map[string]any
	e.do(t, c, http.MethodGet, "/games/mine", nil, &mine)
	if len(mine) != 1 || mine[0]["id"] != guest.GameID {
		t.Fatalf("expected the guest game to be claimed, got %v", mine)
	}

	v := e.newGame(t, c, map[string]any{"mode": "ai", "seed": 3})
	e.playOut(t, c, v)

	var stats map[string]any
	e.do(t, c, http.MethodGet, "/stats/me", nil, &stats)
	if stats["gamesPlayed"] != float64(1) {
		t.Fatalf("expected one finished game, got %v", stats)
	}

	if code := e.do(t, c, http.MethodPost, "/auth/logout", nil, nil); code != http.StatusOK {
		t.Fatalf("logout: %d", code)
	}
	if code := e.do(t, c, http.MethodGet, "/stats/me", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("stats after logout: expected 401, got %d", code)
	}

	bad := map[string]string{"username": "alice", "password": "wrong-password"}
	if code := e.do(t, e.client(t), http.MethodPost, "/auth/login", bad, nil); code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", code)
	}
	if code := e.do(t, e.client(t), http.MethodPost, "/auth/login", creds, nil); code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", code)
	}
}

func TestDailyOncePerDay(t *testing.T) {
	day := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	e := newTestEnv(t, func(s *Server) { s.daily.now = func() time.Time { return day } })
	c := e.client(t)

	var first dailyNewRes
	e.do(t, c, http.MethodPost, "/daily/new", nil, &first)
	if first.Played || first.GameID == "" || first.Date != "2024-03-01" || first.Game == nil {
		t.Fatalf("unexpected daily start %+v", first)
	}
	if first.Game.Mode != store.ModeDaily || first.Game.Player != 1 || !first.Game.HumanToMove {
		t.Fatalf("the human must open the daily game, got %+v", first.Game)
	}

	var again dailyNewRes
	e.do(t, c, http.MethodPost, "/daily/new", nil, &again)
	if again.GameID != first.GameID {
		t.Fatalf("expected the session to be reused, got %s vs %s", again.GameID, first.GameID)
	}

	end := e.playOut(t, c, *first.Game)

	var done dailyNewRes
	e.do(t, c, http.MethodPost, "/daily/new", nil, &done)
	if !done.Played || done.GameID != "" {
		t.Fatalf("expected played=true after finishing, got %+v", done)
	}

	var lb lbRes
	e.do(t, c, http.MethodGet, "/daily/leaderboard?date=2024-03-01", nil, &lb)
	if len(lb.Top) != 1 {
		t.Fatalf("expected one leaderboard row, got %+v", lb)
	}
	want := "draw"
	if end.Status == "won" {
		want = "lost"
		if end.Winner == 1 {
			want = "won"
		}
	}
	if lb.Top[0].Outcome != want || lb.Top[0].Rounds != end.Round {
		t.Fatalf("expected outcome %s in round %d, got %+v", want, end.Round, lb.Top[0])
	}

	var other dailyNewRes
	e.do(t, e.client(t), http.MethodPost, "/daily/new", nil, &other)
	if other.Played || other.GameID == first.GameID {
		t.Fatalf("another player gets a fresh game, got %+v", other)
	}
}

func TestWebsocketReceivesMoves(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	v := e.newGame(t, c, map[string]any{"mode": "pvp"})

	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws/game/" + v.GameID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() gameView {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type != "game" {
			t.Fatalf("expected a game message, got %q", msg.Type)
		}
		var got gameView
		if err := json.Unmarshal(msg.Payload, &got); err != nil {
			t.Fatal(err)
		}
		return got
	}

	if got := read(); got.GameID != v.GameID || got.Status != "initial_move" {
		t.Fatalf("unexpected first message %+v", got)
	}
	if n := e.srv.hub.Subscribers(v.GameID); n != 1 {
		t.Fatalf("expected one subscriber, got %d", n)
	}

	e.do(t, c, http.MethodPost, "/game/"+v.GameID+"/initial", map[string]int{"piece": 2}, nil)
	if got := read(); got.Status != "move" || got.NextPiece == nil || got.NextPiece.Value != 1 {
		t.Fatalf("expected the hand-off to be pushed, got %+v", got)
	}

	if code := e.do(t, c, http.MethodGet, "/ws/game/nope", nil, nil); code != http.StatusNotFound {
		t.Fatalf("unknown game: expected 404, got %d", code)
	}
}

func TestSignupMidGameKeepsRecording(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	v := e.newGame(t, c, map[string]any{"mode": "ai", "seed": 21})
	e.do(t, c, http.MethodPost, "/game/"+v.GameID+"/initial", map[string]int{"piece": 1}, &v)

	creds := map[string]string{"username": "mallory", "password": "password1"}
	if code := e.do(t, c, http.MethodPost, "/auth/signup", creds, nil); code != http.StatusOK {
		t.Fatalf("signup: expected 200, got %d", code)
	}
	end := e.playOut(t, c, v)

	var mine []map[string]any
	e.do(t, c, http.MethodGet, "/games/mine", nil, &mine)
	if len(mine) != 1 || mine[0]["status"] != end.Status || mine[0]["finishedAt"] == nil {
		t.Fatalf("expected the finished game in the history, got %v", mine)
	}
	rec, err := e.srv.records.Get(context.Background(), v.GameID)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.Rounds != end.Round || len(rec.Moves) == 0 {
		t.Fatalf("expected the stored row to follow the game, got %+v", rec)
	}

	var stats map[string]any
	e.do(t, c, http.MethodGet, "/stats/me", nil, &stats)
	if stats["gamesPlayed"] != float64(1) {
		t.Fatalf("expected the game to count for the new account, got %v", stats)
	}
}

func TestMinimaxDepthIsBounded(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	limit := e.srv.cfg.MinimaxMaxDepth
	req := map[string]any{"mode": "ai", "strategy": "minimax", "depth": limit + 1}
	if code := e.do(t, c, http.MethodPost, "/game/new", req, nil); code != http.StatusBadRequest {
		t.Fatalf("depth %d: expected 400, got %d", limit+1, code)
	}
	req["depth"] = -1
	if code := e.do(t, c, http.MethodPost, "/game/new", req, nil); code != http.StatusBadRequest {
		t.Fatalf("negative depth: expected 400, got %d", code)
	}
	req["depth"] = 1
	if code := e.do(t, c, http.MethodPost, "/game/new", req, nil); code != http.StatusOK {
		t.Fatalf("depth 1: expected 200, got %d", code)
	}
}

func TestOnlyTheOwnerMovesInAIGames(t *testing.T) {
	e := newTestEnv(t)
	owner, other := e.client(t), e.client(t)

	v := e.newGame(t, owner, map[string]any{"mode": "ai"})
	path := "/game/" + v.GameID
	if code := e.do(t, other, http.MethodPost, path+"/initial", map[string]int{"piece": 1}, nil); code != http.StatusForbidden {
		t.Fatalf("stranger hand-off: expected 403, got %d", code)
	}
	if code := e.do(t, other, http.MethodGet, path, nil, nil); code != http.StatusOK {
		t.Fatalf("stranger read: expected 200, got %d", code)
	}
	if code := e.do(t, owner, http.MethodPost, path+"/initial", map[string]int{"piece": 1}, nil); code != http.StatusOK {
		t.Fatalf("owner hand-off: expected 200, got %d", code)
	}

	aivai := e.newGame(t, owner, map[string]any{"mode": "aivai"})
	if code := e.do(t, other, http.MethodPost, "/game/"+aivai.GameID+"/step", nil, nil); code != http.StatusForbidden {
		t.Fatalf("stranger step: expected 403, got %d", code)
	}

	pvp := e.newGame(t, owner, map[string]any{"mode": "pvp"})
	if code := e.do(t, other, http.MethodPost, "/game/"+pvp.GameID+"/initial", map[string]int{"piece": 1}, nil); code != http.StatusOK {
		t.Fatalf("pvp games are shared: expected 200, got %d", code)
	}
}

func TestConcurrentDailyStartsShareOneGame(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	// Any game hands out the anonymous cookie.
	e.newGame(t, c, map[string]any{"mode": "pvp"})

	const n = 8
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Post(e.ts.URL+"/daily/new", "application/json", nil)
			if err != nil {
				ids <- "error: " + err.Error()
				return
			}
			defer res.Body.Close()
			var out dailyNewRes
			if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
				ids <- "error: " + err.Error()
				return
			}
			ids <- out.GameID
		}()
	}
	wg.Wait()
	close(ids)

	var first string
	for id := range ids {
		if first == "" {
			first = id
		}
		if id != first || strings.HasPrefix(id, "error") {
			t.Fatalf("expected one shared daily game, got %q and %q", first, id)
		}
	}
}
