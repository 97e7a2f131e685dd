// internal/httpserver/view.go
//
// JSON rendering of a live session.
// Responsibilities:
//   - Board, remaining pieces and the forced piece with their attributes.
//   - Status, winner and winning line.
//   - Seats and whether a human is due.

package httpserver

import (
	"github.com/robalobadob/quarto/internal/board"
	"github.com/robalobadob/quarto/internal/piece"
	"github.com/robalobadob/quarto/internal/store"
)

// pieceView describes a piece. Index is its based position in the remaining
// list and is only set there.
type pieceView struct {
	Index *int   `json:"index,omitempty"`
	Value int    `json:"value"`
	Name  string `json:"name"`
	Tall  bool   `json:"tall"`
	Round bool   `json:"round"`
	Full  bool   `json:"full"`
	Light bool   `json:"light"`
}

type posView struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// gameView is the JSON shape of a session. Rows, columns and piece indices
// use the configured index base; players are 1 and 2.
type gameView struct {
	GameID      string                             `json:"gameId"`
	Mode        store.Mode                         `json:"mode"`
	Round       int                                `json:"round"`
	Status      string                             `json:"status"`
	Player      int                                `json:"player"`
	Winner      int                                `json:"winner,omitempty"`
	NextPiece   *pieceView                         `json:"nextPiece,omitempty"`
	Remaining   []pieceView                        `json:"remaining"`
	Board       [board.Size][board.Size]*pieceView `json:"board"`
	SquareMode  bool                               `json:"squareMode"`
	IndexBase   int                                `json:"indexBase"`
	WinningLine []posView                          `json:"winningLine,omitempty"`
	Seats       [2]string                          `json:"seats"`
	HumanToMove bool                               `json:"humanToMove"`
	DailyDate   string                             `json:"dailyDate,omitempty"`
}

func newPieceView(p piece.Piece) pieceView {
	return pieceView{
		Value: int(p.Bits()),
		Name:  p.String(),
		Tall:  p.Has(piece.Tall),
		Round: p.Has(piece.Round),
		Full:  p.Has(piece.Full),
		Light: p.Has(piece.Light),
	}
}

// view renders sess. The caller holds the session lock.
func (s *Server) view(sess *store.Session) gameView {
	base := s.cfg.IndexBase
	g := sess.Game
	st := g.Status()
	v := gameView{
		GameID:      sess.ID,
		Mode:        sess.Mode,
		Round:       g.Round(),
		Status:      st.Kind.String(),
		Player:      st.Player.Number(),
		SquareMode:  g.Rules().SquareMode,
		IndexBase:   int(base),
		HumanToMove: sess.HumanToMove(),
		DailyDate:   sess.DailyDate,
	}
	if w, ok := g.Winner(); ok {
		v.Winner = w.Number()
	}
	if p, ok := g.NextPiece(); ok {
		pv := newPieceView(p)
		v.NextPiece = &pv
	}

	rem := g.RemainingPieces()
	v.Remaining = make([]pieceView, len(rem))
	for i, p := range rem {
		v.Remaining[i] = newPieceView(p)
		idx := base.Based(i)
		v.Remaining[i].Index = &idx
	}

	f := g.Field()
	for r := 0; r < board.Size; r++ {
		for c := 0; c < board.Size; c++ {
			if p, ok := f.Get(board.Pos{Row: r, Col: c}); ok {
				pv := newPieceView(p)
				v.Board[r][c] = &pv
			}
		}
	}
	if line, ok := f.WinningLine(v.SquareMode); ok && v.Winner != 0 {
		for _, pos := range line.Cells {
			v.WinningLine = append(v.WinningLine, posView{Row: base.Based(pos.Row), Col: base.Based(pos.Col)})
		}
	}

	for i, seat := range sess.Seats {
		if seat.Human() {
			v.Seats[i] = "human"
		} else {
			v.Seats[i] = seat.Strategy
		}
	}
	return v
}
