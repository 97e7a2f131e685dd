// internal/board/board.go
//
// The 4x4 Quarto field.
// Responsibilities:
//   - Hold at most one piece per cell; cells only change through Put and Clear.
//   - Enumerate empty cells in row-major order.
//   - Detect a winning line: rows, columns, the two diagonals and, in square
//     mode, the nine overlapping 2x2 blocks.
//
// Field is a small value type. Copying it (plain assignment) yields an
// independent hypothetical board, which the AI relies on.
package board

import (
	"errors"
	"fmt"

	"github.com/robalobadob/quarto/internal/piece"
)

// Size is the edge length of the field.
const Size = 4

var (
	ErrCellOccupied = errors.New("cell occupied")
	ErrCellEmpty    = errors.New("cell empty")
	ErrOutOfBounds  = errors.New("position out of bounds")
)

// Pos addresses a cell, zero-based.
type Pos struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Pos) valid() bool {
	return p.Row >= 0 && p.Row < Size && p.Col >= 0 && p.Col < Size
}

func (p Pos) bit() uint16 { return 1 << (p.Row*Size + p.Col) }

func (p Pos) String() string { return fmt.Sprintf("(%d,%d)", p.Row, p.Col) }

// Field is the board. The zero value is an empty board.
type Field struct {
	cells    [Size * Size]piece.Piece
	occupied uint16
}

// New returns an empty field.
func New() Field { return Field{} }

// Put places p at pos.
func (f *Field) Put(pos Pos, p piece.Piece) error {
	if !pos.valid() {
		return fmt.Errorf("put %s: %w", pos, ErrOutOfBounds)
	}
	if f.occupied&pos.bit() != 0 {
		return fmt.Errorf("put %s: %w", pos, ErrCellOccupied)
	}
	f.cells[pos.Row*Size+pos.Col] = p
	f.occupied |= pos.bit()
	return nil
}

// Get returns the piece at pos, if any.
func (f Field) Get(pos Pos) (piece.Piece, bool) {
	if !pos.valid() || f.occupied&pos.bit() == 0 {
		return 0, false
	}
	return f.cells[pos.Row*Size+pos.Col], true
}

// Clear empties pos and returns what was there. Only the undo path uses it.
func (f *Field) Clear(pos Pos) (piece.Piece, error) {
	p, ok := f.Get(pos)
	if !ok {
		return 0, fmt.Errorf("clear %s: %w", pos, ErrCellEmpty)
	}
	f.occupied &^= pos.bit()
	f.cells[pos.Row*Size+pos.Col] = 0
	return p, nil
}

// Occupied is the number of filled cells.
func (f Field) Occupied() int {
	n := 0
	for m := f.occupied; m != 0; m &= m - 1 {
		n++
	}
	return n
}

// Mask returns the occupancy bitmap, bit row*4+col.
func (f Field) Mask() uint16 { return f.occupied }

// Packed returns every cell's vector in one word, nibble row*4+col. Empty
// cells read as zero; pair it with Mask to tell them apart.
func (f Field) Packed() uint64 {
	var out uint64
	for i, p := range f.cells {
		out |= uint64(p.Bits()) << (4 * i)
	}
	return out
}

// EmptySpaces lists unoccupied cells in row-major order.
func (f Field) EmptySpaces() []Pos {
	out := make([]Pos, 0, Size*Size)
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			pos := Pos{Row: r, Col: c}
			if f.occupied&pos.bit() == 0 {
				out = append(out, pos)
			}
		}
	}
	return out
}

// CheckForWin reports whether any line of the active rule set is complete and
// its four pieces share at least one set attribute.
func (f Field) CheckForWin(squareMode bool) bool {
	_, ok := f.WinningLine(squareMode)
	return ok
}

// WinningLine returns the first winning line in scan order.
func (f Field) WinningLine(squareMode bool) (Line, bool) {
	n := len(straightLines)
	if squareMode {
		n = len(allLines)
	}
	for _, l := range allLines[:n] {
		if f.occupied&l.mask != l.mask {
			continue
		}
		shared := uint8(0x0f)
		for _, pos := range l.Cells {
			shared &= f.cells[pos.Row*Size+pos.Col].Bits()
		}
		if shared != 0 {
			return l, true
		}
	}
	return Line{}, false
}
