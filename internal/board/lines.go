// internal/board/lines.go
//
// Winning lines of the 4x4 field.
// Responsibilities:
//   - Precompute the 10 straight lines and the 9 2x2 blocks as cell masks.
//   - Lines(square) lists them in scan order: rows, columns, diagonals,
//     then blocks when square mode is on.

package board

// LineKind tells rows, columns, diagonals and blocks apart.
type LineKind string

const (
	LineRow      LineKind = "row"
	LineColumn   LineKind = "column"
	LineDiagonal LineKind = "diagonal"
	LineSquare   LineKind = "square"
)

// Line is four cells that win together.
type Line struct {
	Kind  LineKind
	Cells [4]Pos
	mask  uint16
}

var (
	// straightLines: 4 rows, 4 columns, main diagonal, anti-diagonal.
	straightLines = buildStraight()
	// allLines appends the 9 overlapping 2x2 blocks in row-major order of
	// their top-left cell.
	allLines = append(append([]Line{}, straightLines...), buildSquares()...)
)

func newLine(kind LineKind, cells [4]Pos) Line {
	l := Line{Kind: kind, Cells: cells}
	for _, c := range cells {
		l.mask |= c.bit()
	}
	return l
}

func buildStraight() []Line {
	out := make([]Line, 0, 2*Size+2)
	for r := 0; r < Size; r++ {
		out = append(out, newLine(LineRow, [4]Pos{{r, 0}, {r, 1}, {r, 2}, {r, 3}}))
	}
	for c := 0; c < Size; c++ {
		out = append(out, newLine(LineColumn, [4]Pos{{0, c}, {1, c}, {2, c}, {3, c}}))
	}
	out = append(out, newLine(LineDiagonal, [4]Pos{{0, 0}, {1, 1}, {2, 2}, {3, 3}}))
	out = append(out, newLine(LineDiagonal, [4]Pos{{0, 3}, {1, 2}, {2, 1}, {3, 0}}))
	return out
}

func buildSquares() []Line {
	out := make([]Line, 0, (Size-1)*(Size-1))
	for r := 0; r < Size-1; r++ {
		for c := 0; c < Size-1; c++ {
			out = append(out, newLine(LineSquare, [4]Pos{{r, c}, {r, c + 1}, {r + 1, c}, {r + 1, c + 1}}))
		}
	}
	return out
}

// Lines returns the lines checked under the given rule set, in scan order.
func Lines(squareMode bool) []Line {
	if squareMode {
		return append([]Line(nil), allLines...)
	}
	return append([]Line(nil), straightLines...)
}
