// FILE: internal/board/board.go
package board

import (
	"errors"
	"fmt"
	"strings"

	"reversi/internal/core"
)

var (
	ErrInvalidMove = errors.New("invalid move")
	ErrOutOfBounds = errors.New("position out of bounds")
)

type Cell byte

const (
	Empty      Cell = '.'
	BlackStone Cell = 'B'
	WhiteStone Cell = 'W'
)

// Stone returns the cell a side places
func Stone(side core.Side) Cell {
	if side == core.SideWhite {
		return WhiteStone
	}
	return BlackStone
}

// Board is a value type, every mutation returns a new Board
type Board struct {
	cells [Squares]Cell
}

// Score holds stone counts per side
type Score struct {
	Black int `json:"black"`
	White int `json:"white"`
}

func (s Score) Total() int {
	return s.Black + s.White
}

// New returns the standard opening position
func New() Board {
	var b Board
	for i := range b.cells {
		b.cells[i] = Empty
	}
	b.cells[Position{3, 3}.Index()] = WhiteStone
	b.cells[Position{3, 4}.Index()] = BlackStone
	b.cells[Position{4, 3}.Index()] = BlackStone
	b.cells[Position{4, 4}.Index()] = WhiteStone
	return b
}

// Parse reads eight rows of '.', 'B' and 'W', row 0 first. Whitespace between rows is ignored.
func Parse(s string) (Board, error) {
	var b Board
	rows := strings.Fields(s)
	if len(rows) != Size {
		return b, fmt.Errorf("invalid board: expected %d rows, got %d", Size, len(rows))
	}

	for r, row := range rows {
		if len(row) != Size {
			return b, fmt.Errorf("invalid board: row %d has %d cells", r+1, len(row))
		}
		for c := 0; c < Size; c++ {
			cell := Cell(row[c])
			switch cell {
			case Empty, BlackStone, WhiteStone:
				b.cells[r*Size+c] = cell
			default:
				return b, fmt.Errorf("invalid board: unexpected %q at row %d", row[c], r+1)
			}
		}
	}
	return b, nil
}

func (b Board) Clone() Board {
	return b
}

func (b Board) At(pos Position) (Cell, error) {
	if !pos.InBounds() {
		return Empty, fmt.Errorf("%w: %s", ErrOutOfBounds, pos)
	}
	return b.cells[pos.Index()], nil
}

func (b Board) Set(pos Position, cell Cell) (Board, error) {
	if !pos.InBounds() {
		return b, fmt.Errorf("%w: %s", ErrOutOfBounds, pos)
	}
	b.cells[pos.Index()] = cell
	return b, nil
}

func (b Board) Count() Score {
	var s Score
	for _, c := range b.cells {
		switch c {
		case BlackStone:
			s.Black++
		case WhiteStone:
			s.White++
		}
	}
	return s
}

// Empties returns the number of unoccupied squares
func (b Board) Empties() int {
	n := 0
	for _, c := range b.cells {
		if c == Empty {
			n++
		}
	}
	return n
}

// Validate returns every run the placement would flip
func (b Board) Validate(pos Position, side core.Side) ([]Run, error) {
	if !pos.InBounds() {
		return nil, fmt.Errorf("%w: %s", ErrOutOfBounds, pos)
	}
	if b.cells[pos.Index()] != Empty {
		return nil, fmt.Errorf("%w: %s is occupied", ErrInvalidMove, pos)
	}

	runs := b.runs(pos, side)
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: %s flips nothing", ErrInvalidMove, pos)
	}
	return runs, nil
}

func (b Board) runs(pos Position, side core.Side) []Run {
	own := Stone(side)
	opp := Stone(side.Opposite())

	var runs []Run
	for _, d := range Directions {
		var cells []Position
		cur := pos.step(d)
		for cur.InBounds() && b.cells[cur.Index()] == opp {
			cells = append(cells, cur)
			cur = cur.step(d)
		}
		// Run counts only when closed by an own stone
		if len(cells) > 0 && cur.InBounds() && b.cells[cur.Index()] == own {
			runs = append(runs, Run{Direction: d, Cells: cells})
		}
	}
	return runs
}

// Apply places a stone for side and flips all flanked runs
func (b Board) Apply(pos Position, side core.Side) (Board, error) {
	runs, err := b.Validate(pos, side)
	if err != nil {
		return b, err
	}

	own := Stone(side)
	next := b
	next.cells[pos.Index()] = own
	for _, run := range runs {
		for _, p := range run.Cells {
			next.cells[p.Index()] = own
		}
	}
	return next, nil
}

// ValidMoves lists legal placements for side in row-major order
func (b Board) ValidMoves(side core.Side) []Position {
	moves := []Position{}
	for i, c := range b.cells {
		if c != Empty {
			continue
		}
		pos := PositionFromIndex(i)
		if len(b.runs(pos, side)) > 0 {
			moves = append(moves, pos)
		}
	}
	return moves
}

// HasMoves reports whether side has at least one legal placement
func (b Board) HasMoves(side core.Side) bool {
	for i, c := range b.cells {
		if c == Empty && len(b.runs(PositionFromIndex(i), side)) > 0 {
			return true
		}
	}
	return false
}

// String renders the board with file letters and rank numbers
func (b Board) String() string {
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")
	for r := 0; r < Size; r++ {
		sb.WriteString(fmt.Sprintf("%d ", r+1))
		for c := 0; c < Size; c++ {
			sb.WriteByte(byte(b.cells[r*Size+c]))
			if c < Size-1 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(fmt.Sprintf(" %d\n", r+1))
	}
	sb.WriteString("  a b c d e f g h")
	return sb.String()
}

// Rows returns the compact row form accepted by Parse
func (b Board) Rows() []string {
	rows := make([]string, Size)
	for r := 0; r < Size; r++ {
		row := make([]byte, Size)
		for c := 0; c < Size; c++ {
			row[c] = byte(b.cells[r*Size+c])
		}
		rows[r] = string(row)
	}
	return rows
}
