// FILE: internal/board/position.go
package board

import "fmt"

const (
	Size    = 8
	Squares = Size * Size
)

// Position addresses a square by zero-based row and column
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Position) InBounds() bool {
	return p.Row >= 0 && p.Row < Size && p.Col >= 0 && p.Col < Size
}

// Index returns the row-major square index, only meaningful when InBounds
func (p Position) Index() int {
	return p.Row*Size + p.Col
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

func PositionFromIndex(i int) Position {
	return Position{Row: i / Size, Col: i % Size}
}

// Direction is a unit step on the board
type Direction struct {
	DRow int
	DCol int
}

var (
	North     = Direction{-1, 0}
	NorthEast = Direction{-1, 1}
	East      = Direction{0, 1}
	SouthEast = Direction{1, 1}
	South     = Direction{1, 0}
	SouthWest = Direction{1, -1}
	West      = Direction{0, -1}
	NorthWest = Direction{-1, -1}
)

// Directions lists all eight directions clockwise from north
var Directions = [8]Direction{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

func (p Position) step(d Direction) Position {
	return Position{Row: p.Row + d.DRow, Col: p.Col + d.DCol}
}

// Run is a contiguous line of opposing stones flanked by a placement
type Run struct {
	Direction Direction
	Cells     []Position
}
