// FILE: internal/replay/replay.go
package replay

import (
	"errors"
	"fmt"

	"reversi/internal/board"
	"reversi/internal/codec"
	"reversi/internal/core"
)

var ErrReplay = errors.New("illegal move sequence")

// Error reports the first move of a history that could not be applied
type Error struct {
	Index int
	Move  board.Position
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("replay: move %d (%s): %v", e.Index, codec.Notation(e.Move), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrReplay
}

// Result is the position reached after replaying a history
type Result struct {
	Board board.Board `json:"-"`
	Black int         `json:"black"`
	White int         `json:"white"`
	Next  core.Side   `json:"next"`
	End   board.End   `json:"end"`
}

func (r Result) Winner() core.Winner {
	return DetermineWinner(r.Black, r.White)
}

// Replay applies moves from the opening position, black first.
// A side without a legal placement passes when its opponent has one.
func Replay(moves []board.Position) (Result, error) {
	b := board.New()
	side := core.SideBlack

	for i, m := range moves {
		side = toMove(b, side)
		next, err := b.Apply(m, side)
		if err != nil {
			return Result{}, &Error{Index: i, Move: m, Err: err}
		}
		b = next
		side = side.Opposite()
	}

	score := b.Count()
	return Result{
		Board: b,
		Black: score.Black,
		White: score.White,
		Next:  toMove(b, side),
		End:   b.Outcome(),
	}, nil
}

// Token decodes and replays a share token
func Token(token string) ([]board.Position, Result, error) {
	moves, err := codec.DecodeMoves(token)
	if err != nil {
		return nil, Result{}, err
	}
	res, err := Replay(moves)
	if err != nil {
		return moves, Result{}, err
	}
	return moves, res, nil
}

func toMove(b board.Board, side core.Side) core.Side {
	if !b.HasMoves(side) && b.HasMoves(side.Opposite()) {
		return side.Opposite()
	}
	return side
}

func DetermineWinner(black, white int) core.Winner {
	switch {
	case black > white:
		return core.WinnerBlack
	case white > black:
		return core.WinnerWhite
	default:
		return core.WinnerDraw
	}
}
