// FILE: internal/engine/protocol.go
package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"reversi/internal/board"
	"reversi/internal/core"
)

// Line protocol spoken with the scorer
const (
	cmdReady  = "ready"
	cmdQuery  = "query"
	cmdAnswer = "answer"
	cmdQuit   = "quit"
)

const (
	codeBase  = 100
	slotWidth = 1000
	maxValue  = slotWidth - 1
)

// Query is a read-only snapshot sent to the scorer
type Query struct {
	Generation uint64
	Black      uint64 // bit 63-i set when square i holds a black stone
	White      uint64
	Side       core.Side
	Budget     time.Duration
}

// Answer is the scorer's reply tagged with the generation it answers
type Answer struct {
	Generation uint64
	Code       int
}

// Decoded is a move recovered from an answer code
type Decoded struct {
	Position board.Position `json:"position"`
	Value    int            `json:"value"`
}

func bit(i int) uint64 {
	return 1 << uint(63-i)
}

// EncodeQuery packs the board into one bitboard per side
func EncodeQuery(b board.Board, side core.Side) Query {
	q := Query{Side: side}
	for i := 0; i < board.Squares; i++ {
		cell, _ := b.At(board.PositionFromIndex(i))
		switch cell {
		case board.BlackStone:
			q.Black |= bit(i)
		case board.WhiteStone:
			q.White |= bit(i)
		}
	}
	return q
}

// Board rebuilds the position carried by the query
func (q Query) Board() (board.Board, error) {
	if q.Black&q.White != 0 {
		return board.Board{}, fmt.Errorf("overlapping bitboards %016x %016x", q.Black, q.White)
	}

	var err error
	b := board.New()
	for i := 0; i < board.Squares; i++ {
		cell := board.Empty
		switch {
		case q.Black&bit(i) != 0:
			cell = board.BlackStone
		case q.White&bit(i) != 0:
			cell = board.WhiteStone
		}
		if b, err = b.Set(board.PositionFromIndex(i), cell); err != nil {
			return board.Board{}, err
		}
	}
	return b, nil
}

// Line formats "query <gen> <black-hex> <white-hex> <side> <ms>"
func (q Query) Line() string {
	return fmt.Sprintf("%s %d %016x %016x %s %d", cmdQuery, q.Generation, q.Black, q.White, q.Side, q.Budget.Milliseconds())
}

func ParseQuery(line string) (Query, error) {
	fields := strings.Fields(line)
	if len(fields) != 6 || fields[0] != cmdQuery {
		return Query{}, fmt.Errorf("malformed query: %q", line)
	}

	var q Query
	var err error
	if q.Generation, err = strconv.ParseUint(fields[1], 10, 64); err != nil {
		return Query{}, fmt.Errorf("query generation: %w", err)
	}
	if q.Black, err = strconv.ParseUint(fields[2], 16, 64); err != nil {
		return Query{}, fmt.Errorf("query black bitboard: %w", err)
	}
	if q.White, err = strconv.ParseUint(fields[3], 16, 64); err != nil {
		return Query{}, fmt.Errorf("query white bitboard: %w", err)
	}
	side, ok := core.ParseSide(fields[4])
	if !ok {
		return Query{}, fmt.Errorf("query side: %q", fields[4])
	}
	q.Side = side
	ms, err := strconv.Atoi(fields[5])
	if err != nil || ms < 0 {
		return Query{}, fmt.Errorf("query budget: %q", fields[5])
	}
	q.Budget = time.Duration(ms) * time.Millisecond

	return q, nil
}

// Line formats "answer <gen> <code>"
func (a Answer) Line() string {
	return fmt.Sprintf("%s %d %d", cmdAnswer, a.Generation, a.Code)
}

func ParseAnswer(line string) (Answer, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 || fields[0] != cmdAnswer {
		return Answer{}, fmt.Errorf("malformed answer: %q", line)
	}
	gen, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return Answer{}, fmt.Errorf("answer generation: %w", err)
	}
	code, err := strconv.Atoi(fields[2])
	if err != nil {
		return Answer{}, fmt.Errorf("answer code: %w", err)
	}
	return Answer{Generation: gen, Code: code}, nil
}

// DecodeResponse splits an answer code into a square and a value.
// slot = (code-100)/1000 is the square's bit offset from the high end of the bitboard.
func DecodeResponse(code int) (Decoded, bool) {
	if code < codeBase {
		return Decoded{}, false
	}
	slot := (code - codeBase) / slotWidth
	if slot > board.Squares-1 {
		return Decoded{}, false
	}
	value := (code - codeBase) % slotWidth
	bitPosition := 63 - slot
	index := 63 - bitPosition
	return Decoded{Position: board.PositionFromIndex(index), Value: value}, true
}

// EncodeResponse is the inverse of DecodeResponse, value is clamped to [0,999]
func EncodeResponse(pos board.Position, value int) (int, error) {
	if !pos.InBounds() {
		return 0, fmt.Errorf("%w: %s", board.ErrOutOfBounds, pos)
	}
	if value < 0 {
		value = 0
	} else if value > maxValue {
		value = maxValue
	}
	return codeBase + pos.Index()*slotWidth + value, nil
}
