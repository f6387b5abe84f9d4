// FILE: internal/codec/notation.go
package codec

import (
	"fmt"
	"strings"
	"sync"

	"reversi/internal/board"

	"go.uber.org/zap"
)

// InvalidNotation is returned for coordinates outside the board
const InvalidNotation = "??"

var (
	logMu  sync.RWMutex
	logger = zap.NewNop().Sugar()
)

// SetLogger replaces the package diagnostic logger, nil restores the no-op logger
func SetLogger(l *zap.SugaredLogger) {
	logMu.Lock()
	defer logMu.Unlock()
	if l == nil {
		l = zap.NewNop().Sugar()
	}
	logger = l
}

func diag() *zap.SugaredLogger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

// Notation renders a position as column letter plus row digit, e.g. {2,6} is "g3"
func Notation(pos board.Position) string {
	if !pos.InBounds() {
		diag().Warnw("notation requested for out of range position", "row", pos.Row, "col", pos.Col)
		return InvalidNotation
	}
	return string([]byte{byte('a' + pos.Col), byte('1' + pos.Row)})
}

// Notations maps a move history to notation form
func Notations(moves []board.Position) []string {
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = Notation(m)
	}
	return out
}

// NotationString concatenates notations without separators
func NotationString(history []string) string {
	return strings.Join(history, "")
}

// ParsePosition reads a notation such as "d3". Upper case letters are accepted.
func ParsePosition(s string) (board.Position, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 {
		return board.Position{}, fmt.Errorf("invalid notation %q: expected 2 characters", s)
	}
	if s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return board.Position{}, fmt.Errorf("invalid notation %q", s)
	}
	return board.Position{Row: int(s[1] - '1'), Col: int(s[0] - 'a')}, nil
}
