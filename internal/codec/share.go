// FILE: internal/codec/share.go
package codec

import (
	"fmt"

	"reversi/internal/board"
	"reversi/internal/core"
)

// Share identifies a finished game from the point of view of the sharing player
type Share struct {
	Side  core.Side `json:"side"`
	Token string    `json:"token"`
}

// NewShare encodes a history for side
func NewShare(side core.Side, moves []board.Position) (Share, error) {
	token, err := EncodeMoves(moves)
	if err != nil {
		return Share{}, err
	}
	return Share{Side: side, Token: token}, nil
}

// Path returns the permalink suffix "<side>/<token>"
func (s Share) Path() string {
	return s.Side.String() + "/" + s.Token
}

// ParseShare validates both permalink segments and returns the decoded history
func ParseShare(side, token string) (Share, []board.Position, error) {
	sd, ok := core.ParseSide(side)
	if !ok {
		return Share{}, nil, fmt.Errorf("%w: unknown side %q", ErrDecode, side)
	}
	moves, err := DecodeMoves(token)
	if err != nil {
		return Share{}, nil, err
	}
	return Share{Side: sd, Token: token}, moves, nil
}
