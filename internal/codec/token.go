// FILE: internal/codec/token.go
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"

	"reversi/internal/board"
)

// MaxMoves is the number of placements that fit on a board with four starting stones
const MaxMoves = board.Squares - 4

const bitsPerMove = 6

var (
	ErrDecode       = errors.New("malformed move token")
	ErrTooManyMoves = errors.New("move history too long")
)

var encoding = base64.RawURLEncoding.Strict()

func packedLen(n int) int {
	return (n*bitsPerMove + 7) / 8
}

// EncodeMoves packs a history into an unpadded Base64URL token.
// Layout: one count byte followed by 6-bit square indices, MSB first, zero padded.
func EncodeMoves(moves []board.Position) (string, error) {
	if len(moves) > MaxMoves {
		return "", fmt.Errorf("%w: %d moves, max %d", ErrTooManyMoves, len(moves), MaxMoves)
	}

	buf := make([]byte, 1+packedLen(len(moves)))
	buf[0] = byte(len(moves))

	var acc uint32
	var bits uint
	out := 1
	for i, m := range moves {
		if !m.InBounds() {
			return "", fmt.Errorf("move %d: %w: %s", i, board.ErrOutOfBounds, m)
		}
		acc = acc<<bitsPerMove | uint32(m.Index())
		bits += bitsPerMove
		for bits >= 8 {
			bits -= 8
			buf[out] = byte(acc >> bits)
			out++
		}
		acc &= 1<<bits - 1
	}
	if bits > 0 {
		buf[out] = byte(acc << (8 - bits))
	}

	return encoding.EncodeToString(buf), nil
}

// DecodeMoves reverses EncodeMoves. Every failure wraps ErrDecode.
func DecodeMoves(token string) ([]board.Position, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrDecode)
	}
	for i := 0; i < len(token); i++ {
		if !isAlphabet(token[i]) {
			return nil, fmt.Errorf("%w: invalid character at offset %d", ErrDecode, i)
		}
	}

	buf, err := encoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: no count byte", ErrDecode)
	}

	n := int(buf[0])
	if n > MaxMoves {
		return nil, fmt.Errorf("%w: count %d exceeds %d", ErrDecode, n, MaxMoves)
	}
	if want := 1 + packedLen(n); len(buf) != want {
		return nil, fmt.Errorf("%w: %d bytes for %d moves, want %d", ErrDecode, len(buf), n, want)
	}

	moves := make([]board.Position, 0, n)
	var acc uint32
	var bits uint
	in := 1
	for len(moves) < n {
		for bits < bitsPerMove {
			acc = acc<<8 | uint32(buf[in])
			in++
			bits += 8
		}
		bits -= bitsPerMove
		idx := int(acc>>bits) & (1<<bitsPerMove - 1)
		acc &= 1<<bits - 1
		moves = append(moves, board.PositionFromIndex(idx))
	}
	if acc != 0 {
		return nil, fmt.Errorf("%w: non-zero padding", ErrDecode)
	}

	return moves, nil
}

func isAlphabet(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	}
	return false
}
