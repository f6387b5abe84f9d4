// FILE: internal/engine/fallback.go
package engine

import (
	"math/rand"

	"reversi/internal/board"
)

// SelectRandomValidMove picks uniformly from moves. A nil rng uses the global source.
func SelectRandomValidMove(rng *rand.Rand, moves []board.Position) (board.Position, error) {
	if len(moves) == 0 {
		return board.Position{}, ErrNoValidMoves
	}
	if len(moves) == 1 {
		return moves[0], nil
	}

	var i int
	if rng == nil {
		i = rand.Intn(len(moves))
	} else {
		i = rng.Intn(len(moves))
	}
	return moves[i], nil
}

func contains(moves []board.Position, pos board.Position) bool {
	for _, m := range moves {
		if m == pos {
			return true
		}
	}
	return false
}
