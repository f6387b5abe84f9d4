// FILE: internal/board/end.go
package board

import "reversi/internal/core"

type EndReason string

const (
	ReasonNone      EndReason = ""
	ReasonBoardFull EndReason = "board-full"
	ReasonNoMoves   EndReason = "no-moves-either-side"
)

type End struct {
	Ended  bool      `json:"ended"`
	Reason EndReason `json:"reason,omitempty"`
}

// CheckGameEnd reports whether play is over. A full board takes precedence.
func CheckGameEnd(b Board, blackMoves, whiteMoves []Position) End {
	if b.Empties() == 0 {
		return End{Ended: true, Reason: ReasonBoardFull}
	}
	if len(blackMoves) == 0 && len(whiteMoves) == 0 {
		return End{Ended: true, Reason: ReasonNoMoves}
	}
	return End{}
}

// Outcome evaluates the end condition for the current position
func (b Board) Outcome() End {
	return CheckGameEnd(b, b.ValidMoves(core.SideBlack), b.ValidMoves(core.SideWhite))
}
