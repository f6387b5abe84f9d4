// FILE: internal/core/state.go
package core

type State int

const (
	StateOngoing State = iota
	StatePending       // Engine is calculating a move
	StateBlackWins
	StateWhiteWins
	StateDraw
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateBlackWins:
		return "black_wins"
	case StateWhiteWins:
		return "white_wins"
	case StateDraw:
		return "draw"
	case StateOngoing:
		return "ongoing"
	default:
		return "unknown"
	}
}

// Over reports whether no further moves can be made
func (s State) Over() bool {
	return s == StateBlackWins || s == StateWhiteWins || s == StateDraw
}

// StateFromWinner maps a final winner to the terminal state
func StateFromWinner(w Winner) State {
	switch w {
	case WinnerBlack:
		return StateBlackWins
	case WinnerWhite:
		return StateWhiteWins
	case WinnerDraw:
		return StateDraw
	default:
		return StateOngoing
	}
}
