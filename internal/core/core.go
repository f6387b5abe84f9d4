// FILE: internal/core/core.go
package core

import "fmt"

// Side is one of the two players. Black always moves first.
type Side byte

const (
	SideBlack Side = 'b'
	SideWhite Side = 'w'
)

func (s Side) String() string {
	switch s {
	case SideBlack:
		return "b"
	case SideWhite:
		return "w"
	default:
		return "-"
	}
}

// Name returns the human readable side name
func (s Side) Name() string {
	switch s {
	case SideBlack:
		return "Black"
	case SideWhite:
		return "White"
	default:
		return "Unknown"
	}
}

func (s Side) Valid() bool {
	return s == SideBlack || s == SideWhite
}

func (s Side) Opposite() Side {
	if s == SideBlack {
		return SideWhite
	}
	return SideBlack
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	parsed, ok := ParseSide(string(text))
	if !ok {
		return fmt.Errorf("invalid side: %q", text)
	}
	*s = parsed
	return nil
}

// ParseSide accepts "b"/"w" and the long forms
func ParseSide(s string) (Side, bool) {
	switch s {
	case "b", "black", "B":
		return SideBlack, true
	case "w", "white", "W":
		return SideWhite, true
	default:
		return 0, false
	}
}

// Winner is the derived result of a finished or replayed game
type Winner int

const (
	WinnerNone Winner = iota
	WinnerBlack
	WinnerWhite
	WinnerDraw
)

func (w Winner) String() string {
	switch w {
	case WinnerBlack:
		return "black"
	case WinnerWhite:
		return "white"
	case WinnerDraw:
		return "draw"
	default:
		return "none"
	}
}
