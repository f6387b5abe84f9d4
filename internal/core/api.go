// FILE: internal/core/api.go
package core

// Request types

type CreateGameRequest struct {
	Black PlayerConfig `json:"black" validate:"required"`
	White PlayerConfig `json:"white" validate:"required"`
	Token string       `json:"token,omitempty" validate:"omitempty,max=64"` // Start from a shared history
}

type MoveRequest struct {
	Move string `json:"move" validate:"required,min=2,max=4"` // "cccc" asks the engine to move, otherwise "d3"
}

type UndoRequest struct {
	Count int `json:"count" validate:"required,min=1,max=60"`
}

// Response types

type GameResponse struct {
	GameID     string          `json:"gameId"`
	Board      []string        `json:"board"`
	Turn       string          `json:"turn"`  // "b" or "w"
	State      string          `json:"state"` // "ongoing", "black_wins", etc
	Moves      []string        `json:"moves"`
	ValidMoves []string        `json:"validMoves"`
	Score      ScoreResponse   `json:"score"`
	Token      string          `json:"token"`
	EndReason  string          `json:"endReason,omitempty"`
	Players    PlayersResponse `json:"players"`
	LastMove   *MoveInfo       `json:"lastMove,omitempty"`
}

type MoveInfo struct {
	Move        string `json:"move"`
	PlayerColor string `json:"playerColor"` // "b" or "w"
	Source      string `json:"source,omitempty"`
	Value       int    `json:"value,omitempty"`
	Passed      bool   `json:"passed,omitempty"`
}

type ScoreResponse struct {
	Black int `json:"black"`
	White int `json:"white"`
}

type BoardResponse struct {
	Board string   `json:"board"` // ASCII representation
	Rows  []string `json:"rows"`
}

// ShareResponse is the read-only view of a shared game
type ShareResponse struct {
	Valid     bool          `json:"valid"`
	Side      string        `json:"side"`
	Token     string        `json:"token"`
	Path      string        `json:"path,omitempty"`
	Moves     []string      `json:"moves"`
	Notation  string        `json:"notation"`
	Board     []string      `json:"board"`
	Score     ScoreResponse `json:"score"`
	Winner    string        `json:"winner"`
	EndReason string        `json:"endReason,omitempty"`
	Error     string        `json:"error,omitempty"` // Set when the token could not be replayed
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
