// FILE: internal/core/player.go
package core

import (
	"github.com/google/uuid"
)

type PlayerType int

const (
	PlayerHuman PlayerType = iota + 1
	PlayerComputer
)

func (p PlayerType) String() string {
	if p == PlayerComputer {
		return "computer"
	}
	return "human"
}

// Player is the complete game entity with all state
type Player struct {
	ID         string     `json:"id"`
	Side       Side       `json:"side"`
	Type       PlayerType `json:"type"`
	SearchTime int        `json:"searchTime,omitempty"` // Engine budget in ms, computer only
}

// PlayerConfig for API requests and configuration
type PlayerConfig struct {
	Type       PlayerType `json:"type" validate:"required,oneof=1 2"`
	SearchTime int        `json:"searchTime,omitempty" validate:"omitempty,min=100,max=10000"` // Processor sets the min value
}

type PlayersResponse struct {
	Black *Player `json:"black"`
	White *Player `json:"white"`
}

// NewPlayer creates a Player from PlayerConfig
func NewPlayer(config PlayerConfig, side Side) *Player {
	player := &Player{
		ID:   uuid.New().String(),
		Side: side,
		Type: config.Type,
	}

	if config.Type == PlayerComputer {
		player.SearchTime = config.SearchTime
	}

	return player
}

func (p *Player) IsComputer() bool {
	return p != nil && p.Type == PlayerComputer
}
