// FILE: internal/storage/schema.go
package storage

import "time"

// GameRecord represents a row in the games table
type GameRecord struct {
	GameID          string     `db:"game_id"`
	InitialToken    string     `db:"initial_token"`
	BlackPlayerID   string     `db:"black_player_id"`
	BlackType       int        `db:"black_type"`
	BlackSearchTime int        `db:"black_search_time"`
	WhitePlayerID   string     `db:"white_player_id"`
	WhiteType       int        `db:"white_type"`
	WhiteSearchTime int        `db:"white_search_time"`
	StartTimeUTC    time.Time  `db:"start_time_utc"`
	EndState        string     `db:"end_state"` // Empty while the game is running
	FinalToken      string     `db:"final_token"`
	BlackScore      int        `db:"black_score"`
	WhiteScore      int        `db:"white_score"`
	EndTimeUTC      *time.Time `db:"end_time_utc"`
}

// MoveRecord represents a row in the moves table
type MoveRecord struct {
	MoveID      int64     `db:"move_id"`
	GameID      string    `db:"game_id"`
	MoveNumber  int       `db:"move_number"`
	Move        string    `db:"move"` // Algebraic, "d3"
	BoardAfter  string    `db:"board_after"`
	PlayerColor string    `db:"player_color"` // "b" or "w"
	Source      string    `db:"source"`       // "human", "engine" or "fallback"
	MoveTimeUTC time.Time `db:"move_time_utc"`
}

// FinishRecord closes a game row once the game is over
type FinishRecord struct {
	GameID     string
	EndState   string
	FinalToken string
	BlackScore int
	WhiteScore int
	EndTimeUTC time.Time
}

// Schema defines the SQLite database structure
const Schema = `
CREATE TABLE IF NOT EXISTS games (
	game_id TEXT PRIMARY KEY,
	initial_token TEXT NOT NULL DEFAULT 'AA',
	black_player_id TEXT NOT NULL,
	black_type INTEGER NOT NULL,
	black_search_time INTEGER NOT NULL DEFAULT 0,
	white_player_id TEXT NOT NULL,
	white_type INTEGER NOT NULL,
	white_search_time INTEGER NOT NULL DEFAULT 0,
	start_time_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	end_state TEXT,
	final_token TEXT,
	black_score INTEGER,
	white_score INTEGER,
	end_time_utc DATETIME
);

CREATE TABLE IF NOT EXISTS moves (
	move_id INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id TEXT NOT NULL,
	move_number INTEGER NOT NULL,
	move TEXT NOT NULL,
	board_after TEXT NOT NULL,
	player_color TEXT NOT NULL CHECK(player_color IN ('b', 'w')),
	source TEXT NOT NULL DEFAULT 'human',
	move_time_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (game_id) REFERENCES games(game_id) ON DELETE CASCADE,
	UNIQUE(game_id, move_number)
);

CREATE INDEX IF NOT EXISTS idx_moves_game_id ON moves(game_id);
CREATE INDEX IF NOT EXISTS idx_games_black_player ON games(black_player_id);
CREATE INDEX IF NOT EXISTS idx_games_white_player ON games(white_player_id);
CREATE INDEX IF NOT EXISTS idx_games_final_token ON games(final_token);
`
