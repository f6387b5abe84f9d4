// FILE: internal/game/game.go
package game

import (
	"errors"
	"fmt"

	"reversi/internal/board"
	"reversi/internal/codec"
	"reversi/internal/core"
	"reversi/internal/replay"
)

var ErrGameOver = errors.New("game is over")

type Snapshot struct {
	Board        board.Board     `json:"-"`
	PreviousMove *board.Position `json:"previousMove,omitempty"`
	MovedSide    core.Side       `json:"movedSide,omitempty"`
	NextSide     core.Side       `json:"nextSide"`
	Passes       int             `json:"passes"` // Forced passes following the move
}

// MoveResult tracks the outcome of a move
type MoveResult struct {
	Move      string     `json:"move"`
	Side      core.Side  `json:"side"`
	GameState core.State `json:"gameState"`
	Source    string     `json:"source,omitempty"` // "engine" or "fallback" for computer moves
	Value     int        `json:"value,omitempty"`
	Passed    bool       `json:"passed,omitempty"` // Opponent had no move and passed
}

type Game struct {
	snapshots  []Snapshot
	players    map[core.Side]*core.Player
	state      core.State
	end        board.End
	lastResult *MoveResult
}

func New(blackPlayer, whitePlayer *core.Player) *Game {
	return &Game{
		snapshots: []Snapshot{
			{
				Board:    board.New(),
				NextSide: core.SideBlack,
			},
		},
		players: map[core.Side]*core.Player{
			core.SideBlack: blackPlayer,
			core.SideWhite: whitePlayer,
		},
		state: core.StateOngoing,
	}
}

// FromMoves rebuilds a game by playing a recorded history
func FromMoves(blackPlayer, whitePlayer *core.Player, moves []board.Position) (*Game, error) {
	g := New(blackPlayer, whitePlayer)
	for i, m := range moves {
		if _, err := g.Play(m); err != nil {
			return nil, &replay.Error{Index: i, Move: m, Err: err}
		}
	}
	return g, nil
}

// UpdatePlayers replaces both players, history is kept
func (g *Game) UpdatePlayers(blackPlayer, whitePlayer *core.Player) {
	g.players[core.SideBlack] = blackPlayer
	g.players[core.SideWhite] = whitePlayer
}

func (g *Game) SetLastResult(result *MoveResult) {
	g.lastResult = result
}

func (g *Game) LastResult() *MoveResult {
	return g.lastResult
}

// CurrentSnapshot returns the latest game snapshot
func (g *Game) CurrentSnapshot() Snapshot {
	return g.snapshots[len(g.snapshots)-1]
}

func (g *Game) Board() board.Board {
	return g.CurrentSnapshot().Board
}

func (g *Game) NextSide() core.Side {
	return g.CurrentSnapshot().NextSide
}

func (g *Game) NextPlayer() *core.Player {
	return g.players[g.NextSide()]
}

func (g *Game) GetPlayer(side core.Side) *core.Player {
	return g.players[side]
}

// Play places a stone for the side to move, then resolves forced passes and game end
func (g *Game) Play(pos board.Position) (*MoveResult, error) {
	if g.state.Over() {
		return nil, fmt.Errorf("%w: %s", ErrGameOver, g.state)
	}

	cur := g.CurrentSnapshot()
	side := cur.NextSide
	next, err := cur.Board.Apply(pos, side)
	if err != nil {
		return nil, err
	}

	snap := Snapshot{
		Board:        next,
		PreviousMove: &pos,
		MovedSide:    side,
		NextSide:     side.Opposite(),
	}
	if !next.HasMoves(snap.NextSide) {
		snap.Passes++
		snap.NextSide = side
		if !next.HasMoves(side) {
			snap.Passes++
		}
	}
	g.snapshots = append(g.snapshots, snap)

	g.end = board.End{}
	if next.Empties() == 0 {
		g.end = board.End{Ended: true, Reason: board.ReasonBoardFull}
	} else if snap.Passes >= 2 {
		g.end = board.End{Ended: true, Reason: board.ReasonNoMoves}
	}
	if g.end.Ended {
		score := next.Count()
		g.state = core.StateFromWinner(replay.DetermineWinner(score.Black, score.White))
	}

	result := &MoveResult{
		Move:      codec.Notation(pos),
		Side:      side,
		GameState: g.state,
		Passed:    snap.Passes == 1,
	}
	g.lastResult = result
	return result, nil
}

func (g *Game) UndoMoves(count int) error {
	if count < 1 {
		return fmt.Errorf("invalid undo count: %d", count)
	}

	availableMoves := len(g.snapshots) - 1
	if availableMoves < count {
		return fmt.Errorf("cannot undo %d moves: only %d moves available", count, availableMoves)
	}

	g.snapshots = g.snapshots[:len(g.snapshots)-count]
	g.state = core.StateOngoing // Reset game state when undoing
	g.end = board.End{}
	g.lastResult = nil
	return nil
}

// UndoToHuman rewinds until a human is to move, at least one move
func (g *Game) UndoToHuman() (int, error) {
	if len(g.snapshots) < 2 {
		return 0, fmt.Errorf("no moves to undo")
	}
	count := 1
	for count < len(g.snapshots)-1 && g.players[g.snapshots[len(g.snapshots)-1-count].NextSide].IsComputer() {
		count++
	}
	return count, g.UndoMoves(count)
}

func (g *Game) Moves() []board.Position {
	moves := []board.Position{}
	for i := 1; i < len(g.snapshots); i++ {
		if m := g.snapshots[i].PreviousMove; m != nil {
			moves = append(moves, *m)
		}
	}
	return moves
}

// Notations returns the history in algebraic form
func (g *Game) Notations() []string {
	return codec.Notations(g.Moves())
}

// Token encodes the move history for sharing
func (g *Game) Token() (string, error) {
	return codec.EncodeMoves(g.Moves())
}

func (g *Game) Score() board.Score {
	return g.Board().Count()
}

// End reports the end condition reached by the last move
func (g *Game) End() board.End {
	return g.end
}

// Winner is WinnerNone until the game ends
func (g *Game) Winner() core.Winner {
	if !g.end.Ended {
		return core.WinnerNone
	}
	score := g.Score()
	return replay.DetermineWinner(score.Black, score.White)
}

func (g *Game) ValidMoves() []board.Position {
	if g.state.Over() {
		return []board.Position{}
	}
	return g.Board().ValidMoves(g.NextSide())
}

func (g *Game) State() core.State {
	return g.state
}

func (g *Game) SetState(s core.State) {
	g.state = s
}
