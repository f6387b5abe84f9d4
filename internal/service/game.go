// FILE: internal/service/game.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reversi/internal/board"
	"reversi/internal/core"
	"reversi/internal/engine"
	"reversi/internal/game"
	"reversi/internal/storage"

	"github.com/google/uuid"
)

var ErrEngineUnavailable = errors.New("computer players are not available")

// CreateGame registers a new game, replaying history when starting from a shared position
func (s *Service) CreateGame(id string, blackPlayer, whitePlayer *core.Player, history []board.Position) error {
	g, err := game.FromMoves(blackPlayer, whitePlayer, history)
	if err != nil {
		return err
	}
	initialToken, err := g.Token()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.games[id]; exists {
		return fmt.Errorf("%w: %s", ErrGameExists, id)
	}
	if len(s.games) >= s.cfg.MaxGames {
		return fmt.Errorf("%w: %d games", ErrResourceLimit, s.cfg.MaxGames)
	}

	e := &entry{game: g, lastActivity: time.Now()}
	if blackPlayer.IsComputer() || whitePlayer.IsComputer() {
		if s.factory == nil {
			return ErrEngineUnavailable
		}
		if !s.CanCreateComputerGame() {
			return fmt.Errorf("%w: %d computer games", ErrResourceLimit, s.cfg.MaxComputerGames)
		}

		b := engine.NewBridge(s.factory(), s.log.With("game", id))
		b.SetLoadTimeout(s.cfg.EngineLoadTimeout)
		b.Load(context.Background())
		e.bridge = b
		s.computerGames.Add(1)
	}
	s.games[id] = e

	if s.store != nil {
		s.store.RecordNewGame(storage.GameRecord{
			GameID:          id,
			InitialToken:    initialToken,
			BlackPlayerID:   blackPlayer.ID,
			BlackType:       int(blackPlayer.Type),
			BlackSearchTime: blackPlayer.SearchTime,
			WhitePlayerID:   whitePlayer.ID,
			WhiteType:       int(whitePlayer.Type),
			WhiteSearchTime: whitePlayer.SearchTime,
			StartTimeUTC:    time.Now().UTC(),
		})
		if g.State().Over() {
			s.recordFinishLocked(id, g)
		}
	}

	return nil
}

// GetGame retrieves a game by ID. Concurrent readers should prefer View.
func (s *Service) GetGame(gameID string) (*game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return e.game, nil
}

// View runs fn with the game under the read lock
func (s *Service) View(gameID string, fn func(g *game.Game) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.games[gameID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return fn(e.game)
}

// Bridge returns the engine bridge of a game, nil for human-only games
func (s *Service) Bridge(gameID string) (*engine.Bridge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return e.bridge, nil
}

// GenerateGameID creates a new unique game ID
func (s *Service) GenerateGameID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for {
		id := uuid.New().String()
		if _, exists := s.games[id]; !exists {
			return id
		}
	}
}

// ApplyMove plays a move for the side to move. Source is "human", "engine" or "fallback".
// Human moves are refused while pending or when a computer owns the turn.
// An engine move made while pending resolves the pending state unless a computer moves next.
func (s *Service) ApplyMove(gameID string, pos board.Position, source string) (*game.MoveResult, error) {
	s.mu.Lock()

	e, ok := s.games[gameID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	g := e.game

	human := source == "" || source == "human"
	prev := g.State()
	switch {
	case human && prev == core.StatePending:
		s.mu.Unlock()
		return nil, ErrEnginePending
	case human && !prev.Over() && g.NextPlayer().IsComputer():
		s.mu.Unlock()
		return nil, ErrNotHumanTurn
	}

	// An engine move resolves the pending state
	if prev == core.StatePending {
		g.SetState(core.StateOngoing)
	}

	result, err := g.Play(pos)
	if err != nil {
		g.SetState(prev)
		s.mu.Unlock()
		return nil, err
	}
	if source != "" && source != "human" {
		result.Source = source
	}
	// Consecutive computer turns stay pending
	if prev == core.StatePending && g.State() == core.StateOngoing && g.NextPlayer().IsComputer() {
		g.SetState(core.StatePending)
	}
	e.lastActivity = time.Now()
	moveCount := len(g.Moves())

	if s.store != nil {
		if source == "" {
			source = "human"
		}
		s.store.RecordMove(storage.MoveRecord{
			GameID:      gameID,
			MoveNumber:  moveCount,
			Move:        result.Move,
			BoardAfter:  strings.Join(g.Board().Rows(), "/"),
			PlayerColor: result.Side.String(),
			Source:      source,
			MoveTimeUTC: time.Now().UTC(),
		})
		if g.State().Over() {
			s.recordFinishLocked(gameID, g)
		}
	}
	s.mu.Unlock()

	s.waiter.NotifyGame(gameID, moveCount)
	return result, nil
}

func (s *Service) recordFinishLocked(gameID string, g *game.Game) {
	token, err := g.Token()
	if err != nil {
		s.log.Warnw("cannot encode finished game", "game", gameID, "error", err)
		return
	}
	score := g.Score()
	s.store.RecordFinish(storage.FinishRecord{
		GameID:     gameID,
		EndState:   g.State().String(),
		FinalToken: token,
		BlackScore: score.Black,
		WhiteScore: score.White,
		EndTimeUTC: time.Now().UTC(),
	})
}

// UpdateGameState sets the game state and wakes long-poll clients
func (s *Service) UpdateGameState(gameID string, state core.State) error {
	s.mu.Lock()
	e, ok := s.games[gameID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	changed := e.game.State() != state
	e.game.SetState(state)
	s.mu.Unlock()

	if changed {
		s.waiter.NotifyState(gameID)
	}
	return nil
}

// ResolvePending returns a pending game to ongoing, leaving any other state alone
func (s *Service) ResolvePending(gameID string) {
	s.mu.Lock()
	e, ok := s.games[gameID]
	if !ok || e.game.State() != core.StatePending {
		s.mu.Unlock()
		return
	}
	e.game.SetState(core.StateOngoing)
	s.mu.Unlock()

	s.waiter.NotifyState(gameID)
}

// SetLastMoveResult stores metadata about the last move
func (s *Service) SetLastMoveResult(gameID string, result *game.MoveResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.games[gameID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}

	e.game.SetLastResult(result)
	return nil
}

// UndoMoves removes the specified number of moves from game history
func (s *Service) UndoMoves(gameID string, count int) error {
	s.mu.Lock()

	e, ok := s.games[gameID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}

	if err := e.game.UndoMoves(count); err != nil {
		s.mu.Unlock()
		return err
	}
	e.lastActivity = time.Now()
	remaining := len(e.game.Moves())

	if s.store != nil {
		s.store.DeleteUndoneMoves(gameID, remaining)
	}
	s.mu.Unlock()

	s.waiter.NotifyGame(gameID, remaining)
	return nil
}

// DeleteGame removes a game from memory and disposes its engine
func (s *Service) DeleteGame(gameID string) error {
	s.mu.Lock()
	e, ok := s.games[gameID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	delete(s.games, gameID)
	b := s.detachLocked(e)
	s.mu.Unlock()

	s.waiter.RemoveGame(gameID)
	if b != nil {
		if err := b.Dispose(); err != nil {
			s.log.Warnw("engine dispose failed", "game", gameID, "error", err)
		}
	}
	return nil
}
