// FILE: internal/service/service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"reversi/internal/engine"
	"reversi/internal/game"
	"reversi/internal/storage"

	"go.uber.org/zap"
)

const (
	DefaultMaxGames         = 1000
	DefaultMaxComputerGames = 50
	DefaultGameTTL          = 24 * time.Hour
	CleanupJobInterval      = 10 * time.Minute
)

var (
	ErrGameNotFound  = errors.New("game not found")
	ErrGameExists    = errors.New("game already exists")
	ErrResourceLimit = errors.New("game limit reached")
	ErrEnginePending = errors.New("computer move in progress")
	ErrNotHumanTurn  = errors.New("not human player's turn")
)

type Config struct {
	MaxGames          int
	MaxComputerGames  int
	GameTTL           time.Duration // Idle games are evicted by the cleanup job
	EngineLoadTimeout time.Duration
	WaitTimeout       time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxGames <= 0 {
		c.MaxGames = DefaultMaxGames
	}
	if c.MaxComputerGames <= 0 {
		c.MaxComputerGames = DefaultMaxComputerGames
	}
	if c.GameTTL <= 0 {
		c.GameTTL = DefaultGameTTL
	}
	if c.EngineLoadTimeout <= 0 {
		c.EngineLoadTimeout = engine.DefaultLoadTimeout
	}
	return c
}

type entry struct {
	game         *game.Game
	bridge       *engine.Bridge // nil for human-only games
	lastActivity time.Time
}

// Service coordinates game state, engine bridges, and storage
type Service struct {
	cfg           Config
	games         map[string]*entry
	mu            sync.RWMutex
	store         *storage.Store        // nil if persistence disabled
	factory       engine.Factory        // nil disables computer players
	log           *zap.SugaredLogger
	waiter        *WaitRegistry
	computerGames atomic.Int32 // Active games holding an engine bridge
}

// New creates a new service instance with optional storage and engine
func New(cfg Config, store *storage.Store, factory engine.Factory, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	cfg = cfg.withDefaults()
	return &Service{
		cfg:     cfg,
		games:   make(map[string]*entry),
		store:   store,
		factory: factory,
		log:     log,
		waiter:  NewWaitRegistry(cfg.WaitTimeout),
	}
}

// GetStorageHealth returns the storage component status
func (s *Service) GetStorageHealth() string {
	if s.store == nil {
		return "disabled"
	}
	if s.store.IsHealthy() {
		return "ok"
	}
	return "degraded"
}

// GetEngineHealth reports whether computer players are available
func (s *Service) GetEngineHealth() string {
	if s.factory == nil {
		return "disabled"
	}
	return "ok"
}

// RegisterWait registers a long-poll client for a game
func (s *Service) RegisterWait(gameID string, moveCount int, ctx context.Context) <-chan struct{} {
	return s.waiter.RegisterWait(gameID, moveCount, ctx)
}

func (s *Service) CanCreateComputerGame() bool {
	return s.factory != nil && s.computerGames.Load() < int32(s.cfg.MaxComputerGames)
}

func (s *Service) GetComputerGameCount() int32 {
	return s.computerGames.Load()
}

func (s *Service) GameCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}

// Shutdown releases waiters, disposes every engine and closes storage
func (s *Service) Shutdown(timeout time.Duration) error {
	var errs []error

	if err := s.waiter.Shutdown(timeout); err != nil {
		errs = append(errs, fmt.Errorf("wait registry: %w", err))
	}

	s.mu.Lock()
	bridges := make(map[string]*engine.Bridge)
	for id, e := range s.games {
		if b := s.detachLocked(e); b != nil {
			bridges[id] = b
		}
	}
	s.games = make(map[string]*entry)
	s.mu.Unlock()

	for id, b := range bridges {
		if err := b.Dispose(); err != nil {
			errs = append(errs, fmt.Errorf("engine %s: %w", id, err))
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	return errors.Join(errs...)
}

// RunCleanupJob evicts idle games until ctx is cancelled
func (s *Service) RunCleanupJob(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanupExpired(time.Now())
		}
	}
}

func (s *Service) cleanupExpired(now time.Time) int {
	s.mu.Lock()
	var expired []string
	bridges := make(map[string]*engine.Bridge)
	for id, e := range s.games {
		if now.Sub(e.lastActivity) > s.cfg.GameTTL {
			expired = append(expired, id)
			if b := s.detachLocked(e); b != nil {
				bridges[id] = b
			}
			delete(s.games, id)
		}
	}
	s.mu.Unlock()

	for _, id := range expired {
		s.waiter.RemoveGame(id)
	}
	for id, b := range bridges {
		if err := b.Dispose(); err != nil {
			s.log.Warnw("engine dispose failed", "game", id, "error", err)
		}
	}
	if len(expired) > 0 {
		s.log.Infow("evicted idle games", "count", len(expired))
	}
	return len(expired)
}

// detachLocked takes the bridge off an entry. Disposal happens after s.mu is released
// since closing a scorer process can block.
func (s *Service) detachLocked(e *entry) *engine.Bridge {
	b := e.bridge
	if b == nil {
		return nil
	}
	e.bridge = nil
	s.computerGames.Add(-1)
	return b
}
