// FILE: internal/processor/processor.go
package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"reversi/internal/board"
	"reversi/internal/cache"
	"reversi/internal/codec"
	"reversi/internal/core"
	"reversi/internal/engine"
	"reversi/internal/game"
	"reversi/internal/replay"
	"reversi/internal/service"

	"go.uber.org/zap"
)

const (
	minSearchTime = 100

	// computerMoveRequest asks the engine to play the current turn
	computerMoveRequest = "cccc"
)

// Processor handles command execution and coordinates between service and engine layers
type Processor struct {
	svc           *service.Service
	cache         cache.ReplayCache // nil disables replay caching
	log           *zap.SugaredLogger
	defaultBudget time.Duration
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// New creates a processor. Computer players without a search time use defaultBudget.
func New(svc *service.Service, replayCache cache.ReplayCache, defaultBudget time.Duration, log *zap.SugaredLogger) *Processor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if defaultBudget < minSearchTime*time.Millisecond {
		defaultBudget = minSearchTime * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Processor{
		svc:           svc,
		cache:         replayCache,
		log:           log,
		defaultBudget: defaultBudget,
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (p *Processor) Execute(cmd Command) ProcessorResponse {
	switch cmd.Type {
	case CmdCreateGame:
		return p.handleCreateGame(cmd)
	case CmdGetGame:
		return p.handleGetGame(cmd)
	case CmdMakeMove:
		return p.handleMakeMove(cmd)
	case CmdUndoMove:
		return p.handleUndoMove(cmd)
	case CmdDeleteGame:
		return p.handleDeleteGame(cmd)
	case CmdGetBoard:
		return p.handleGetBoard(cmd)
	case CmdGetShare:
		return p.handleGetShare(cmd)
	case CmdReplay:
		return p.handleReplay(cmd)
	default:
		return p.errorResponse("unknown command", core.ErrInvalidRequest)
	}
}

// handleCreateGame creates a new game and triggers computer move if needed
func (p *Processor) handleCreateGame(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.CreateGameRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	var history []board.Position
	if args.Token != "" {
		moves, err := codec.DecodeMoves(strings.TrimSpace(args.Token))
		if err != nil {
			return p.errorResponseDetails("invalid token", core.ErrInvalidToken, err.Error())
		}
		history = moves
	}

	blackPlayer := core.NewPlayer(p.withBudget(args.Black), core.SideBlack)
	whitePlayer := core.NewPlayer(p.withBudget(args.White), core.SideWhite)

	gameID := p.svc.GenerateGameID()
	if err := p.svc.CreateGame(gameID, blackPlayer, whitePlayer, history); err != nil {
		switch {
		case errors.Is(err, service.ErrResourceLimit):
			return p.errorResponseDetails("cannot create game", core.ErrResourceLimit, err.Error())
		case errors.Is(err, service.ErrEngineUnavailable):
			return p.errorResponseDetails("cannot create game", core.ErrInvalidRequest, err.Error())
		case errors.Is(err, replay.ErrReplay):
			return p.errorResponseDetails("token does not replay", core.ErrInvalidToken, err.Error())
		default:
			return p.errorResponse(fmt.Sprintf("failed to create game: %v", err), core.ErrInternalError)
		}
	}

	p.log.Infow("game created", "game", gameID, "black", blackPlayer.Type, "white", whitePlayer.Type, "moves", len(history))

	pending := p.maybeTriggerComputer(gameID)
	return p.gameResponse(gameID, pending)
}

// handleGetGame retrieves game state
func (p *Processor) handleGetGame(cmd Command) ProcessorResponse {
	resp, err := p.buildGameResponse(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	return ProcessorResponse{
		Success: true,
		Pending: resp.State == core.StatePending.String(),
		Data:    resp,
	}
}

// handleMakeMove processes human moves and explicit engine move requests
func (p *Processor) handleMakeMove(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.MoveRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	var (
		state      core.State
		nextPlayer *core.Player
	)
	err := p.svc.View(cmd.GameID, func(g *game.Game) error {
		state = g.State()
		nextPlayer = g.NextPlayer()
		return nil
	})
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	switch {
	case state == core.StatePending:
		return p.errorResponse("computer move in progress", core.ErrEnginePending)
	case state.Over():
		return p.errorResponse(fmt.Sprintf("game is over: %s", state), core.ErrGameOver)
	}

	move := strings.ToLower(strings.TrimSpace(args.Move))

	if move == computerMoveRequest {
		if !nextPlayer.IsComputer() {
			return p.errorResponse("not computer player's turn", core.ErrNotHumanTurn)
		}
		pending := p.maybeTriggerComputer(cmd.GameID)
		return p.gameResponse(cmd.GameID, pending)
	}

	if nextPlayer.IsComputer() {
		return p.errorResponse("not human player's turn", core.ErrNotHumanTurn)
	}

	pos, err := codec.ParsePosition(move)
	if err != nil {
		return p.errorResponseDetails("invalid move format", core.ErrInvalidMove, err.Error())
	}

	if _, err := p.svc.ApplyMove(cmd.GameID, pos, "human"); err != nil {
		switch {
		case errors.Is(err, service.ErrGameNotFound):
			return p.errorResponse("game not found", core.ErrGameNotFound)
		case errors.Is(err, service.ErrEnginePending):
			return p.errorResponse("computer move in progress", core.ErrEnginePending)
		case errors.Is(err, service.ErrNotHumanTurn):
			return p.errorResponse("not human player's turn", core.ErrNotHumanTurn)
		case errors.Is(err, game.ErrGameOver):
			return p.errorResponse(err.Error(), core.ErrGameOver)
		default:
			return p.errorResponseDetails("illegal move", core.ErrInvalidMove, err.Error())
		}
	}

	pending := p.maybeTriggerComputer(cmd.GameID)
	return p.gameResponse(cmd.GameID, pending)
}

// handleUndoMove reverts game state
func (p *Processor) handleUndoMove(cmd Command) ProcessorResponse {
	var state core.State
	err := p.svc.View(cmd.GameID, func(g *game.Game) error {
		state = g.State()
		return nil
	})
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	if state == core.StatePending {
		return p.errorResponse("cannot undo while computer move is in progress", core.ErrEnginePending)
	}

	args := core.UndoRequest{Count: 1}
	if req, ok := cmd.Args.(core.UndoRequest); ok && req.Count > 0 {
		args = req
	}

	if err = p.svc.UndoMoves(cmd.GameID, args.Count); err != nil {
		if errors.Is(err, service.ErrGameNotFound) {
			return p.errorResponse("game not found", core.ErrGameNotFound)
		}
		return p.errorResponse(err.Error(), core.ErrInvalidRequest)
	}

	return p.gameResponse(cmd.GameID, false)
}

// handleDeleteGame removes a game
func (p *Processor) handleDeleteGame(cmd Command) ProcessorResponse {
	if err := p.svc.DeleteGame(cmd.GameID); err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	return ProcessorResponse{
		Success: true,
	}
}

// handleGetBoard returns board visualization
func (p *Processor) handleGetBoard(cmd Command) ProcessorResponse {
	var resp core.BoardResponse
	err := p.svc.View(cmd.GameID, func(g *game.Game) error {
		b := g.Board()
		resp = core.BoardResponse{
			Board: b.String(),
			Rows:  b.Rows(),
		}
		return nil
	})
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	return ProcessorResponse{
		Success: true,
		Data:    resp,
	}
}

// handleGetShare builds the permalink of a game's current history
func (p *Processor) handleGetShare(cmd Command) ProcessorResponse {
	args, _ := cmd.Args.(ShareArgs)
	side := core.SideBlack
	if args.Side != "" {
		s, ok := core.ParseSide(args.Side)
		if !ok {
			return p.errorResponse(fmt.Sprintf("invalid side %q", args.Side), core.ErrInvalidRequest)
		}
		side = s
	}

	var resp core.ShareResponse
	err := p.svc.View(cmd.GameID, func(g *game.Game) error {
		share, err := codec.NewShare(side, g.Moves())
		if err != nil {
			return err
		}
		score := g.Score()
		resp = core.ShareResponse{
			Valid:     true,
			Side:      share.Side.String(),
			Token:     share.Token,
			Path:      share.Path(),
			Moves:     g.Notations(),
			Notation:  codec.NotationString(g.Notations()),
			Board:     g.Board().Rows(),
			Score:     core.ScoreResponse{Black: score.Black, White: score.White},
			Winner:    g.Winner().String(),
			EndReason: string(g.End().Reason),
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, service.ErrGameNotFound) {
			return p.errorResponse("game not found", core.ErrGameNotFound)
		}
		return p.errorResponse(err.Error(), core.ErrInternalError)
	}

	return ProcessorResponse{
		Success: true,
		Data:    resp,
	}
}

// handleReplay decodes a shared token. A token that does not decode or replay
// still succeeds with Valid false and the opening position.
func (p *Processor) handleReplay(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(ShareArgs)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}
	side, ok := core.ParseSide(args.Side)
	if !ok {
		return p.errorResponse(fmt.Sprintf("invalid side %q", args.Side), core.ErrInvalidRequest)
	}

	resp := core.ShareResponse{
		Side:  side.String(),
		Token: args.Token,
	}

	entry, err := p.replayEntry(args.Token)
	if err != nil {
		p.log.Debugw("share token rejected", "token", args.Token, "error", err)
		initial := board.New()
		score := initial.Count()
		resp.Moves = []string{}
		resp.Board = initial.Rows()
		resp.Score = core.ScoreResponse{Black: score.Black, White: score.White}
		resp.Winner = core.WinnerNone.String()
		resp.Error = err.Error()
		return ProcessorResponse{Success: true, Data: resp}
	}

	resp.Valid = true
	resp.Path = codec.Share{Side: side, Token: args.Token}.Path()
	resp.Moves = entry.Moves
	resp.Notation = codec.NotationString(entry.Moves)
	resp.Board = entry.Board
	resp.Score = core.ScoreResponse{Black: entry.Black, White: entry.White}
	resp.Winner = entry.Winner
	resp.EndReason = entry.EndReason

	return ProcessorResponse{Success: true, Data: resp}
}

func (p *Processor) replayEntry(token string) (cache.Entry, error) {
	if p.cache != nil {
		entry, ok, err := p.cache.Get(p.ctx, token)
		if err != nil {
			p.log.Warnw("replay cache read failed", "error", err)
		} else if ok {
			return entry, nil
		}
	}

	moves, res, err := replay.Token(token)
	if err != nil {
		return cache.Entry{}, err
	}

	winner := core.WinnerNone
	if res.End.Ended {
		winner = res.Winner()
	}
	entry := cache.Entry{
		Moves:     codec.Notations(moves),
		Board:     res.Board.Rows(),
		Black:     res.Black,
		White:     res.White,
		Winner:    winner.String(),
		EndReason: string(res.End.Reason),
	}

	if p.cache != nil {
		if err := p.cache.Set(p.ctx, token, entry); err != nil {
			p.log.Warnw("replay cache write failed", "error", err)
		}
	}
	return entry, nil
}

// maybeTriggerComputer starts an engine turn when a computer is to move.
// It reports whether the game is now pending.
func (p *Processor) maybeTriggerComputer(gameID string) bool {
	var trigger bool
	err := p.svc.View(gameID, func(g *game.Game) error {
		trigger = g.State() == core.StateOngoing && g.NextPlayer().IsComputer()
		return nil
	})
	if err != nil || !trigger {
		return false
	}

	if err := p.svc.UpdateGameState(gameID, core.StatePending); err != nil {
		return false
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runComputerTurns(gameID)
	}()
	return true
}

// runComputerTurns plays engine moves until a human is to move or the game ends
func (p *Processor) runComputerTurns(gameID string) {
	for {
		var (
			bd     board.Board
			side   core.Side
			budget time.Duration
			state  core.State
		)
		err := p.svc.View(gameID, func(g *game.Game) error {
			bd = g.Board()
			side = g.NextSide()
			state = g.State()
			budget = time.Duration(g.NextPlayer().SearchTime) * time.Millisecond
			return nil
		})
		if err != nil {
			return // Game was deleted
		}
		if state != core.StatePending {
			return
		}
		if budget < minSearchTime*time.Millisecond {
			budget = p.defaultBudget
		}

		choice, err := p.chooseMove(gameID, bd, side, budget)
		if err != nil {
			p.log.Errorw("computer move failed", "game", gameID, "error", err)
			p.svc.ResolvePending(gameID)
			return
		}

		result, err := p.svc.ApplyMove(gameID, choice.Position, string(choice.Source))
		if err != nil {
			if !errors.Is(err, service.ErrGameNotFound) {
				p.log.Errorw("engine move rejected", "game", gameID, "move", codec.Notation(choice.Position), "error", err)
				p.svc.ResolvePending(gameID)
			}
			return
		}
		withValue := *result
		withValue.Value = choice.Value
		p.svc.SetLastMoveResult(gameID, &withValue)

		p.log.Debugw("computer moved", "game", gameID, "move", result.Move, "source", choice.Source, "value", choice.Value)

		if p.ctx.Err() != nil {
			p.svc.ResolvePending(gameID)
			return
		}
	}
}

// chooseMove asks the game's engine, waiting for it to finish loading first
func (p *Processor) chooseMove(gameID string, bd board.Board, side core.Side, budget time.Duration) (engine.Choice, error) {
	bridge, err := p.svc.Bridge(gameID)
	if err != nil {
		return engine.Choice{}, err
	}
	if bridge == nil {
		pos, err := engine.SelectRandomValidMove(nil, bd.ValidMoves(side))
		if err != nil {
			return engine.Choice{}, err
		}
		return engine.Choice{Position: pos, Source: engine.SourceFallback, Reason: "no engine"}, nil
	}

	if !bridge.IsReady() {
		ctx, cancel := context.WithTimeout(p.ctx, engine.DefaultLoadTimeout)
		if err := bridge.WaitLoaded(ctx); err != nil {
			p.log.Warnw("engine not loaded, falling back", "game", gameID, "error", err)
		}
		cancel()
	}

	return bridge.ChooseMove(p.ctx, bd, side, budget)
}

func (p *Processor) withBudget(cfg core.PlayerConfig) core.PlayerConfig {
	if cfg.Type == core.PlayerComputer && cfg.SearchTime < minSearchTime {
		cfg.SearchTime = int(p.defaultBudget / time.Millisecond)
	}
	return cfg
}

func (p *Processor) gameResponse(gameID string, pending bool) ProcessorResponse {
	resp, err := p.buildGameResponse(gameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}
	return ProcessorResponse{
		Success: true,
		Pending: pending,
		Data:    resp,
	}
}

// buildGameResponse constructs standard game response
func (p *Processor) buildGameResponse(gameID string) (core.GameResponse, error) {
	var resp core.GameResponse
	err := p.svc.View(gameID, func(g *game.Game) error {
		resp = BuildGameResponse(gameID, g)
		return nil
	})
	return resp, err
}

// BuildGameResponse renders a game for API clients
func BuildGameResponse(gameID string, g *game.Game) core.GameResponse {
	score := g.Score()
	token, _ := g.Token()

	resp := core.GameResponse{
		GameID:     gameID,
		Board:      g.Board().Rows(),
		Turn:       g.NextSide().String(),
		State:      g.State().String(),
		Moves:      g.Notations(),
		ValidMoves: codec.Notations(g.ValidMoves()),
		Score:      core.ScoreResponse{Black: score.Black, White: score.White},
		Token:      token,
		EndReason:  string(g.End().Reason),
		Players: core.PlayersResponse{
			Black: g.GetPlayer(core.SideBlack),
			White: g.GetPlayer(core.SideWhite),
		},
	}

	if result := g.LastResult(); result != nil {
		resp.LastMove = &core.MoveInfo{
			Move:        result.Move,
			PlayerColor: result.Side.String(),
			Source:      result.Source,
			Value:       result.Value,
			Passed:      result.Passed,
		}
	}

	return resp
}

// errorResponse creates error response
func (p *Processor) errorResponse(message, code string) ProcessorResponse {
	return ProcessorResponse{
		Success: false,
		Error: &core.ErrorResponse{
			Error: message,
			Code:  code,
		},
	}
}

func (p *Processor) errorResponseDetails(message, code, details string) ProcessorResponse {
	resp := p.errorResponse(message, code)
	resp.Error.Details = details
	return resp
}

// Close stops pending engine turns
func (p *Processor) Close(timeout time.Duration) error {
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("processor shutdown timed out after %s", timeout)
	}
}
