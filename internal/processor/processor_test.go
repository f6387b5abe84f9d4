package processor

import (
	"testing"
	"time"

	"reversi/internal/board"
	"reversi/internal/cache"
	"reversi/internal/codec"
	"reversi/internal/core"
	"reversi/internal/engine"
	"reversi/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	humanCfg    = core.PlayerConfig{Type: core.PlayerHuman}
	computerCfg = core.PlayerConfig{Type: core.PlayerComputer, SearchTime: 500}
)

func newProcessor(t *testing.T, factory engine.Factory, rc cache.ReplayCache) *Processor {
	t.Helper()
	svc := service.New(service.Config{}, nil, factory, nil)
	p := New(svc, rc, 200*time.Millisecond, nil)
	t.Cleanup(func() {
		p.Close(2 * time.Second)
		svc.Shutdown(time.Second)
	})
	return p
}

func gameData(t *testing.T, resp ProcessorResponse) core.GameResponse {
	t.Helper()
	require.True(t, resp.Success, "unexpected error: %+v", resp.Error)
	data, ok := resp.Data.(core.GameResponse)
	require.True(t, ok, "data is %T", resp.Data)
	return data
}

func errorCode(t *testing.T, resp ProcessorResponse) string {
	t.Helper()
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func create(t *testing.T, p *Processor, black, white core.PlayerConfig) core.GameResponse {
	t.Helper()
	return gameData(t, p.Execute(NewCreateGameCommand(core.CreateGameRequest{Black: black, White: white})))
}

func waitForGame(t *testing.T, p *Processor, id string, cond func(core.GameResponse) bool) core.GameResponse {
	t.Helper()
	var last core.GameResponse
	require.Eventually(t, func() bool {
		last = gameData(t, p.Execute(NewGetGameCommand(id)))
		return cond(last)
	}, 10*time.Second, 10*time.Millisecond)
	return last
}

func tokenOf(t *testing.T, moves ...string) string {
	t.Helper()
	var positions []board.Position
	for _, m := range moves {
		pos, err := codec.ParsePosition(m)
		require.NoError(t, err)
		positions = append(positions, pos)
	}
	token, err := codec.EncodeMoves(positions)
	require.NoError(t, err)
	return token
}

func TestHumanGame(t *testing.T) {
	p := newProcessor(t, nil, nil)
	g := create(t, p, humanCfg, humanCfg)

	assert.Equal(t, "b", g.Turn)
	assert.Equal(t, "ongoing", g.State)
	assert.Equal(t, "AA", g.Token)
	assert.Equal(t, []string{"d3", "c4", "f5", "e6"}, g.ValidMoves)
	assert.NotEmpty(t, g.Players.Black.ID)

	resp := p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: " D3 "}))
	assert.False(t, resp.Pending)
	g = gameData(t, resp)
	assert.Equal(t, []string{"d3"}, g.Moves)
	assert.Equal(t, "w", g.Turn)
	assert.Equal(t, core.ScoreResponse{Black: 4, White: 1}, g.Score)
	require.NotNil(t, g.LastMove)
	assert.Equal(t, "d3", g.LastMove.Move)
	assert.Equal(t, "b", g.LastMove.PlayerColor)

	assert.Equal(t, core.ErrInvalidMove, errorCode(t, p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: "z9"}))))
	assert.Equal(t, core.ErrInvalidMove, errorCode(t, p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: "a1"}))))
	assert.Equal(t, core.ErrNotHumanTurn, errorCode(t, p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: "cccc"}))))
}

func TestGameOverRejectsMoves(t *testing.T) {
	p := newProcessor(t, nil, nil)
	g := create(t, p, humanCfg, humanCfg)

	for _, m := range []string{"e6", "f4", "e3", "f6", "g5", "d6", "e7", "f5", "c5"} {
		g = gameData(t, p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: m})))
	}
	assert.Equal(t, "black_wins", g.State)
	assert.Equal(t, string(board.ReasonNoMoves), g.EndReason)
	assert.Empty(t, g.ValidMoves)

	assert.Equal(t, core.ErrGameOver, errorCode(t, p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: "a1"}))))

	// Undo reopens the game
	g = gameData(t, p.Execute(NewUndoMoveCommand(g.GameID, core.UndoRequest{Count: 1})))
	assert.Equal(t, "ongoing", g.State)
	assert.Len(t, g.Moves, 8)
}

func TestEngineRepliesAfterHumanMove(t *testing.T) {
	p := newProcessor(t, engine.LocalFactory(engine.Greedy, 0), nil)
	g := create(t, p, humanCfg, computerCfg)

	resp := p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: "d3"}))
	assert.True(t, resp.Pending)

	g = waitForGame(t, p, g.GameID, func(g core.GameResponse) bool {
		return g.State == "ongoing" && len(g.Moves) == 2
	})
	assert.Equal(t, "b", g.Turn)
	require.NotNil(t, g.LastMove)
	assert.Equal(t, "w", g.LastMove.PlayerColor)
	assert.Equal(t, string(engine.SourceEngine), g.LastMove.Source)
	assert.Positive(t, g.LastMove.Value)
}

func TestComputerOpensAndPlaysOut(t *testing.T) {
	p := newProcessor(t, engine.LocalFactory(engine.Greedy, 0), nil)
	g := create(t, p, computerCfg, computerCfg)

	g = waitForGame(t, p, g.GameID, func(g core.GameResponse) bool {
		return g.State != "ongoing" && g.State != "pending"
	})
	assert.Contains(t, []string{"black_wins", "white_wins", "draw"}, g.State)
	assert.NotEmpty(t, g.EndReason)

	decoded, err := codec.DecodeMoves(g.Token)
	require.NoError(t, err)
	assert.Len(t, decoded, len(g.Moves))
}

func TestPendingRejectsHumanInput(t *testing.T) {
	p := newProcessor(t, engine.LocalFactory(engine.Greedy, 300*time.Millisecond), nil)
	g := create(t, p, humanCfg, core.PlayerConfig{Type: core.PlayerComputer, SearchTime: 2000})

	resp := p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: "d3"}))
	require.True(t, resp.Pending)
	assert.Equal(t, "pending", gameData(t, resp).State)

	assert.Equal(t, core.ErrEnginePending, errorCode(t, p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: "c3"}))))
	assert.Equal(t, core.ErrEnginePending, errorCode(t, p.Execute(NewUndoMoveCommand(g.GameID, core.UndoRequest{Count: 1}))))

	g = waitForGame(t, p, g.GameID, func(g core.GameResponse) bool { return g.State == "ongoing" })
	assert.Len(t, g.Moves, 2)
	assert.Equal(t, string(engine.SourceEngine), g.LastMove.Source)
}

func TestSlowEngineFallsBack(t *testing.T) {
	p := newProcessor(t, engine.LocalFactory(engine.Greedy, 3*time.Second), nil)
	g := create(t, p, humanCfg, core.PlayerConfig{Type: core.PlayerComputer, SearchTime: 100})

	p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: "d3"}))

	g = waitForGame(t, p, g.GameID, func(g core.GameResponse) bool {
		return g.State == "ongoing" && len(g.Moves) == 2
	})
	assert.Equal(t, string(engine.SourceFallback), g.LastMove.Source)
}

func TestCreateWithoutEngine(t *testing.T) {
	p := newProcessor(t, nil, nil)
	resp := p.Execute(NewCreateGameCommand(core.CreateGameRequest{Black: humanCfg, White: computerCfg}))
	assert.Equal(t, core.ErrInvalidRequest, errorCode(t, resp))
}

func TestCreateFromToken(t *testing.T) {
	p := newProcessor(t, nil, nil)

	token := tokenOf(t, "d3", "c3")
	g := gameData(t, p.Execute(NewCreateGameCommand(core.CreateGameRequest{Black: humanCfg, White: humanCfg, Token: token})))
	assert.Equal(t, []string{"d3", "c3"}, g.Moves)
	assert.Equal(t, token, g.Token)
	assert.Equal(t, "b", g.Turn)

	bad := p.Execute(NewCreateGameCommand(core.CreateGameRequest{Black: humanCfg, White: humanCfg, Token: "!!"}))
	assert.Equal(t, core.ErrInvalidToken, errorCode(t, bad))

	illegal := p.Execute(NewCreateGameCommand(core.CreateGameRequest{Black: humanCfg, White: humanCfg, Token: tokenOf(t, "a1")}))
	assert.Equal(t, core.ErrInvalidToken, errorCode(t, illegal))
}

func TestShareAndReplay(t *testing.T) {
	rc := cache.NewMemory(time.Minute, 0)
	p := newProcessor(t, nil, rc)
	g := create(t, p, humanCfg, humanCfg)
	g = gameData(t, p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: "d3"})))

	resp := p.Execute(NewGetShareCommand(g.GameID, "w"))
	require.True(t, resp.Success)
	share := resp.Data.(core.ShareResponse)
	assert.True(t, share.Valid)
	assert.Equal(t, "AUw", share.Token)
	assert.Equal(t, "w/AUw", share.Path)
	assert.Equal(t, "d3", share.Notation)
	assert.Equal(t, "none", share.Winner)

	resp = p.Execute(NewReplayCommand("w", share.Token))
	require.True(t, resp.Success)
	replayed := resp.Data.(core.ShareResponse)
	assert.True(t, replayed.Valid)
	assert.Equal(t, share.Board, replayed.Board)
	assert.Equal(t, share.Score, replayed.Score)
	assert.Equal(t, 1, rc.Len())

	// Served from cache the second time
	resp = p.Execute(NewReplayCommand("black", share.Token))
	assert.Equal(t, "b", resp.Data.(core.ShareResponse).Side)
	assert.Equal(t, 1, rc.Len())

	assert.Equal(t, core.ErrInvalidRequest, errorCode(t, p.Execute(NewGetShareCommand(g.GameID, "x"))))
	assert.Equal(t, core.ErrGameNotFound, errorCode(t, p.Execute(NewGetShareCommand("missing", ""))))
}

func TestReplayTamperedToken(t *testing.T) {
	p := newProcessor(t, nil, nil)
	initial := board.New()

	for _, token := range []string{"AUx", "AQA", "", "%%%"} {
		resp := p.Execute(NewReplayCommand("b", token))
		require.True(t, resp.Success, token)
		share := resp.Data.(core.ShareResponse)
		assert.False(t, share.Valid, token)
		assert.NotEmpty(t, share.Error, token)
		assert.Equal(t, initial.Rows(), share.Board, token)
		assert.Empty(t, share.Moves, token)
		assert.Equal(t, core.ScoreResponse{Black: 2, White: 2}, share.Score)
	}

	assert.Equal(t, core.ErrInvalidRequest, errorCode(t, p.Execute(NewReplayCommand("x", "AA"))))
}

func TestBoardUndoDelete(t *testing.T) {
	p := newProcessor(t, nil, nil)
	g := create(t, p, humanCfg, humanCfg)
	p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: "d3"}))

	resp := p.Execute(NewGetBoardCommand(g.GameID))
	require.True(t, resp.Success)
	b := resp.Data.(core.BoardResponse)
	assert.Len(t, b.Rows, 8)
	assert.Contains(t, b.Board, "a b c d e f g h")

	assert.Equal(t, core.ErrInvalidRequest, errorCode(t, p.Execute(NewUndoMoveCommand(g.GameID, core.UndoRequest{Count: 2}))))
	g = gameData(t, p.Execute(NewUndoMoveCommand(g.GameID, core.UndoRequest{})))
	assert.Empty(t, g.Moves)

	assert.True(t, p.Execute(NewDeleteGameCommand(g.GameID)).Success)
	assert.Equal(t, core.ErrGameNotFound, errorCode(t, p.Execute(NewGetGameCommand(g.GameID))))
	assert.Equal(t, core.ErrGameNotFound, errorCode(t, p.Execute(NewDeleteGameCommand(g.GameID))))
	assert.Equal(t, core.ErrGameNotFound, errorCode(t, p.Execute(NewGetBoardCommand(g.GameID))))
	assert.Equal(t, core.ErrInvalidRequest, errorCode(t, p.Execute(Command{Type: CommandType(99)})))
}
