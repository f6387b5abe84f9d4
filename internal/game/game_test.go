package game

import (
	"testing"

	"reversi/internal/board"
	"reversi/internal/codec"
	"reversi/internal/core"
	"reversi/internal/replay"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pos(t *testing.T, s string) board.Position {
	t.Helper()
	p, err := codec.ParsePosition(s)
	require.NoError(t, err)
	return p
}

func player(side core.Side, typ core.PlayerType) *core.Player {
	return core.NewPlayer(core.PlayerConfig{Type: typ, SearchTime: 100}, side)
}

func humans() *Game {
	return New(player(core.SideBlack, core.PlayerHuman), player(core.SideWhite, core.PlayerHuman))
}

func TestNewGame(t *testing.T) {
	g := New(player(core.SideBlack, core.PlayerHuman), player(core.SideWhite, core.PlayerComputer))

	assert.Equal(t, core.SideBlack, g.NextSide())
	assert.Equal(t, core.PlayerHuman, g.NextPlayer().Type)
	assert.Equal(t, 100, g.GetPlayer(core.SideWhite).SearchTime)
	assert.Zero(t, g.GetPlayer(core.SideBlack).SearchTime)
	assert.Equal(t, core.StateOngoing, g.State())
	assert.Empty(t, g.Moves())
	assert.Len(t, g.ValidMoves(), 4)
	assert.Equal(t, board.Score{Black: 2, White: 2}, g.Score())

	token, err := g.Token()
	require.NoError(t, err)
	assert.Equal(t, "AA", token)
}

func TestPlayAlternates(t *testing.T) {
	g := humans()

	res, err := g.Play(pos(t, "d3"))
	require.NoError(t, err)
	assert.Equal(t, "d3", res.Move)
	assert.Equal(t, core.SideBlack, res.Side)
	assert.False(t, res.Passed)
	assert.Equal(t, core.SideWhite, g.NextSide())
	assert.Equal(t, board.Score{Black: 4, White: 1}, g.Score())

	_, err = g.Play(pos(t, "c3"))
	require.NoError(t, err)
	assert.Equal(t, core.SideBlack, g.NextSide())
	assert.Equal(t, []string{"d3", "c3"}, g.Notations())
	assert.Same(t, g.LastResult(), g.LastResult())
}

func TestPlayRejectsIllegal(t *testing.T) {
	g := humans()

	_, err := g.Play(pos(t, "a1"))
	assert.ErrorIs(t, err, board.ErrInvalidMove)

	_, err = g.Play(board.Position{Row: 8, Col: 0})
	assert.ErrorIs(t, err, board.ErrOutOfBounds)

	assert.Empty(t, g.Moves())
	assert.Equal(t, core.SideBlack, g.NextSide())
}

func TestShortestGameEndsOnDoublePass(t *testing.T) {
	// Black wipes out white in nine moves
	moves := []string{"e6", "f4", "e3", "f6", "g5", "d6", "e7", "f5", "c5"}
	g := humans()
	for i, m := range moves {
		require.False(t, g.State().Over(), "game ended early at move %d", i)
		_, err := g.Play(pos(t, m))
		require.NoError(t, err, "move %d %s", i, m)
	}

	assert.Equal(t, core.StateBlackWins, g.State())
	assert.Equal(t, board.End{Ended: true, Reason: board.ReasonNoMoves}, g.End())
	assert.Equal(t, core.WinnerBlack, g.Winner())
	assert.Equal(t, 0, g.Score().White)
	assert.Empty(t, g.ValidMoves())

	_, err := g.Play(pos(t, "a1"))
	assert.ErrorIs(t, err, ErrGameOver)

	snap := g.CurrentSnapshot()
	assert.Equal(t, 2, snap.Passes)
}

func TestForcedPassKeepsSide(t *testing.T) {
	b, err := board.Parse(`
		.WB.....
		........
		........
		........
		........
		........
		........
		BBBW....`)
	require.NoError(t, err)

	g := humans()
	g.snapshots[0] = Snapshot{Board: b, NextSide: core.SideBlack}

	// a1 leaves white with a single stone it cannot use
	res, err := g.Play(pos(t, "a1"))
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Equal(t, core.SideBlack, g.NextSide())
	assert.Equal(t, 1, g.CurrentSnapshot().Passes)
	assert.Equal(t, core.StateOngoing, g.State())

	res, err = g.Play(pos(t, "e8"))
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Equal(t, core.StateBlackWins, res.GameState)
	assert.Equal(t, board.ReasonNoMoves, g.End().Reason)
	assert.Equal(t, board.Score{Black: 8, White: 0}, g.Score())
}

func TestBoardFullEndsGame(t *testing.T) {
	b, err := board.Parse(`
		.WBBBBBB
		BBBBBBBB
		BBBBBBBB
		BBBBBBBB
		WWWWWWWW
		WWWWWWWW
		WWWWWWWW
		WWWWWWWW`)
	require.NoError(t, err)

	g := humans()
	g.snapshots[0] = Snapshot{Board: b, NextSide: core.SideBlack}

	_, err = g.Play(pos(t, "a1"))
	require.NoError(t, err)
	assert.Equal(t, board.End{Ended: true, Reason: board.ReasonBoardFull}, g.End())
	assert.Equal(t, core.StateDraw, g.State())
	assert.Equal(t, core.WinnerDraw, g.Winner())
}

func TestUndoMoves(t *testing.T) {
	g := humans()
	_, err := g.Play(pos(t, "d3"))
	require.NoError(t, err)
	_, err = g.Play(pos(t, "c3"))
	require.NoError(t, err)

	assert.Error(t, g.UndoMoves(0))
	assert.Error(t, g.UndoMoves(3))

	require.NoError(t, g.UndoMoves(1))
	assert.Equal(t, core.SideWhite, g.NextSide())
	assert.Len(t, g.Moves(), 1)
	assert.Nil(t, g.LastResult())

	require.NoError(t, g.UndoMoves(1))
	assert.Equal(t, board.New(), g.Board())
}

func TestUndoToHuman(t *testing.T) {
	g := New(player(core.SideBlack, core.PlayerHuman), player(core.SideWhite, core.PlayerComputer))
	_, err := g.Play(pos(t, "d3"))
	require.NoError(t, err)
	_, err = g.Play(pos(t, "c3"))
	require.NoError(t, err)

	n, err := g.UndoToHuman()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, core.SideBlack, g.NextSide())
	assert.Empty(t, g.Moves())

	_, err = g.UndoToHuman()
	assert.Error(t, err)
}

func TestFromMovesMatchesReplay(t *testing.T) {
	moves := []board.Position{{Row: 2, Col: 3}, {Row: 2, Col: 2}, {Row: 2, Col: 1}}
	g, err := FromMoves(player(core.SideBlack, core.PlayerHuman), player(core.SideWhite, core.PlayerHuman), moves)
	require.NoError(t, err)

	res, err := replay.Replay(moves)
	require.NoError(t, err)
	assert.Equal(t, res.Board, g.Board())
	assert.Equal(t, res.Next, g.NextSide())

	token, err := g.Token()
	require.NoError(t, err)
	decoded, err := codec.DecodeMoves(token)
	require.NoError(t, err)
	assert.Equal(t, moves, decoded)
}

func TestFromMovesReportsIndex(t *testing.T) {
	moves := []board.Position{{Row: 2, Col: 3}, {Row: 0, Col: 0}}
	_, err := FromMoves(player(core.SideBlack, core.PlayerHuman), player(core.SideWhite, core.PlayerHuman), moves)
	require.Error(t, err)

	var rerr *replay.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 1, rerr.Index)
	assert.ErrorIs(t, err, board.ErrInvalidMove)
}
