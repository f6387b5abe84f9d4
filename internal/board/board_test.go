package board

import (
	"strings"
	"testing"

	"reversi/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, rows ...string) Board {
	t.Helper()
	b, err := Parse(strings.Join(rows, "\n"))
	require.NoError(t, err)
	return b
}

func TestNewBoard(t *testing.T) {
	b := New()

	assert.Equal(t, Score{Black: 2, White: 2}, b.Count())
	assert.Equal(t, 60, b.Empties())

	cell, err := b.At(Position{3, 3})
	require.NoError(t, err)
	assert.Equal(t, WhiteStone, cell)

	cell, _ = b.At(Position{3, 4})
	assert.Equal(t, BlackStone, cell)
	cell, _ = b.At(Position{4, 3})
	assert.Equal(t, BlackStone, cell)
	cell, _ = b.At(Position{4, 4})
	assert.Equal(t, WhiteStone, cell)
}

func TestInitialValidMoves(t *testing.T) {
	b := New()

	black := b.ValidMoves(core.SideBlack)
	assert.Equal(t, []Position{{2, 3}, {3, 2}, {4, 5}, {5, 4}}, black)

	white := b.ValidMoves(core.SideWhite)
	assert.Equal(t, []Position{{2, 4}, {3, 5}, {4, 2}, {5, 3}}, white)
}

func TestAtSetOutOfBounds(t *testing.T) {
	b := New()

	for _, pos := range []Position{{-1, 0}, {0, -1}, {8, 0}, {0, 8}} {
		_, err := b.At(pos)
		assert.ErrorIs(t, err, ErrOutOfBounds, "At %s", pos)

		_, err = b.Set(pos, BlackStone)
		assert.ErrorIs(t, err, ErrOutOfBounds, "Set %s", pos)

		_, err = b.Validate(pos, core.SideBlack)
		assert.ErrorIs(t, err, ErrOutOfBounds, "Validate %s", pos)
	}
}

func TestSetDoesNotMutateOriginal(t *testing.T) {
	b := New()
	next, err := b.Set(Position{0, 0}, BlackStone)
	require.NoError(t, err)

	orig, _ := b.At(Position{0, 0})
	changed, _ := next.At(Position{0, 0})
	assert.Equal(t, Empty, orig)
	assert.Equal(t, BlackStone, changed)
}

func TestValidateRejects(t *testing.T) {
	b := New()

	_, err := b.Validate(Position{3, 3}, core.SideBlack)
	assert.ErrorIs(t, err, ErrInvalidMove, "occupied square")

	_, err = b.Validate(Position{0, 0}, core.SideBlack)
	assert.ErrorIs(t, err, ErrInvalidMove, "no flank")

	_, err = b.Apply(Position{0, 0}, core.SideBlack)
	assert.ErrorIs(t, err, ErrInvalidMove)
}

func TestApplyMultipleDirections(t *testing.T) {
	b := mustParse(t,
		"B..B..B.",
		".W.W.W..",
		"..WWW...",
		"BWW.WWWB",
		"..WWW...",
		".W.W.W..",
		"B..B..W.",
		"........",
	)

	runs, err := b.Validate(Position{3, 3}, core.SideBlack)
	require.NoError(t, err)
	// SE run is never closed, so seven directions flip
	assert.Len(t, runs, 7)

	next, err := b.Apply(Position{3, 3}, core.SideBlack)
	require.NoError(t, err)

	want := mustParse(t,
		"B..B..B.",
		".B.B.B..",
		"..BBB...",
		"BBBBBBBB",
		"..BBW...",
		".B.B.W..",
		"B..B..W.",
		"........",
	)
	assert.Equal(t, want, next)

	// Source board is untouched
	cell, _ := b.At(Position{3, 3})
	assert.Equal(t, Empty, cell)
}

func TestApplyStopsAtTerminatingStone(t *testing.T) {
	b := mustParse(t,
		"........",
		"........",
		"........",
		".WWBW...",
		"........",
		"........",
		"........",
		"........",
	)

	next, err := b.Apply(Position{3, 0}, core.SideBlack)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"........",
		"........",
		"........",
		"BBBBW...",
		"........",
		"........",
		"........",
		"........",
	}, next.Rows())
}

func TestCheckGameEnd(t *testing.T) {
	b := New()
	assert.Equal(t, End{}, CheckGameEnd(b, b.ValidMoves(core.SideBlack), b.ValidMoves(core.SideWhite)))

	assert.Equal(t, End{Ended: true, Reason: ReasonNoMoves}, CheckGameEnd(b, nil, nil))

	full := mustParse(t,
		"BBBBBBBB",
		"BBBBBBBB",
		"BBBBBBBB",
		"BBBBBBBB",
		"WWWWWWWW",
		"WWWWWWWW",
		"WWWWWWWW",
		"WWWWWWWW",
	)
	assert.Equal(t, End{Ended: true, Reason: ReasonBoardFull}, full.Outcome())
	// Full board wins over the no-moves reason
	assert.Equal(t, ReasonBoardFull, CheckGameEnd(full, nil, nil).Reason)
}

func TestOutcomeBlockedPosition(t *testing.T) {
	b := mustParse(t,
		"BBBBBBBB",
		"BBBBBBBB",
		"BBBBBBBB",
		"BBBBBBB.",
		"BBBBBBBB",
		"BBBBBBBB",
		"BBBBBBBB",
		"BBBBBBBB",
	)
	assert.False(t, b.HasMoves(core.SideBlack))
	assert.False(t, b.HasMoves(core.SideWhite))
	assert.Equal(t, End{Ended: true, Reason: ReasonNoMoves}, b.Outcome())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("........")
	assert.Error(t, err)

	_, err = Parse(strings.Repeat("........\n", 7) + "...X....")
	assert.Error(t, err)

	_, err = Parse(strings.Repeat("........\n", 7) + ".......")
	assert.Error(t, err)
}

func TestStringRoundTripsThroughRows(t *testing.T) {
	b := New()
	parsed, err := Parse(strings.Join(b.Rows(), "\n"))
	require.NoError(t, err)
	assert.Equal(t, b, parsed)

	s := b.String()
	assert.True(t, strings.HasPrefix(s, "  a b c d e f g h\n"))
	assert.Contains(t, s, "4 . . . W B . . . 4")
}
