package engine

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"reversi/internal/board"
	"reversi/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeCollaborator records queries and answers only when told to
type fakeCollaborator struct {
	mu       sync.Mutex
	queries  []Query
	answers  chan Answer
	startErr error
	ready    chan struct{}
	closed   bool
	sent     chan Query
}

func newFake() *fakeCollaborator {
	f := &fakeCollaborator{
		answers: make(chan Answer, 8),
		ready:   make(chan struct{}),
		sent:    make(chan Query, 8),
	}
	close(f.ready)
	return f
}

func (f *fakeCollaborator) Start(ctx context.Context) error {
	select {
	case <-f.ready:
		return f.startErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeCollaborator) Send(q Query) error {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	f.sent <- q
	return nil
}

func (f *fakeCollaborator) Answers() <-chan Answer {
	return f.answers
}

func (f *fakeCollaborator) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeCollaborator) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func loadedBridge(t *testing.T, f Collaborator) (*Bridge, *observer.ObservedLogs) {
	t.Helper()
	obs, logs := observer.New(zapcore.DebugLevel)
	b := NewBridge(f, zap.New(obs).Sugar())
	b.Load(context.Background())
	require.NoError(t, b.WaitLoaded(context.Background()))
	require.True(t, b.IsReady())
	t.Cleanup(func() { b.Dispose() })
	return b, logs
}

func mustCode(t *testing.T, pos board.Position, value int) int {
	t.Helper()
	code, err := EncodeResponse(pos, value)
	require.NoError(t, err)
	return code
}

func TestDecodeResponseFixture(t *testing.T) {
	d, ok := DecodeResponse(27105)
	require.True(t, ok)
	assert.Equal(t, board.Position{Row: 3, Col: 3}, d.Position)
	assert.Equal(t, 5, d.Value)

	// Pure function
	again, _ := DecodeResponse(27105)
	assert.Equal(t, d, again)
}

func TestDecodeResponseRange(t *testing.T) {
	for _, code := range []int{-1, 0, 99, 64100, 64105, 1 << 30} {
		_, ok := DecodeResponse(code)
		assert.False(t, ok, "code %d", code)
	}

	d, ok := DecodeResponse(100)
	require.True(t, ok)
	assert.Equal(t, board.Position{Row: 0, Col: 0}, d.Position)

	d, ok = DecodeResponse(63*1000 + 100 + 999)
	require.True(t, ok)
	assert.Equal(t, board.Position{Row: 7, Col: 7}, d.Position)
	assert.Equal(t, 999, d.Value)
}

func TestEncodeResponseInverse(t *testing.T) {
	for i := 0; i < board.Squares; i++ {
		pos := board.PositionFromIndex(i)
		code := mustCode(t, pos, i*7)
		d, ok := DecodeResponse(code)
		require.True(t, ok)
		assert.Equal(t, pos, d.Position)
		assert.Equal(t, i*7, d.Value)
	}

	_, err := EncodeResponse(board.Position{Row: 8, Col: 0}, 1)
	assert.ErrorIs(t, err, board.ErrOutOfBounds)
}

func TestQueryBitboards(t *testing.T) {
	q := EncodeQuery(board.New(), core.SideBlack)

	// d5 and e4 black, d4 and e5 white
	assert.Equal(t, bit(27)|bit(36), q.White)
	assert.Equal(t, bit(28)|bit(35), q.Black)

	line := q.Line()
	parsed, err := ParseQuery(line)
	require.NoError(t, err)
	assert.Equal(t, q, parsed)

	b, err := parsed.Board()
	require.NoError(t, err)
	assert.Equal(t, board.New(), b)

	_, err = Query{Black: 1, White: 1}.Board()
	assert.Error(t, err)
}

func TestParseProtocolLines(t *testing.T) {
	q, err := ParseQuery("query 7 0000000810000000 0000001008000000 w 250")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), q.Generation)
	assert.Equal(t, core.SideWhite, q.Side)
	assert.Equal(t, 250*time.Millisecond, q.Budget)

	for _, bad := range []string{"", "query", "query x 0 0 b 1", "query 1 zz 0 b 1", "query 1 0 0 x 1", "query 1 0 0 b -5"} {
		_, err := ParseQuery(bad)
		assert.Error(t, err, bad)
	}

	a, err := ParseAnswer("answer 3 27105")
	require.NoError(t, err)
	assert.Equal(t, Answer{Generation: 3, Code: 27105}, a)
	assert.Equal(t, "answer 3 27105", a.Line())

	for _, bad := range []string{"ready", "answer 1", "answer x 1", "answer 1 y"} {
		_, err := ParseAnswer(bad)
		assert.Error(t, err, bad)
	}
}

func TestSelectRandomValidMove(t *testing.T) {
	_, err := SelectRandomValidMove(nil, nil)
	assert.ErrorIs(t, err, ErrNoValidMoves)

	only := board.Position{Row: 4, Col: 5}
	pos, err := SelectRandomValidMove(rand.New(rand.NewSource(1)), []board.Position{only})
	require.NoError(t, err)
	assert.Equal(t, only, pos)

	moves := board.New().ValidMoves(core.SideBlack)
	seen := map[board.Position]bool{}
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 200; i++ {
		pos, err := SelectRandomValidMove(rng, moves)
		require.NoError(t, err)
		require.Contains(t, moves, pos)
		seen[pos] = true
	}
	assert.Len(t, seen, len(moves))
}

func TestBridgeNotReady(t *testing.T) {
	b := NewBridge(newFake(), nil)
	assert.False(t, b.IsReady())
	assert.False(t, IsModuleReady(nil))
	assert.False(t, IsModuleReady(b))

	_, err := b.Request(board.New(), core.SideBlack, time.Second)
	assert.ErrorIs(t, err, ErrEngineNotReady)
}

func TestBridgeLoadFailure(t *testing.T) {
	f := newFake()
	f.startErr = errors.New("no model")
	b := NewBridge(f, nil)
	b.Load(context.Background())

	err := b.WaitLoaded(context.Background())
	assert.EqualError(t, err, "no model")
	assert.Equal(t, StateUnloaded, b.State())

	// Turn still completes through the fallback
	choice, err := b.ChooseMove(context.Background(), board.New(), core.SideBlack, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, choice.Source)
}

func TestBridgeReloadAfterFailure(t *testing.T) {
	f := newFake()
	f.startErr = errors.New("no model")
	b := NewBridge(f, nil)
	t.Cleanup(func() { b.Dispose() })

	b.Load(context.Background())
	require.EqualError(t, b.WaitLoaded(context.Background()), "no model")
	require.Equal(t, StateUnloaded, b.State())

	f.startErr = nil
	b.Load(context.Background())
	require.NoError(t, b.WaitLoaded(context.Background()))
	assert.Equal(t, StateReady, b.State())
	assert.True(t, b.IsReady())

	// Loading again once ready is a no-op
	b.Load(context.Background())
	assert.Equal(t, StateReady, b.State())
}

func TestBridgeLoadTimeout(t *testing.T) {
	f := newFake()
	f.ready = make(chan struct{}) // never signals
	b := NewBridge(f, nil)
	b.SetLoadTimeout(20 * time.Millisecond)
	b.Load(context.Background())

	err := b.WaitLoaded(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, b.IsReady())
}

func TestBridgeAnswer(t *testing.T) {
	f := newFake()
	b, _ := loadedBridge(t, f)

	p, err := b.Request(board.New(), core.SideBlack, time.Second)
	require.NoError(t, err)
	assert.Equal(t, StateWaiting, b.State())

	q := <-f.sent
	assert.Equal(t, p.Generation, q.Generation)
	assert.Equal(t, core.SideBlack, q.Side)
	assert.Equal(t, time.Second, q.Budget)

	f.answers <- Answer{Generation: q.Generation, Code: 27105}
	a, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 27105, a.Code)

	assert.Eventually(t, func() bool { return b.State() == StateReady }, time.Second, time.Millisecond)
}

func TestBridgeTimeout(t *testing.T) {
	f := newFake()
	b, _ := loadedBridge(t, f)

	p, err := b.Request(board.New(), core.SideBlack, 20*time.Millisecond)
	require.NoError(t, err)
	<-f.sent

	_, err = p.Wait(context.Background())
	assert.ErrorIs(t, err, ErrEngineTimeout)
	assert.Equal(t, StateReady, b.State())
}

func TestBridgeDropsStaleAnswer(t *testing.T) {
	f := newFake()
	b, logs := loadedBridge(t, f)

	first, err := b.Request(board.New(), core.SideBlack, time.Second)
	require.NoError(t, err)
	<-f.sent
	second, err := b.Request(board.New(), core.SideBlack, time.Second)
	require.NoError(t, err)
	<-f.sent
	require.Greater(t, second.Generation, first.Generation)

	// Answer for the superseded request arrives first
	f.answers <- Answer{Generation: first.Generation, Code: mustCode(t, board.Position{Row: 2, Col: 3}, 1)}
	f.answers <- Answer{Generation: second.Generation, Code: mustCode(t, board.Position{Row: 5, Col: 4}, 2)}

	a, err := second.Wait(context.Background())
	require.NoError(t, err)
	d, _ := DecodeResponse(a.Code)
	assert.Equal(t, board.Position{Row: 5, Col: 4}, d.Position)

	assert.Equal(t, 1, logs.FilterMessage("dropping stale answer").Len())
}

func TestBridgeDispose(t *testing.T) {
	f := newFake()
	b, logs := loadedBridge(t, f)

	p, err := b.Request(board.New(), core.SideBlack, time.Second)
	require.NoError(t, err)
	q := <-f.sent

	require.NoError(t, b.Dispose())
	assert.True(t, f.isClosed())
	assert.Equal(t, StateDisposed, b.State())
	assert.False(t, IsModuleReady(b))

	_, err = p.Wait(context.Background())
	assert.ErrorIs(t, err, ErrEngineNotReady)

	_, err = b.Request(board.New(), core.SideBlack, time.Second)
	assert.ErrorIs(t, err, ErrEngineNotReady)

	// Late answer is never applied
	b.deliver(Answer{Generation: q.Generation, Code: 27105})
	assert.Equal(t, 1, logs.FilterMessage("dropping answer after dispose").Len())

	// Second dispose is a no-op
	assert.NoError(t, b.Dispose())
}

func TestChooseMoveUsesEngineAnswer(t *testing.T) {
	f := newFake()
	b, _ := loadedBridge(t, f)

	code := mustCode(t, board.Position{Row: 4, Col: 5}, 42)
	go func() {
		q := <-f.sent
		f.answers <- Answer{Generation: q.Generation, Code: code}
	}()

	choice, err := b.ChooseMove(context.Background(), board.New(), core.SideBlack, time.Second)
	require.NoError(t, err)
	assert.Equal(t, Choice{Position: board.Position{Row: 4, Col: 5}, Value: 42, Source: SourceEngine}, choice)
}

func TestChooseMoveFallbacks(t *testing.T) {
	start := board.New()
	valid := start.ValidMoves(core.SideBlack)

	cases := map[string]func(q Query) *Answer{
		"timeout": func(q Query) *Answer {
			return nil
		},
		"bad code": func(q Query) *Answer {
			return &Answer{Generation: q.Generation, Code: 42}
		},
		"illegal square": func(q Query) *Answer {
			return &Answer{Generation: q.Generation, Code: 27105}
		},
	}

	for name, respond := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFake()
			b, logs := loadedBridge(t, f)
			b.SetRand(rand.New(rand.NewSource(5)))

			go func() {
				q := <-f.sent
				if a := respond(q); a != nil {
					f.answers <- *a
				}
			}()

			choice, err := b.ChooseMove(context.Background(), start, core.SideBlack, 30*time.Millisecond)
			require.NoError(t, err)
			assert.Equal(t, SourceFallback, choice.Source)
			assert.Contains(t, valid, choice.Position)
			assert.NotEmpty(t, choice.Reason)
			assert.Equal(t, 1, logs.FilterMessage("engine fallback move").Len())
		})
	}
}

func TestChooseMoveNoValidMoves(t *testing.T) {
	f := newFake()
	b, _ := loadedBridge(t, f)

	full, err := board.Parse(`
		BBBBBBBB
		BBBBBBBB
		BBBBBBBB
		BBBBBBBB
		BBBBBBBB
		BBBBBBBB
		BBBBBBBB
		BBBBBBBB`)
	require.NoError(t, err)

	_, err = b.ChooseMove(context.Background(), full, core.SideWhite, time.Second)
	assert.ErrorIs(t, err, ErrNoValidMoves)
	assert.Empty(t, f.sent)
}

func TestLocalCollaborator(t *testing.T) {
	b, _ := loadedBridge(t, NewLocal(Greedy, 0))

	start := board.New()
	choice, err := b.ChooseMove(context.Background(), start, core.SideBlack, time.Second)
	require.NoError(t, err)
	assert.Equal(t, SourceEngine, choice.Source)
	// All four openings are symmetric, greedy keeps the first
	assert.Equal(t, board.Position{Row: 2, Col: 3}, choice.Position)
}

func TestLocalCollaboratorSlowAnswerFallsBack(t *testing.T) {
	b, _ := loadedBridge(t, NewLocal(Greedy, 200*time.Millisecond))

	choice, err := b.ChooseMove(context.Background(), board.New(), core.SideBlack, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, choice.Source)
}

func TestGreedyPrefersCorner(t *testing.T) {
	b, err := board.Parse(`
		........
		.W......
		..B.....
		........
		........
		........
		........
		........`)
	require.NoError(t, err)

	pos, value, ok := Greedy(b, core.SideBlack)
	require.True(t, ok)
	assert.Equal(t, board.Position{Row: 0, Col: 0}, pos)
	assert.Greater(t, value, 500)
}
