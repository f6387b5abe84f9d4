// FILE: internal/engine/bridge.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"reversi/internal/board"
	"reversi/internal/core"

	"go.uber.org/zap"
)

var (
	ErrNoValidMoves   = errors.New("no valid moves")
	ErrEngineNotReady = errors.New("engine not ready")
	ErrEngineTimeout  = errors.New("engine timeout")
)

const DefaultLoadTimeout = 5 * time.Second

type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateWaiting
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateWaiting:
		return "waiting"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

type Source string

const (
	SourceEngine   Source = "engine"
	SourceFallback Source = "fallback"
)

// Choice is the move picked for a computer turn
type Choice struct {
	Position board.Position `json:"position"`
	Value    int            `json:"value,omitempty"`
	Source   Source         `json:"source"`
	Reason   string         `json:"reason,omitempty"` // Why the fallback was used
}

// Bridge owns one collaborator and allows a single outstanding request
type Bridge struct {
	collab Collaborator
	log    *zap.SugaredLogger

	mu          sync.Mutex
	state       State
	generation  uint64
	pending     *Pending
	loadErr     error
	rng         *rand.Rand
	loadTimeout time.Duration
	loaded      chan struct{} // Closed once loading finishes either way
	done        chan struct{} // Closed on dispose
}

// Pending is the future for one request
type Pending struct {
	Generation uint64
	budget     time.Duration
	answer     chan Answer
	bridge     *Bridge
}

func NewBridge(collab Collaborator, log *zap.SugaredLogger) *Bridge {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Bridge{
		collab:      collab,
		log:         log,
		state:       StateUnloaded,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		loadTimeout: DefaultLoadTimeout,
		loaded:      make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// SetLoadTimeout bounds how long Load waits for the readiness signal
func (b *Bridge) SetLoadTimeout(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loadTimeout = d
}

// SetRand replaces the fallback source, for deterministic play
func (b *Bridge) SetRand(rng *rand.Rand) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rng = rng
}

// Load starts the collaborator in the background
func (b *Bridge) Load(ctx context.Context) {
	b.mu.Lock()
	if b.state != StateUnloaded {
		b.mu.Unlock()
		return
	}
	b.state = StateLoading
	b.loadErr = nil
	// A retry after a failed load gets a fresh signal channel
	select {
	case <-b.loaded:
		b.loaded = make(chan struct{})
	default:
	}
	loaded := b.loaded
	timeout := b.loadTimeout
	b.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		err := b.collab.Start(ctx)
		cancel()

		b.mu.Lock()
		defer b.mu.Unlock()
		defer close(loaded)

		if b.state == StateDisposed {
			b.collab.Close()
			return
		}
		if err != nil {
			b.loadErr = err
			b.state = StateUnloaded
			b.log.Errorw("engine failed to load", "error", err)
			return
		}

		b.state = StateReady
		go b.dispatch(b.collab.Answers())
		b.log.Debugw("engine ready")
	}()
}

// WaitLoaded blocks until loading finishes and returns the load error if any
func (b *Bridge) WaitLoaded(ctx context.Context) error {
	b.mu.Lock()
	loaded := b.loaded
	b.mu.Unlock()

	select {
	case <-loaded:
	case <-b.done:
		return ErrEngineNotReady
	case <-ctx.Done():
		return ctx.Err()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateDisposed {
		return ErrEngineNotReady
	}
	return b.loadErr
}

func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bridge) IsReady() bool {
	s := b.State()
	return s == StateReady || s == StateWaiting
}

// IsModuleReady is safe to call with a nil bridge
func IsModuleReady(b *Bridge) bool {
	return b != nil && b.IsReady()
}

func (b *Bridge) dispatch(answers <-chan Answer) {
	for {
		select {
		case a, ok := <-answers:
			if !ok {
				b.log.Warnw("engine answer stream closed")
				return
			}
			b.deliver(a)
		case <-b.done:
			return
		}
	}
}

func (b *Bridge) deliver(a Answer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateDisposed {
		b.log.Debugw("dropping answer after dispose", "generation", a.Generation)
		return
	}
	if b.pending == nil || a.Generation != b.generation {
		b.log.Debugw("dropping stale answer", "generation", a.Generation, "current", b.generation)
		return
	}

	// answer is buffered and written once per pending
	b.pending.answer <- a
	b.pending = nil
	b.state = StateReady
}

// Request sends a snapshot to the collaborator without blocking.
// Any earlier outstanding request is superseded.
func (b *Bridge) Request(bd board.Board, side core.Side, budget time.Duration) (*Pending, error) {
	b.mu.Lock()
	if b.state != StateReady && b.state != StateWaiting {
		state := b.state
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: state %s", ErrEngineNotReady, state)
	}

	b.generation++
	gen := b.generation
	p := &Pending{
		Generation: gen,
		budget:     budget,
		answer:     make(chan Answer, 1),
		bridge:     b,
	}
	b.pending = p
	b.state = StateWaiting
	b.mu.Unlock()

	q := EncodeQuery(bd, side)
	q.Generation = gen
	q.Budget = budget
	if err := b.collab.Send(q); err != nil {
		b.release(gen)
		return nil, fmt.Errorf("send query: %w", err)
	}

	return p, nil
}

// release clears the slot if gen is still the current request
func (b *Bridge) release(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.generation == gen && b.state == StateWaiting {
		b.pending = nil
		b.state = StateReady
	}
}

// Wait returns the answer or ErrEngineTimeout once the budget is spent
func (p *Pending) Wait(ctx context.Context) (Answer, error) {
	timer := time.NewTimer(p.budget)
	defer timer.Stop()

	select {
	case a := <-p.answer:
		return a, nil
	case <-timer.C:
		p.bridge.release(p.Generation)
		return Answer{}, ErrEngineTimeout
	case <-p.bridge.done:
		return Answer{}, ErrEngineNotReady
	case <-ctx.Done():
		p.bridge.release(p.Generation)
		return Answer{}, ctx.Err()
	}
}

// ChooseMove runs a full computer turn. Any failure short of an empty move
// set resolves to a uniformly random legal move.
func (b *Bridge) ChooseMove(ctx context.Context, bd board.Board, side core.Side, budget time.Duration) (Choice, error) {
	valid := bd.ValidMoves(side)
	if len(valid) == 0 {
		return Choice{}, ErrNoValidMoves
	}

	p, err := b.Request(bd, side, budget)
	if err != nil {
		return b.fallback(valid, err.Error())
	}

	a, err := p.Wait(ctx)
	if err != nil {
		return b.fallback(valid, err.Error())
	}

	d, ok := DecodeResponse(a.Code)
	if !ok {
		return b.fallback(valid, fmt.Sprintf("undecodable answer %d", a.Code))
	}
	if !contains(valid, d.Position) {
		return b.fallback(valid, fmt.Sprintf("answer %s is not a legal move", d.Position))
	}

	return Choice{Position: d.Position, Value: d.Value, Source: SourceEngine}, nil
}

func (b *Bridge) fallback(valid []board.Position, reason string) (Choice, error) {
	b.mu.Lock()
	pos, err := SelectRandomValidMove(b.rng, valid)
	b.mu.Unlock()
	if err != nil {
		return Choice{}, err
	}

	b.log.Infow("engine fallback move", "reason", reason, "row", pos.Row, "col", pos.Col)
	return Choice{Position: pos, Source: SourceFallback, Reason: reason}, nil
}

// Dispose releases the collaborator. The bridge cannot be reused.
func (b *Bridge) Dispose() error {
	b.mu.Lock()
	if b.state == StateDisposed {
		b.mu.Unlock()
		return nil
	}
	loading := b.state == StateLoading
	b.state = StateDisposed
	b.pending = nil
	close(b.done)
	b.mu.Unlock()

	// Loader closes the collaborator itself when Start returns
	if loading {
		return nil
	}
	return b.collab.Close()
}
