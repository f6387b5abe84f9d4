// FILE: internal/engine/local.go
package engine

import (
	"context"
	"sync"
	"time"

	"reversi/internal/board"
	"reversi/internal/core"
)

// Scorer chooses a move for side with a value in [0,999]; ok is false when it has nothing to offer
type Scorer func(b board.Board, side core.Side) (pos board.Position, value int, ok bool)

var weights = [board.Squares]int{
	100, -20, 10, 5, 5, 10, -20, 100,
	-20, -50, -2, -2, -2, -2, -50, -20,
	10, -2, -1, -1, -1, -1, -2, 10,
	5, -2, -1, -1, -1, -1, -2, 5,
	5, -2, -1, -1, -1, -1, -2, 5,
	10, -2, -1, -1, -1, -1, -2, 10,
	-20, -50, -2, -2, -2, -2, -50, -20,
	100, -20, 10, 5, 5, 10, -20, 100,
}

// Greedy scores each legal move by square weight plus flipped stones and keeps the best.
// Ties go to the first move in row-major order.
func Greedy(b board.Board, side core.Side) (board.Position, int, bool) {
	best, bestScore, found := board.Position{}, 0, false
	for _, m := range b.ValidMoves(side) {
		runs, err := b.Validate(m, side)
		if err != nil {
			continue
		}
		flips := 0
		for _, r := range runs {
			flips += len(r.Cells)
		}
		score := weights[m.Index()]*4 + flips
		if !found || score > bestScore {
			best, bestScore, found = m, score, true
		}
	}
	return best, bestScore + 500, found
}

// Respond runs scorer on a query. An unusable position yields code 0 which never decodes.
func Respond(q Query, scorer Scorer) Answer {
	a := Answer{Generation: q.Generation}
	b, err := q.Board()
	if err != nil {
		return a
	}
	pos, value, ok := scorer(b, q.Side)
	if !ok {
		return a
	}
	if code, err := EncodeResponse(pos, value); err == nil {
		a.Code = code
	}
	return a
}

// Local is an in-process collaborator, used when no scorer binary is configured
type Local struct {
	scorer  Scorer
	delay   time.Duration
	answers chan Answer
	closed  chan struct{}
	once    sync.Once
}

func NewLocal(scorer Scorer, delay time.Duration) *Local {
	if scorer == nil {
		scorer = Greedy
	}
	return &Local{
		scorer:  scorer,
		delay:   delay,
		answers: make(chan Answer, 4),
		closed:  make(chan struct{}),
	}
}

func LocalFactory(scorer Scorer, delay time.Duration) Factory {
	return func() Collaborator {
		return NewLocal(scorer, delay)
	}
}

func (l *Local) Start(ctx context.Context) error {
	return ctx.Err()
}

func (l *Local) Send(q Query) error {
	go func() {
		a := Respond(q, l.scorer)
		if l.delay > 0 {
			select {
			case <-time.After(l.delay):
			case <-l.closed:
				return
			}
		}
		select {
		case l.answers <- a:
		case <-l.closed:
		}
	}()
	return nil
}

func (l *Local) Answers() <-chan Answer {
	return l.answers
}

func (l *Local) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}
