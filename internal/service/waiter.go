// FILE: internal/service/waiter.go
package service

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// WaitTimeout is the maximum time a client can wait for notifications
const WaitTimeout = 25 * time.Second

// WaitRegistry manages long-polling clients waiting for game state changes
type WaitRegistry struct {
	mu       sync.Mutex
	waiters  map[string][]*WaitRequest // gameID → waiting clients
	timeout  time.Duration
	shutdown chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// WaitRequest represents a single client waiting for game updates.
// Notify is closed exactly once, on change, timeout, removal or shutdown.
type WaitRequest struct {
	GameID    string
	MoveCount int // Last known move count
	Notify    chan struct{}
	timer     *time.Timer
	once      sync.Once
}

func (r *WaitRequest) fire() {
	r.once.Do(func() {
		if r.timer != nil {
			r.timer.Stop()
		}
		close(r.Notify)
	})
}

func NewWaitRegistry(timeout time.Duration) *WaitRegistry {
	if timeout <= 0 {
		timeout = WaitTimeout
	}
	return &WaitRegistry{
		waiters:  make(map[string][]*WaitRequest),
		timeout:  timeout,
		shutdown: make(chan struct{}),
	}
}

// RegisterWait registers a client to wait for game state changes
func (w *WaitRegistry) RegisterWait(gameID string, moveCount int, ctx context.Context) <-chan struct{} {
	req := &WaitRequest{
		GameID:    gameID,
		MoveCount: moveCount,
		Notify:    make(chan struct{}),
	}

	select {
	case <-w.shutdown:
		req.fire()
		return req.Notify
	default:
	}

	w.mu.Lock()
	req.timer = time.AfterFunc(w.timeout, func() {
		w.removeWaiter(req)
		req.fire()
	})
	w.waiters[gameID] = append(w.waiters[gameID], req)
	w.mu.Unlock()

	// Cleanup on client disconnect or shutdown. Reading a closed Notify
	// does not consume anything the client is waiting for.
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		select {
		case <-ctx.Done():
		case <-req.Notify:
		case <-w.shutdown:
		}
		w.removeWaiter(req)
		req.fire()
	}()

	return req.Notify
}

// NotifyGame wakes waiters whose known move count differs from the current one
func (w *WaitRegistry) NotifyGame(gameID string, currentMoveCount int) {
	w.mu.Lock()
	var fired []*WaitRequest
	kept := w.waiters[gameID][:0]
	for _, req := range w.waiters[gameID] {
		if req.MoveCount != currentMoveCount {
			fired = append(fired, req)
		} else {
			kept = append(kept, req)
		}
	}
	w.setWaiters(gameID, kept)
	w.mu.Unlock()

	for _, req := range fired {
		req.fire()
	}
}

// NotifyState wakes every waiter on a game, for changes that keep the move count
func (w *WaitRegistry) NotifyState(gameID string) {
	w.RemoveGame(gameID)
}

// RemoveGame removes all waiters for a game (called before game deletion)
func (w *WaitRegistry) RemoveGame(gameID string) {
	w.mu.Lock()
	waitList := w.waiters[gameID]
	delete(w.waiters, gameID)
	w.mu.Unlock()

	for _, req := range waitList {
		req.fire()
	}
}

// Count returns the number of registered waiters
func (w *WaitRegistry) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, list := range w.waiters {
		n += len(list)
	}
	return n
}

// Shutdown releases all waiters and waits for their goroutines
func (w *WaitRegistry) Shutdown(timeout time.Duration) error {
	w.stopOnce.Do(func() { close(w.shutdown) })

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("wait registry shutdown timed out after %s", timeout)
	}
}

// removeWaiter removes a specific waiter from the registry
func (w *WaitRegistry) removeWaiter(req *WaitRequest) {
	w.mu.Lock()
	defer w.mu.Unlock()

	waitList := w.waiters[req.GameID]
	for i, waiter := range waitList {
		if waiter == req {
			waitList = append(waitList[:i], waitList[i+1:]...)
			break
		}
	}
	w.setWaiters(req.GameID, waitList)
}

func (w *WaitRegistry) setWaiters(gameID string, list []*WaitRequest) {
	if len(list) == 0 {
		delete(w.waiters, gameID)
		return
	}
	w.waiters[gameID] = list
}
