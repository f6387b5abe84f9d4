package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fired(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-time.After(time.Second):
		return false
	}
}

func pending(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return false
	case <-time.After(20 * time.Millisecond):
		return true
	}
}

func TestNotifyOnlyChangedCount(t *testing.T) {
	w := NewWaitRegistry(time.Minute)
	defer w.Shutdown(time.Second)

	stale := w.RegisterWait("g", 2, context.Background())
	current := w.RegisterWait("g", 3, context.Background())

	w.NotifyGame("g", 3)
	assert.True(t, fired(stale))
	assert.True(t, pending(current))
	assert.Equal(t, 1, w.Count())

	// A second notify must not panic on the already released waiter
	w.NotifyGame("g", 4)
	assert.True(t, fired(current))
	assert.Eventually(t, func() bool { return w.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestNotifyState(t *testing.T) {
	w := NewWaitRegistry(time.Minute)
	defer w.Shutdown(time.Second)

	ch := w.RegisterWait("g", 3, context.Background())
	w.NotifyState("g")
	assert.True(t, fired(ch))
}

func TestWaitTimeout(t *testing.T) {
	w := NewWaitRegistry(30 * time.Millisecond)
	defer w.Shutdown(time.Second)

	ch := w.RegisterWait("g", 0, context.Background())
	assert.True(t, fired(ch))
	assert.Eventually(t, func() bool { return w.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestClientDisconnect(t *testing.T) {
	w := NewWaitRegistry(time.Minute)
	defer w.Shutdown(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	ch := w.RegisterWait("g", 0, ctx)
	require.Equal(t, 1, w.Count())

	cancel()
	assert.True(t, fired(ch))
	assert.Eventually(t, func() bool { return w.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestRemoveGameAndShutdown(t *testing.T) {
	w := NewWaitRegistry(time.Minute)

	a := w.RegisterWait("a", 0, context.Background())
	b := w.RegisterWait("b", 0, context.Background())

	w.RemoveGame("a")
	assert.True(t, fired(a))
	assert.True(t, pending(b))

	require.NoError(t, w.Shutdown(time.Second))
	assert.True(t, fired(b))

	// Registering after shutdown returns a released channel
	assert.True(t, fired(w.RegisterWait("c", 0, context.Background())))
	assert.NoError(t, w.Shutdown(time.Second))
}
