package xmsg

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverPool_Dispatch(t *testing.T) {
	pool := NewObserverPool(2, 16)
	var seen atomic.Int32
	obs := ObserverFunc(func(e Event) { seen.Add(1) })

	for i := 0; i < 10; i++ {
		pool.Notify(Event{Type: EventEmit}, []Observer{obs})
	}
	require.NoError(t, pool.Close(context.Background()))

	assert.Equal(t, int32(10), seen.Load(), "buffered events drain on close")
	assert.Equal(t, uint64(10), pool.Stats().Processed)

	pool.Notify(Event{Type: EventEmit}, []Observer{obs})
	assert.Equal(t, int32(10), seen.Load(), "closed pool ignores events")
}

func TestObserverPool_DropsWhenFull(t *testing.T) {
	pool := NewObserverPool(1, 1)
	block := make(chan struct{})
	obs := ObserverFunc(func(e Event) { <-block })

	for i := 0; i < 10; i++ {
		pool.Notify(Event{Type: EventEmit}, []Observer{obs})
	}
	assert.Eventually(t, func() bool { return pool.Stats().Dropped > 0 }, time.Second, time.Millisecond)

	close(block)
	require.NoError(t, pool.Close(context.Background()))
}

func TestObserverPool_RecoversPanics(t *testing.T) {
	pool := NewObserverPool(1, 4)
	var after atomic.Bool
	bad := ObserverFunc(func(e Event) { panic("observer bug") })
	good := ObserverFunc(func(e Event) { after.Store(true) })

	pool.Notify(Event{Type: EventEmit}, []Observer{bad, good})
	require.NoError(t, pool.Close(context.Background()))
	assert.True(t, after.Load())
}

func TestObserverPool_CloseTimeout(t *testing.T) {
	pool := NewObserverPool(1, 4)
	block := make(chan struct{})
	defer close(block)
	pool.Notify(Event{Type: EventEmit}, []Observer{ObserverFunc(func(e Event) { <-block })})
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Close(ctx), ErrObserverPoolShutdownTimeout)
}

func TestObserverPool_Defaults(t *testing.T) {
	pool := NewObserverPool(0, 0)
	defer pool.Close(context.Background())
	st := pool.Stats()
	assert.Equal(t, 2, st.Workers)
	assert.Equal(t, 1024, st.BufferSize)
}
