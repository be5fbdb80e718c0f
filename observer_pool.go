package xmsg

import (
	"context"
	"sync"
	"sync/atomic"
)

// ObserverPool dispatches lifecycle events to observers off the delivery path.
// Notify never blocks: when the buffer is full the event is dropped and counted.
type ObserverPool struct {
	eventCh   chan *Event
	workers   int
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    atomic.Bool
	dropped   atomic.Uint64
	processed atomic.Uint64
	panics    atomic.Uint64
}

// NewObserverPool creates a pool for async observer notification.
// workers defaults to 2 and bufferSize to 1024 when not positive.
func NewObserverPool(workers, bufferSize int) *ObserverPool {
	if workers < 1 {
		workers = 2
	}
	if bufferSize < 1 {
		bufferSize = 1024
	}

	ctx, cancel := context.WithCancel(context.Background())
	op := &ObserverPool{
		eventCh: make(chan *Event, bufferSize),
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := 0; i < workers; i++ {
		op.wg.Add(1)
		go op.worker()
	}

	return op
}

// Notify queues e for the given observers.
func (op *ObserverPool) Notify(e Event, observers []Observer) {
	if len(observers) == 0 || op.closed.Load() {
		return
	}

	e.observers = observers

	select {
	case op.eventCh <- &e:
	default:
		op.dropped.Add(1)
	}
}

func (op *ObserverPool) worker() {
	defer op.wg.Done()
	for {
		select {
		case <-op.ctx.Done():
			// drain what is already buffered
			for {
				select {
				case e := <-op.eventCh:
					if e != nil {
						op.dispatch(e)
					}
				default:
					return
				}
			}
		case e := <-op.eventCh:
			if e != nil {
				op.dispatch(e)
			}
		}
	}
}

func (op *ObserverPool) dispatch(e *Event) {
	for _, obs := range e.observers {
		if obs == nil {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					op.panics.Add(1)
				}
			}()
			obs.OnEvent(*e)
		}()
	}
	op.processed.Add(1)
}

// Close stops the workers after they drained the buffer, or when ctx ends first.
func (op *ObserverPool) Close(ctx context.Context) error {
	if op.closed.Swap(true) {
		return nil
	}

	op.cancel()

	done := make(chan struct{})
	go func() {
		op.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ErrObserverPoolShutdownTimeout
	}
}

// Stats returns current pool statistics.
func (op *ObserverPool) Stats() PoolStats {
	return PoolStats{
		Dropped:      op.dropped.Load(),
		Processed:    op.processed.Load(),
		ActiveEvents: len(op.eventCh),
		Workers:      op.workers,
		BufferSize:   cap(op.eventCh),
	}
}
