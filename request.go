package xmsg

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// Future is the pending result of a Request. It completes exactly once: by Reply,
// by timeout, or by Destroy.
type Future struct {
	id     string
	event  string
	done   chan struct{}
	once   sync.Once
	result any
	err    error
}

func newFuture(id, event string) *Future {
	return &Future{id: id, event: event, done: make(chan struct{})}
}

// ID is the request id a responder passes to Reply.
func (f *Future) ID() string { return f.id }

// Done is closed when the future completes.
func (f *Future) Done() <-chan struct{} { return f.done }

// Await blocks until the future completes or ctx ends. Abandoning a future through
// ctx does not cancel the request; it still times out on the bus.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *Future) complete(v any, err error) {
	f.once.Do(func() {
		f.result = v
		f.err = err
		close(f.done)
	})
}

type pendingRequest struct {
	future    *Future
	event     string
	createdAt time.Time
	timeout   time.Duration
	timer     *clock.Timer
}

// effectiveTimeout picks the effective timeout: DefaultTimeout when unset, capped at
// MaxTimeout.
func (b *Bus) effectiveTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		d = b.opts.DefaultTimeout
	}
	if b.opts.MaxTimeout > 0 && d > b.opts.MaxTimeout {
		d = b.opts.MaxTimeout
	}
	return d
}

// Request emits event with a fresh request id and returns a Future that completes on
// Reply or fails with ErrRequestTimeout.
func (b *Bus) Request(event string, data any, opts ...EmitOption) (*Future, error) {
	cfg := emitOptions(opts)
	m, large, err := b.prepare(event, data, cfg)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	m.RequestID = id
	f := newFuture(id, event)
	timeout := b.effectiveTimeout(cfg.timeout)

	b.mu.Lock()
	if b.destroyed.Load() {
		b.mu.Unlock()
		return nil, ErrBusDestroyed
	}
	if len(b.pending) >= b.opts.MaxPendingRequests {
		b.mu.Unlock()
		return nil, maxPending(b.opts.MaxPendingRequests)
	}
	p := &pendingRequest{
		future:    f,
		event:     event,
		createdAt: b.clock.Now(),
		timeout:   timeout,
	}
	b.pending[id] = p
	b.counters.reqSent++
	if n := len(b.pending); n > b.counters.peakPending {
		b.counters.peakPending = n
	}
	b.markDirty()
	// The callback takes b.mu, so it cannot observe p before timer is assigned.
	p.timer = b.sched.AfterFunc(timeout, func() { b.expire(id) })
	b.mu.Unlock()

	// counted only once the request holds a pending slot
	if large > 0 {
		b.largeMessage(event, large)
	}
	b.notify(Event{Type: EventRequest, EventName: event, MessageID: m.ID, RequestID: id, Priority: m.Priority})

	if err := b.dispatch(m); err != nil {
		if b.take(id) != nil {
			b.mu.Lock()
			b.counters.reqFailed++
			b.markDirty()
			b.mu.Unlock()
		}
		f.complete(nil, err)
		return nil, err
	}
	return f, nil
}

// Call is Request followed by Await.
func (b *Bus) Call(ctx context.Context, event string, data any, timeout time.Duration) (any, error) {
	f, err := b.Request(event, data, WithTimeout(timeout))
	if err != nil {
		return nil, err
	}
	return f.Await(ctx)
}

// Reply completes the pending request id. It returns false when the request is unknown,
// already answered or timed out.
func (b *Bus) Reply(requestID string, resp Response) bool {
	if requestID == "" {
		return false
	}
	p := b.take(requestID)
	if p == nil {
		return false
	}

	b.mu.Lock()
	if resp.Success {
		b.counters.reqCompleted++
	} else {
		b.counters.reqFailed++
	}
	b.markDirty()
	b.mu.Unlock()

	b.notify(Event{
		Type:      EventReply,
		EventName: p.event,
		RequestID: requestID,
		Duration:  b.clock.Since(p.createdAt),
		Err:       resp.Error,
	})

	if resp.Success {
		p.future.complete(resp.Result, nil)
		return true
	}
	err := resp.Error
	if err == nil {
		err = ErrRequestFailed
	}
	p.future.complete(nil, err)
	return true
}

// take removes id from the pending table and stops its timer. The caller that gets a
// non-nil result owns completing the future.
func (b *Bus) take(id string) *pendingRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pending[id]
	if !ok {
		return nil
	}
	delete(b.pending, id)
	if p.timer != nil {
		p.timer.Stop()
	}
	b.markDirty()
	return p
}

func (b *Bus) expire(id string) {
	b.mu.Lock()
	p, ok := b.pending[id]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.pending, id)
	b.counters.reqTimedOut++
	b.markDirty()
	b.mu.Unlock()

	if b.logging {
		b.logger.Warn().Str("event", p.event).Str("request_id", id).Dur("timeout", p.timeout).
			Msg("xmsg: request timed out")
	}
	b.notify(Event{Type: EventTimeout, EventName: p.event, RequestID: id, Duration: p.timeout})
	p.future.complete(nil, requestTimeout(p.event, p.timeout))
}
