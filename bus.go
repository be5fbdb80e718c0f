package xmsg

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
	"go.uber.org/multierr"
)

// SystemErrorEvent is emitted with a *HandlerError payload whenever a listener fails.
const SystemErrorEvent = "system.error"

// Bus is an in-process publish/subscribe message bus.
//
// One mutex serializes all shared state: the registry, the queue, pending requests and
// counters. Listeners always run outside of it, so they may call back into the bus.
type Bus struct {
	opts        Options
	codec       Codec
	clock       xclock.Clock
	sched       clock.Clock
	logger      *xlog.Logger
	logging     bool
	middlewares []Middleware

	mu         sync.Mutex
	registry   *registry
	queue      priorityQueue
	bp         backpressure
	sizer      batchSizer
	pending    map[string]*pendingRequest
	counters   counters
	startedAt  time.Time
	statsDirty bool
	statsAt    time.Time
	snapshot   *Stats

	observerPool *ObserverPool
	observersMu  sync.RWMutex
	observers    []Observer

	baseCtx     context.Context
	cancel      context.CancelFunc
	wake        chan struct{}
	done        chan struct{}
	destroyed   atomic.Bool
	destroyOnce sync.Once
}

// On registers h for every event matching pattern. With duplicate checking enabled a
// second registration of the same (pattern, handler) returns the existing subscription.
func (b *Bus) On(pattern string, h Handler, opts ...ListenOption) (Subscription, error) {
	return b.listen(pattern, h, false, opts)
}

// Once registers h to run until it first handles a matching event without error.
func (b *Bus) Once(pattern string, h Handler, opts ...ListenOption) (Subscription, error) {
	return b.listen(pattern, h, true, opts)
}

func (b *Bus) listen(pat string, h Handler, once bool, opts []ListenOption) (Subscription, error) {
	if err := validateName(pat); err != nil {
		return nil, err
	}
	if h == nil {
		return nil, ErrNilHandler
	}
	cfg := listenConfig{priority: PriorityNormal}
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	if !cfg.priority.valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOptions, cfg.priority)
	}

	key := handlerKey(h)
	wrapped := RecoveryMiddleware()(Chain(Chain(h, cfg.middlewares...), b.middlewares...))

	b.mu.Lock()
	if b.destroyed.Load() {
		b.mu.Unlock()
		return nil, ErrBusDestroyed
	}
	if b.opts.EnableDuplicateHandlerCheck {
		if existing := b.registry.find(pat, key); existing != nil {
			b.mu.Unlock()
			if b.logging {
				b.logger.Warn().Str("pattern", pat).Str("owner", cfg.owner).
					Msg("xmsg: Handler already registered for pattern " + pat)
			}
			b.notify(Event{Type: EventDuplicateHandler, Pattern: pat})
			return existing, nil
		}
	}
	l := &listener{
		pattern:  compilePattern(pat),
		handler:  wrapped,
		key:      key,
		priority: cfg.priority,
		owner:    cfg.owner,
		once:     once,
		bus:      b,
	}
	b.registry.add(l)
	b.markDirty()
	b.mu.Unlock()
	return l, nil
}

// Off removes the earliest registration of h under pattern.
func (b *Bus) Off(pattern string, h Handler) bool {
	if h == nil {
		return false
	}
	key := handlerKey(h)

	b.mu.Lock()
	defer b.mu.Unlock()
	l := b.registry.find(pattern, key)
	if l == nil {
		return false
	}
	b.registry.remove(l)
	b.markDirty()
	return true
}

func (b *Bus) removeListener(l *listener) {
	b.mu.Lock()
	if b.registry.remove(l) {
		b.markDirty()
	}
	b.mu.Unlock()
}

// Emit validates and publishes a message. In immediate mode listeners have run when it
// returns; in queued mode the message is queued or shed with ErrMessageDropped.
func (b *Bus) Emit(event string, data any, opts ...EmitOption) error {
	m, large, err := b.prepare(event, data, emitOptions(opts))
	if err != nil {
		return err
	}
	if large > 0 {
		b.largeMessage(event, large)
	}
	return b.dispatch(m)
}

func emitOptions(opts []EmitOption) emitConfig {
	cfg := emitConfig{priority: PriorityNormal}
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return cfg
}

// prepare runs the guard and builds the message. large is the encoded size when the
// payload crossed WarnDataSize, zero otherwise.
func (b *Bus) prepare(event string, data any, cfg emitConfig) (m *Message, large int, err error) {
	if b.destroyed.Load() {
		return nil, 0, ErrBusDestroyed
	}
	if err := validateName(event); err != nil {
		return nil, 0, err
	}
	if !cfg.priority.valid() {
		return nil, 0, fmt.Errorf("%w: %s", ErrInvalidOptions, cfg.priority)
	}

	size, err := payloadSize(b.codec, data)
	if err != nil {
		return nil, 0, err
	}
	warn, err := checkSize(size, b.opts.WarnDataSize, b.opts.MaxDataSize)
	if err != nil {
		return nil, 0, err
	}
	if warn {
		large = size
	}
	return b.newMessage(event, data, cfg), large, nil
}

func (b *Bus) newMessage(event string, data any, cfg emitConfig) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Event:     event,
		Data:      data,
		Timestamp: b.clock.Now(),
		Priority:  cfg.priority,
		Source:    cfg.source,
	}
}

func (b *Bus) largeMessage(event string, size int) {
	b.mu.Lock()
	b.counters.largeWarnings++
	b.markDirty()
	b.mu.Unlock()

	if b.logging {
		b.logger.Warn().Str("event", event).Str("size", humanize.Bytes(uint64(size))).
			Msg("xmsg: Large message warning for " + event)
	}
	b.notify(Event{Type: EventLargeMessage, EventName: event, Size: size})
}

// dispatch admits m and either delivers it now or queues it for the drain loop.
func (b *Bus) dispatch(m *Message) error {
	b.mu.Lock()
	if b.destroyed.Load() {
		b.mu.Unlock()
		return ErrBusDestroyed
	}

	if !b.opts.EnablePriorityQueue {
		b.counters.sent++
		listeners := b.registry.resolve(m.Event)
		b.markDirty()
		b.mu.Unlock()

		b.notify(Event{Type: EventEmit, EventName: m.Event, MessageID: m.ID, RequestID: m.RequestID, Priority: m.Priority})
		b.deliver(m, listeners)
		return nil
	}

	if !b.bp.admit(m.Priority, b.queue.len()) {
		b.counters.dropped++
		b.markDirty()
		b.mu.Unlock()

		b.notify(Event{Type: EventDrop, EventName: m.Event, MessageID: m.ID, RequestID: m.RequestID, Priority: m.Priority})
		return ErrMessageDropped
	}
	b.counters.sent++
	b.queue.push(m)
	b.markDirty()
	b.mu.Unlock()

	b.notify(Event{Type: EventEmit, EventName: m.Event, MessageID: m.ID, RequestID: m.RequestID, Priority: m.Priority})
	select {
	case b.wake <- struct{}{}:
	default:
	}
	return nil
}

// ListenerCount returns the number of live registrations.
func (b *Bus) ListenerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.registry.len()
}

// PendingCount returns the number of requests awaiting a reply.
func (b *Bus) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// QueueLen returns the number of messages waiting in queued mode.
func (b *Bus) QueueLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.len()
}

// PatternCacheLen returns the number of cached event resolutions.
func (b *Bus) PatternCacheLen() int {
	return b.registry.cache.Len()
}

// Options returns the configuration the bus was built with.
func (b *Bus) Options() Options { return b.opts }

// Codec returns the configured codec (Strategy).
func (b *Bus) Codec() Codec { return b.codec }

// Destroy stops delivery, rejects pending requests with ErrBusDestroyed and clears all
// state. Later calls return nil. ctx bounds the observer pool shutdown.
func (b *Bus) Destroy(ctx context.Context) error {
	var err error
	b.destroyOnce.Do(func() {
		b.mu.Lock()
		b.destroyed.Store(true)
		pending := b.pending
		b.pending = make(map[string]*pendingRequest)
		for _, p := range pending {
			p.timer.Stop()
		}
		b.registry.clear()
		b.queue.clear()
		b.markDirty()
		b.mu.Unlock()

		close(b.done)
		b.cancel()

		for _, p := range pending {
			p.future.complete(nil, ErrBusDestroyed)
		}

		b.notify(Event{Type: EventDestroy})
		if b.observerPool != nil {
			if perr := b.observerPool.Close(ctx); perr != nil {
				if b.logging {
					b.logger.Warn().Err(perr).Msg("xmsg: observer pool shutdown timeout")
				}
				err = multierr.Append(err, perr)
			}
		}

		b.observersMu.RLock()
		observers := append([]Observer(nil), b.observers...)
		b.observersMu.RUnlock()
		for _, o := range observers {
			if c, ok := o.(io.Closer); ok {
				err = multierr.Append(err, c.Close())
			}
		}
	})
	return err
}

// Destroyed reports whether Destroy has been called.
func (b *Bus) Destroyed() bool { return b.destroyed.Load() }

// AddObserver registers an observer (thread-safe).
func (b *Bus) AddObserver(obs Observer) {
	if obs == nil {
		return
	}
	b.observersMu.Lock()
	b.observers = append(b.observers, obs)
	b.observersMu.Unlock()
}

// RemoveObserver removes an observer.
func (b *Bus) RemoveObserver(obs Observer) {
	if obs == nil {
		return
	}
	b.observersMu.Lock()
	defer b.observersMu.Unlock()

	for i, o := range b.observers {
		if o == obs {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			break
		}
	}
}

// notify hands e to the observer pool without blocking.
func (b *Bus) notify(e Event) {
	if b.observerPool == nil {
		return
	}

	b.observersMu.RLock()
	if len(b.observers) == 0 {
		b.observersMu.RUnlock()
		return
	}
	observers := make([]Observer, len(b.observers))
	copy(observers, b.observers)
	b.observersMu.RUnlock()

	b.observerPool.Notify(e, observers)
}

// markDirty invalidates the stats snapshot. Callers hold b.mu.
func (b *Bus) markDirty() { b.statsDirty = true }
