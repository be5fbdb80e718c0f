package xmsg

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// BusBuilder constructs Bus instances (Builder pattern).
type BusBuilder struct {
	opts    Options
	optsSet bool

	codecName string
	codecInst Codec

	middlewares []Middleware
	observers   []Observer
	logger      *xlog.Logger
	clock       xclock.Clock
	sched       clock.Clock
}

// NewBusBuilder returns a new builder starting from DefaultOptions.
func NewBusBuilder() *BusBuilder {
	return &BusBuilder{
		opts:      DefaultOptions(),
		codecName: "json",
	}
}

// WithOptions replaces the whole option set. Build validates it.
func (bb *BusBuilder) WithOptions(o Options) *BusBuilder {
	bb.opts = o
	bb.optsSet = true
	return bb
}

// Configure edits the current options in place.
func (bb *BusBuilder) Configure(fn func(o *Options)) *BusBuilder {
	if fn != nil {
		fn(&bb.opts)
	}
	return bb
}

func (bb *BusBuilder) WithCodec(name string) *BusBuilder {
	bb.codecName = name
	return bb
}

// WithCodecInstance accepts a ready Codec instance.
func (bb *BusBuilder) WithCodecInstance(c Codec) *BusBuilder {
	bb.codecInst = c
	return bb
}

// WithMiddleware adds bus-wide middlewares, applied around every listener.
func (bb *BusBuilder) WithMiddleware(mw ...Middleware) *BusBuilder {
	if len(mw) == 0 {
		return bb
	}
	bb.middlewares = append(bb.middlewares, mw...)
	return bb
}

func (bb *BusBuilder) WithObserver(obs ...Observer) *BusBuilder {
	for _, o := range obs {
		if o != nil {
			bb.observers = append(bb.observers, o)
		}
	}
	return bb
}

func (bb *BusBuilder) WithLogger(l *xlog.Logger) *BusBuilder {
	bb.logger = l
	return bb
}

// WithClock sets the clock used for timestamps, uptime and tick budgets.
func (bb *BusBuilder) WithClock(c xclock.Clock) *BusBuilder {
	bb.clock = c
	return bb
}

// WithScheduler sets the clock that drives request timeouts and the drain delay.
// Tests pass clock.NewMock().
func (bb *BusBuilder) WithScheduler(c clock.Clock) *BusBuilder {
	bb.sched = c
	return bb
}

func (bb *BusBuilder) Build() (*Bus, error) {
	if err := bb.opts.Validate(); err != nil {
		return nil, err
	}

	var cd Codec
	if bb.codecInst != nil {
		cd = bb.codecInst
	} else {
		var err error
		cd, err = NewCodec(bb.codecName)
		if err != nil {
			return nil, err
		}
	}

	reg, err := newRegistry(bb.opts.PatternCacheSize)
	if err != nil {
		return nil, err
	}

	clk := bb.clock
	if clk == nil {
		clk = xclock.Default()
	}
	sched := bb.sched
	if sched == nil {
		sched = clock.New()
	}
	lg := bb.logger
	if lg == nil {
		lg = xlog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		opts:         bb.opts,
		codec:        cd,
		clock:        clk,
		sched:        sched,
		logger:       lg,
		logging:      bb.opts.EnableLogging && lg != nil,
		middlewares:  bb.middlewares,
		registry:     reg,
		bp:           newBackpressure(bb.opts),
		sizer:        newBatchSizer(bb.opts),
		pending:      make(map[string]*pendingRequest),
		startedAt:    clk.Now(),
		statsDirty:   true,
		observerPool: NewObserverPool(bb.opts.ObserverWorkers, bb.opts.ObserverBuffer),
		baseCtx:      InjectAll(ctx, cd, lg, clk),
		cancel:       cancel,
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
	}

	// Lifecycle tracing goes to the logger in development; production keeps only the
	// warnings the bus logs itself.
	if b.logging && !bb.opts.ProductionMode && !hasLoggingObserver(bb.observers) {
		b.AddObserver(LoggingObserver{Logger: lg})
	}
	for _, o := range bb.observers {
		b.AddObserver(o)
	}

	if bb.opts.EnablePriorityQueue {
		go b.run()
	}
	return b, nil
}

func hasLoggingObserver(observers []Observer) bool {
	for _, o := range observers {
		if _, ok := o.(LoggingObserver); ok {
			return true
		}
	}
	return false
}

// New constructs a Bus via Builder and returns a destroy func for convenience.
func New(init func(b *BusBuilder)) (*Bus, func() error, error) {
	b := NewBusBuilder()
	if init != nil {
		init(b)
	}
	bus, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	destroyFn := func() error { return bus.Destroy(context.Background()) }
	return bus, destroyFn, nil
}

// NewWithOptions builds a bus from o with every other setting at its default.
func NewWithOptions(o Options) (*Bus, error) {
	return NewBusBuilder().WithOptions(o).Build()
}
