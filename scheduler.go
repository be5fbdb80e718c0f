package xmsg

// batchSizer adapts the number of messages drained per tick to queue pressure.
// It shrinks by a quarter at or above the threshold and grows back by a tenth of the
// configured size once pressure falls under half the threshold.
type batchSizer struct {
	max       int
	min       int
	current   int
	threshold float64
}

func newBatchSizer(o Options) batchSizer {
	return batchSizer{
		max:       o.BatchSize,
		min:       max(1, o.MinBatchSize),
		current:   o.BatchSize,
		threshold: o.BackpressureThreshold,
	}
}

func (s *batchSizer) next(pressure float64) int {
	switch {
	case pressure >= s.threshold:
		s.current = max(s.min, s.current*3/4)
	case pressure < s.threshold/2:
		s.current = min(s.max, s.current+max(1, s.max/10))
	}
	return s.current
}

// run is the single drain loop of queued mode. It sleeps until an emit wakes it, then
// processes ticks, each preceded by QueueProcessingDelay, until the queue is empty.
func (b *Bus) run() {
	for {
		select {
		case <-b.done:
			return
		case <-b.wake:
		}
		for {
			if !b.pause() {
				return
			}
			if !b.tick() {
				break
			}
		}
	}
}

// pause waits QueueProcessingDelay on the scheduler clock. It returns false once the bus
// is destroyed.
func (b *Bus) pause() bool {
	d := b.opts.QueueProcessingDelay
	if d <= 0 {
		select {
		case <-b.done:
			return false
		default:
			return true
		}
	}
	t := b.sched.Timer(d)
	defer t.Stop()
	select {
	case <-b.done:
		return false
	case <-t.C:
		return true
	}
}

// tick delivers up to one batch, stopping early when MaxProcessingTime is spent.
// It reports whether messages remain.
func (b *Bus) tick() bool {
	b.mu.Lock()
	if b.destroyed.Load() {
		b.mu.Unlock()
		return false
	}
	n := b.sizer.next(b.bp.pressure(b.queue.len()))
	b.markDirty()
	b.mu.Unlock()

	start := b.clock.Now()
	for i := 0; i < n; i++ {
		b.mu.Lock()
		if b.destroyed.Load() {
			b.mu.Unlock()
			return false
		}
		m := b.queue.pop()
		if m == nil {
			b.mu.Unlock()
			return false
		}
		listeners := b.registry.resolve(m.Event)
		b.markDirty()
		b.mu.Unlock()

		b.deliver(m, listeners)
		if b.opts.MaxProcessingTime > 0 && b.clock.Since(start) >= b.opts.MaxProcessingTime {
			break
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.destroyed.Load() && b.queue.len() > 0
}
