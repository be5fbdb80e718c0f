package xmsg

// deliver runs every listener resolved for m in order. Failures are isolated per
// listener: they are counted, logged and re-published as system.error, and the next
// listener still runs.
func (b *Bus) deliver(m *Message, listeners []*listener) {
	start := b.clock.Now()
	ran := 0
	for _, l := range listeners {
		if l.removed.Load() {
			continue
		}
		if l.once && l.fired.Swap(true) {
			continue
		}

		err := l.handler(b.baseCtx, m)
		ran++
		if err != nil {
			// a failed once listener stays armed for the next match
			if l.once {
				l.fired.Store(false)
			}
			b.handlerFailed(m, l, err)
			continue
		}
		if l.once {
			b.removeListener(l)
		}
	}

	b.mu.Lock()
	b.counters.delivered++
	b.markDirty()
	b.mu.Unlock()

	b.notify(Event{
		Type:      EventDeliver,
		EventName: m.Event,
		MessageID: m.ID,
		RequestID: m.RequestID,
		Priority:  m.Priority,
		Listeners: ran,
		Duration:  b.clock.Since(start),
	})
}

func (b *Bus) handlerFailed(m *Message, l *listener, err error) {
	herr := &HandlerError{
		Event:     m.Event,
		MessageID: m.ID,
		Pattern:   l.pattern.raw,
		Owner:     l.owner,
		Err:       err,
	}

	b.mu.Lock()
	b.counters.errors++
	b.markDirty()
	b.mu.Unlock()

	if b.logging {
		b.logger.Error().Err(err).
			Str("event", m.Event).
			Str("pattern", herr.Pattern).
			Str("owner", herr.Owner).
			Msg("xmsg: listener failed")
	}
	b.notify(Event{
		Type:      EventHandlerError,
		EventName: m.Event,
		MessageID: m.ID,
		RequestID: m.RequestID,
		Pattern:   herr.Pattern,
		Err:       herr,
	})

	// A failing system.error listener is counted but never re-published.
	if m.Event == SystemErrorEvent {
		return
	}
	_ = b.dispatch(b.newMessage(SystemErrorEvent, herr, emitConfig{priority: PriorityHigh}))
}
