package xmsg

import (
	"github.com/trickstertwo/xlog"
)

// Observer receives bus lifecycle events. Implementations should be non-blocking.
type Observer interface {
	OnEvent(e Event)
}

// ObserverFunc is an Adapter that lets a plain function satisfy Observer.
type ObserverFunc func(e Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// LoggingObserver is an Adapter that writes lifecycle events to xlog at debug level.
// Warnings the bus raises itself (duplicates, large payloads, handler failures) are
// logged directly and not repeated here.
type LoggingObserver struct {
	Logger *xlog.Logger
}

func (o LoggingObserver) OnEvent(e Event) {
	if o.Logger == nil {
		return
	}
	ev := o.Logger.With(
		xlog.Str("type", string(e.Type)),
		xlog.Str("event", e.EventName),
		xlog.Str("message_id", e.MessageID),
	)
	if e.RequestID != "" {
		ev = ev.With(xlog.Str("request_id", e.RequestID))
	}
	if e.Duration > 0 {
		ev = ev.With(xlog.Dur("duration", e.Duration))
	}
	switch e.Type {
	case EventDrop, EventTimeout:
		ev.Info().Str("priority", e.Priority.String()).Msg("xmsg event")
	default:
		ev.Debug().Msg("xmsg event")
	}
}
