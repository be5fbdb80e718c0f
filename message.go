package xmsg

import (
	"time"
)

// Message is the envelope delivered to listeners.
type Message struct {
	// ID is unique for the lifetime of the bus.
	ID string
	// Event is the dot-segmented event name the message was emitted under.
	Event string
	// Data is the payload as given to Emit; it is never re-encoded for delivery.
	Data any
	// Timestamp is the creation time (from the injected clock).
	Timestamp time.Time
	// Priority orders queued delivery.
	Priority Priority
	// RequestID is set when the message was emitted by Request; pass it to Reply.
	RequestID string
	// Source is the emitting module when sent through a ModuleAPI.
	Source string
}

// IsRequest reports whether the sender is waiting for a Reply.
func (m *Message) IsRequest() bool { return m.RequestID != "" }
