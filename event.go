package xmsg

import (
	"time"
)

// EventType enumerates internal lifecycle events for Observer pattern.
type EventType string

const (
	EventEmit             EventType = "emit"
	EventDeliver          EventType = "deliver"
	EventDrop             EventType = "drop"
	EventHandlerError     EventType = "handler_error"
	EventDuplicateHandler EventType = "duplicate_handler"
	EventLargeMessage     EventType = "large_message"
	EventRequest          EventType = "request"
	EventReply            EventType = "reply"
	EventTimeout          EventType = "timeout"
	EventDestroy          EventType = "destroy"
)

// Event carries telemetry for observers.
type Event struct {
	Type      EventType
	EventName string
	MessageID string
	RequestID string
	Pattern   string
	Priority  Priority
	Size      int
	Listeners int
	Duration  time.Duration
	Err       error

	// Internal: attached for async dispatch
	observers []Observer
}
