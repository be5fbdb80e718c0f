package xmsg

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Validation errors of the "type" family: the argument has the wrong shape.
var (
	ErrInvalidName       = errors.New("xmsg: name must be a non-empty string")
	ErrNilHandler        = errors.New("xmsg: handler must not be nil")
	ErrInvalidBus        = errors.New("xmsg: bus must implement the message bus API")
	ErrInvalidModuleName = errors.New("xmsg: module name must be a non-empty string")
)

// Validation errors of the "range" family: the argument is well formed but out of bounds.
var (
	ErrNameTooLong  = fmt.Errorf("xmsg: name exceeds %d characters", MaxNameLength)
	ErrDataTooLarge = errors.New("xmsg: payload too large")
)

// Capacity, lifecycle and delivery errors.
var (
	ErrMaxPendingRequests = errors.New("xmsg: Maximum pending requests reached")
	ErrRequestTimeout     = errors.New("xmsg: Request timeout")
	ErrRequestFailed      = errors.New("xmsg: request failed")
	ErrBusDestroyed       = errors.New("xmsg: Message bus destroyed")
	ErrMessageDropped     = errors.New("xmsg: message dropped by backpressure")
	ErrHandlerPanic       = errors.New("xmsg: handler panic")
	ErrInvalidOptions     = errors.New("xmsg: invalid options")
	ErrUnknownCodec       = errors.New("xmsg: codec not registered")

	ErrObserverPoolShutdownTimeout = errors.New("xmsg: observer pool shutdown timeout")
)

// IsTypeError reports whether err is a malformed-argument validation error.
func IsTypeError(err error) bool {
	return errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrNilHandler) ||
		errors.Is(err, ErrInvalidBus) ||
		errors.Is(err, ErrInvalidModuleName)
}

// IsRangeError reports whether err is an out-of-bounds validation error.
func IsRangeError(err error) bool {
	return errors.Is(err, ErrNameTooLong) || errors.Is(err, ErrDataTooLarge)
}

func dataTooLarge(size, max int) error {
	return fmt.Errorf("xmsg: Data size %d bytes (%s) exceeds maximum %d bytes: %w",
		size, humanize.Bytes(uint64(size)), max, ErrDataTooLarge)
}

func maxPending(limit int) error {
	return fmt.Errorf("%w (%d)", ErrMaxPendingRequests, limit)
}

func requestTimeout(event string, after time.Duration) error {
	return fmt.Errorf("%w after %s waiting for %q", ErrRequestTimeout, after, event)
}

// HandlerError describes a listener failure. It is the payload of system.error messages.
type HandlerError struct {
	Event     string
	MessageID string
	Pattern   string
	Owner     string
	Err       error
}

func (e *HandlerError) Error() string {
	return "xmsg: handler for " + e.Pattern + " failed on " + e.Event + ": " + e.Err.Error()
}

func (e *HandlerError) Unwrap() error { return e.Err }
