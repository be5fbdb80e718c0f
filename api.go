package xmsg

import (
	"context"
	"time"
)

// Handler processes a single message. A returned error (or a panic) is counted,
// logged and re-published as a system.error message; it never reaches the emitter.
type Handler func(ctx context.Context, msg *Message) error

// Middleware composes processing concerns around a Handler.
type Middleware func(next Handler) Handler

// Subscription represents an active listener registration that can be closed.
type Subscription interface {
	Pattern() string
	Close() error
}

// HealthChecker provides health status for production monitoring.
type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}

// API represents the complete xmsg surface; ModuleAPI and adapters depend on it.
type API interface {
	On(pattern string, h Handler, opts ...ListenOption) (Subscription, error)
	Once(pattern string, h Handler, opts ...ListenOption) (Subscription, error)
	Off(pattern string, h Handler) bool
	Emit(event string, data any, opts ...EmitOption) error
	Request(event string, data any, opts ...EmitOption) (*Future, error)
	Call(ctx context.Context, event string, data any, timeout time.Duration) (any, error)
	Reply(requestID string, resp Response) bool
	GetStats() Stats
	Health(ctx context.Context) HealthStatus
	Destroy(ctx context.Context) error
	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
}

var _ API = (*Bus)(nil)
var _ HealthChecker = (*Bus)(nil)

// ListenOption configures a listener registration.
type ListenOption func(*listenConfig)

type listenConfig struct {
	priority    Priority
	owner       string
	middlewares []Middleware
}

// ListenPriority sets the listener's execution tier (default PriorityNormal).
func ListenPriority(p Priority) ListenOption {
	return func(c *listenConfig) { c.priority = p }
}

// OwnedBy labels the listener with the module that registered it.
func OwnedBy(module string) ListenOption {
	return func(c *listenConfig) { c.owner = module }
}

// WithHandlerMiddleware wraps only this listener, inside the bus-wide middlewares.
func WithHandlerMiddleware(mw ...Middleware) ListenOption {
	return func(c *listenConfig) { c.middlewares = append(c.middlewares, mw...) }
}

// EmitOption configures a single Emit or Request.
type EmitOption func(*emitConfig)

type emitConfig struct {
	priority Priority
	source   string
	timeout  time.Duration
}

// WithPriority sets the message priority (default PriorityNormal).
func WithPriority(p Priority) EmitOption {
	return func(c *emitConfig) { c.priority = p }
}

// FromModule stamps the emitting module onto Message.Source.
func FromModule(module string) EmitOption {
	return func(c *emitConfig) { c.source = module }
}

// WithTimeout sets the request timeout; it is capped by Options.MaxTimeout.
// Emit ignores it.
func WithTimeout(d time.Duration) EmitOption {
	return func(c *emitConfig) { c.timeout = d }
}
