package xmsg

import (
	"context"
	"strings"
	"time"
)

// ModuleAPI is a bus view bound to one module label. Listeners registered through it are
// owned by the module and messages it emits carry the module as Source.
type ModuleAPI struct {
	bus    API
	module string
}

// NewModuleAPI binds bus to module.
func NewModuleAPI(bus API, module string) (*ModuleAPI, error) {
	if bus == nil {
		return nil, ErrInvalidBus
	}
	if b, ok := bus.(*Bus); ok && b == nil {
		return nil, ErrInvalidBus
	}
	if strings.TrimSpace(module) == "" {
		return nil, ErrInvalidModuleName
	}
	return &ModuleAPI{bus: bus, module: module}, nil
}

// Module returns the label this view is bound to.
func (m *ModuleAPI) Module() string { return m.module }

func (m *ModuleAPI) On(pattern string, h Handler, opts ...ListenOption) (Subscription, error) {
	return m.bus.On(pattern, h, append([]ListenOption{OwnedBy(m.module)}, opts...)...)
}

func (m *ModuleAPI) Once(pattern string, h Handler, opts ...ListenOption) (Subscription, error) {
	return m.bus.Once(pattern, h, append([]ListenOption{OwnedBy(m.module)}, opts...)...)
}

func (m *ModuleAPI) Off(pattern string, h Handler) bool { return m.bus.Off(pattern, h) }

func (m *ModuleAPI) Emit(event string, data any, opts ...EmitOption) error {
	return m.bus.Emit(event, data, append([]EmitOption{FromModule(m.module)}, opts...)...)
}

func (m *ModuleAPI) Request(event string, data any, opts ...EmitOption) (*Future, error) {
	return m.bus.Request(event, data, append([]EmitOption{FromModule(m.module)}, opts...)...)
}

func (m *ModuleAPI) Call(ctx context.Context, event string, data any, timeout time.Duration) (any, error) {
	f, err := m.Request(event, data, WithTimeout(timeout))
	if err != nil {
		return nil, err
	}
	return f.Await(ctx)
}

func (m *ModuleAPI) Reply(requestID string, resp Response) bool {
	return m.bus.Reply(requestID, resp)
}

func (m *ModuleAPI) GetStats() Stats { return m.bus.GetStats() }

func (m *ModuleAPI) Health(ctx context.Context) HealthStatus { return m.bus.Health(ctx) }
