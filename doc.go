// Package xmsg is an in-process publish/subscribe message bus for modular applications.
//
// Listeners subscribe to dot-segmented patterns where "*" matches exactly one segment
// ("app.*.*.created"). Messages are delivered either synchronously in the emitting
// goroutine or through a three-tier priority queue drained by a single background loop
// with adaptive batching and backpressure. Request/Reply correlates a message with a
// Future that completes once, by reply, timeout or Destroy.
//
//	bus, destroy, err := xmsg.New(func(b *xmsg.BusBuilder) {
//		b.WithLogger(logger)
//	})
//	defer destroy()
//
//	bus.On("app.*.*.created", func(ctx context.Context, msg *xmsg.Message) error {
//		return nil
//	})
//	_ = bus.Emit("app.geometry.box.created", box, xmsg.WithPriority(xmsg.PriorityHigh))
package xmsg
