// Package otelmetrics records bus lifecycle events as OpenTelemetry metrics.
package otelmetrics

import (
	"context"

	"github.com/trickstertwo/xmsg"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const scope = "github.com/trickstertwo/xmsg"

// Observer is an xmsg.Observer that feeds OTel instruments.
type Observer struct {
	emitted   metric.Int64Counter
	delivered metric.Int64Counter
	dropped   metric.Int64Counter
	errors    metric.Int64Counter
	requests  metric.Int64Counter
	timeouts  metric.Int64Counter
	large     metric.Int64Counter
	latency   metric.Float64Histogram
	replyTime metric.Float64Histogram
}

var _ xmsg.Observer = (*Observer)(nil)

// New creates the instruments on mp, or on the global provider when mp is nil.
func New(mp metric.MeterProvider) (*Observer, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(scope)

	var (
		o   Observer
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&o.emitted, "xmsg.messages.emitted", "Number of messages admitted by the bus"},
		{&o.delivered, "xmsg.messages.delivered", "Number of messages delivered to their listeners"},
		{&o.dropped, "xmsg.messages.dropped", "Number of messages shed by backpressure"},
		{&o.errors, "xmsg.handler.errors", "Number of failed listener invocations"},
		{&o.requests, "xmsg.requests", "Number of requests issued"},
		{&o.timeouts, "xmsg.requests.timeouts", "Number of requests that timed out"},
		{&o.large, "xmsg.messages.large", "Number of payloads above the warning size"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
	}

	o.latency, err = meter.Float64Histogram("xmsg.delivery.latency_ms",
		metric.WithDescription("Time spent running all listeners of a message"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	o.replyTime, err = meter.Float64Histogram("xmsg.request.reply_ms",
		metric.WithDescription("Time from request to reply"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (o *Observer) OnEvent(e xmsg.Event) {
	ctx := context.Background()
	switch e.Type {
	case xmsg.EventEmit:
		o.emitted.Add(ctx, 1, metric.WithAttributes(attribute.String("priority", e.Priority.String())))
	case xmsg.EventDeliver:
		o.delivered.Add(ctx, 1)
		o.latency.Record(ctx, float64(e.Duration.Microseconds())/1000)
	case xmsg.EventDrop:
		o.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("priority", e.Priority.String())))
	case xmsg.EventHandlerError:
		o.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("pattern", e.Pattern)))
	case xmsg.EventRequest:
		o.requests.Add(ctx, 1)
	case xmsg.EventReply:
		o.replyTime.Record(ctx, float64(e.Duration.Microseconds())/1000,
			metric.WithAttributes(attribute.Bool("success", e.Err == nil)))
	case xmsg.EventTimeout:
		o.timeouts.Add(ctx, 1)
	case xmsg.EventLargeMessage:
		o.large.Add(ctx, 1)
	}
}
