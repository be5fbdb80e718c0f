package otelmetrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trickstertwo/xmsg"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupReader(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	})
	return reader, provider
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumOf(t *testing.T, rm *metricdata.ResourceMetrics, name string) int64 {
	m := findMetric(rm, name)
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "Expected Sum type for %s", name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestObserver_RecordsEvents(t *testing.T) {
	reader, provider := setupReader(t)
	o, err := New(provider)
	require.NoError(t, err)

	o.OnEvent(xmsg.Event{Type: xmsg.EventEmit, Priority: xmsg.PriorityHigh})
	o.OnEvent(xmsg.Event{Type: xmsg.EventEmit, Priority: xmsg.PriorityLow})
	o.OnEvent(xmsg.Event{Type: xmsg.EventDeliver, Duration: 3 * time.Millisecond})
	o.OnEvent(xmsg.Event{Type: xmsg.EventDrop, Priority: xmsg.PriorityLow})
	o.OnEvent(xmsg.Event{Type: xmsg.EventHandlerError, Pattern: "app.*", Err: errors.New("boom")})
	o.OnEvent(xmsg.Event{Type: xmsg.EventTimeout})
	o.OnEvent(xmsg.Event{Type: xmsg.EventReply, Duration: time.Millisecond})

	rm := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, rm, "xmsg.messages.emitted"))
	assert.Equal(t, int64(1), sumOf(t, rm, "xmsg.messages.delivered"))
	assert.Equal(t, int64(1), sumOf(t, rm, "xmsg.messages.dropped"))
	assert.Equal(t, int64(1), sumOf(t, rm, "xmsg.handler.errors"))
	assert.Equal(t, int64(1), sumOf(t, rm, "xmsg.requests.timeouts"))

	lat := findMetric(rm, "xmsg.delivery.latency_ms")
	require.NotNil(t, lat)
	hist, ok := lat.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "Expected Histogram type")
	require.NotEmpty(t, hist.DataPoints)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestObserver_PriorityAttribute(t *testing.T) {
	reader, provider := setupReader(t)
	o, err := New(provider)
	require.NoError(t, err)

	o.OnEvent(xmsg.Event{Type: xmsg.EventDrop, Priority: xmsg.PriorityLow})

	m := findMetric(collect(t, reader), "xmsg.messages.dropped")
	require.NotNil(t, m)
	sum := m.Data.(metricdata.Sum[int64])
	found := false
	for _, dp := range sum.DataPoints {
		for _, attr := range dp.Attributes.ToSlice() {
			if attr.Key == "priority" && attr.Value.AsString() == "low" {
				found = true
			}
		}
	}
	assert.True(t, found, "Expected to find datapoint for priority=low")
}

func TestObserver_WiredIntoBus(t *testing.T) {
	reader, provider := setupReader(t)
	o, err := New(provider)
	require.NoError(t, err)

	opts := xmsg.DefaultOptions()
	opts.EnablePriorityQueue = false
	opts.EnableLogging = false
	bus, err := xmsg.NewBusBuilder().WithOptions(opts).WithObserver(o).Build()
	require.NoError(t, err)
	defer bus.Destroy(context.Background())

	_, err = bus.On("app.ping", func(ctx context.Context, msg *xmsg.Message) error { return nil })
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Emit("app.ping", i))
	}

	assert.Eventually(t, func() bool {
		return sumOf(t, collect(t, reader), "xmsg.messages.delivered") == 3
	}, time.Second, 10*time.Millisecond)
}
