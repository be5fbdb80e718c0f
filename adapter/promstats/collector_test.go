package promstats

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trickstertwo/xmsg"
)

type fixedSource struct{ s xmsg.Stats }

func (f fixedSource) GetStats() xmsg.Stats { return f.s }

func TestCollector_Values(t *testing.T) {
	c := New(fixedSource{s: xmsg.Stats{
		MessagesSent:    7,
		MessagesDropped: 2,
		TotalListeners:  3,
		Pressure:        0.25,
		Health:          91,
	}}, prometheus.Labels{"bus": "test"})

	expected := `
# HELP xmsg_messages_sent_total Messages admitted by the bus.
# TYPE xmsg_messages_sent_total counter
xmsg_messages_sent_total{bus="test"} 7
# HELP xmsg_messages_dropped_total Messages shed by backpressure.
# TYPE xmsg_messages_dropped_total counter
xmsg_messages_dropped_total{bus="test"} 2
# HELP xmsg_listeners Registered listeners.
# TYPE xmsg_listeners gauge
xmsg_listeners{bus="test"} 3
# HELP xmsg_queue_pressure Queue occupancy divided by capacity.
# TYPE xmsg_queue_pressure gauge
xmsg_queue_pressure{bus="test"} 0.25
# HELP xmsg_health_score Health score from 0 to 100.
# TYPE xmsg_health_score gauge
xmsg_health_score{bus="test"} 91
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"xmsg_messages_sent_total",
		"xmsg_messages_dropped_total",
		"xmsg_listeners",
		"xmsg_queue_pressure",
		"xmsg_health_score",
	)
	assert.NoError(t, err)
}

func TestCollector_RegistersWithRegistry(t *testing.T) {
	opts := xmsg.DefaultOptions()
	opts.EnablePriorityQueue = false
	opts.EnableLogging = false
	bus, err := xmsg.NewWithOptions(opts)
	require.NoError(t, err)
	defer bus.Destroy(context.Background())

	_, err = bus.On("metrics.test", func(ctx context.Context, msg *xmsg.Message) error { return nil })
	require.NoError(t, err)
	require.NoError(t, bus.Emit("metrics.test", nil))

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(New(bus, nil)))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 16)

	assert.Equal(t, 16, testutil.CollectAndCount(New(bus, nil)))
	assert.Equal(t, 1, testutil.CollectAndCount(New(bus, nil), "xmsg_listeners"))
}
