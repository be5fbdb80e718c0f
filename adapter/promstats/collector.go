// Package promstats exposes bus stats as a Prometheus collector. Values are read from
// GetStats at scrape time, so the bus does no work between scrapes.
package promstats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/trickstertwo/xmsg"
)

// Source is the part of the bus the collector reads.
type Source interface {
	GetStats() xmsg.Stats
}

type desc struct {
	d     *prometheus.Desc
	kind  prometheus.ValueType
	value func(s xmsg.Stats) float64
}

// Collector implements prometheus.Collector over a Source.
type Collector struct {
	src   Source
	descs []desc
}

var _ prometheus.Collector = (*Collector)(nil)

// New returns a collector for src. constLabels (for example the bus name) are attached
// to every series.
func New(src Source, constLabels prometheus.Labels) *Collector {
	mk := func(name, help string, kind prometheus.ValueType, v func(xmsg.Stats) float64) desc {
		return desc{
			d:     prometheus.NewDesc(prometheus.BuildFQName("xmsg", "", name), help, nil, constLabels),
			kind:  kind,
			value: v,
		}
	}
	return &Collector{
		src: src,
		descs: []desc{
			mk("messages_sent_total", "Messages admitted by the bus.", prometheus.CounterValue,
				func(s xmsg.Stats) float64 { return float64(s.MessagesSent) }),
			mk("messages_delivered_total", "Messages delivered to their listeners.", prometheus.CounterValue,
				func(s xmsg.Stats) float64 { return float64(s.MessagesDelivered) }),
			mk("messages_dropped_total", "Messages shed by backpressure.", prometheus.CounterValue,
				func(s xmsg.Stats) float64 { return float64(s.MessagesDropped) }),
			mk("handler_errors_total", "Failed listener invocations.", prometheus.CounterValue,
				func(s xmsg.Stats) float64 { return float64(s.ErrorsCaught) }),
			mk("large_messages_total", "Payloads above the warning size.", prometheus.CounterValue,
				func(s xmsg.Stats) float64 { return float64(s.LargeMessagesWarnings) }),
			mk("requests_sent_total", "Requests issued.", prometheus.CounterValue,
				func(s xmsg.Stats) float64 { return float64(s.RequestsSent) }),
			mk("requests_completed_total", "Requests answered successfully.", prometheus.CounterValue,
				func(s xmsg.Stats) float64 { return float64(s.RequestsCompleted) }),
			mk("requests_failed_total", "Requests answered with a failure.", prometheus.CounterValue,
				func(s xmsg.Stats) float64 { return float64(s.RequestsFailed) }),
			mk("requests_timed_out_total", "Requests that timed out.", prometheus.CounterValue,
				func(s xmsg.Stats) float64 { return float64(s.RequestsTimedOut) }),
			mk("pending_requests", "Requests awaiting a reply.", prometheus.GaugeValue,
				func(s xmsg.Stats) float64 { return float64(s.PendingRequests) }),
			mk("listeners", "Registered listeners.", prometheus.GaugeValue,
				func(s xmsg.Stats) float64 { return float64(s.TotalListeners) }),
			mk("queue_size", "Messages waiting in the delivery queue.", prometheus.GaugeValue,
				func(s xmsg.Stats) float64 { return float64(s.QueueSize) }),
			mk("queue_pressure", "Queue occupancy divided by capacity.", prometheus.GaugeValue,
				func(s xmsg.Stats) float64 { return s.Pressure }),
			mk("batch_size", "Current adaptive batch size.", prometheus.GaugeValue,
				func(s xmsg.Stats) float64 { return float64(s.BatchSize) }),
			mk("health_score", "Health score from 0 to 100.", prometheus.GaugeValue,
				func(s xmsg.Stats) float64 { return float64(s.Health) }),
			mk("uptime_seconds", "Seconds since the bus was built.", prometheus.GaugeValue,
				func(s xmsg.Stats) float64 { return s.Uptime.Seconds() }),
		},
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d.d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.GetStats()
	for _, d := range c.descs {
		ch <- prometheus.MustNewConstMetric(d.d, d.kind, d.value(s))
	}
}
