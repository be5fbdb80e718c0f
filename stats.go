package xmsg

import (
	"context"
	"fmt"
	"math"
	"time"
)

// counters are the monotonic bus counters. Guarded by Bus.mu.
type counters struct {
	sent          uint64
	delivered     uint64
	dropped       uint64
	errors        uint64
	largeWarnings uint64
	reqSent       uint64
	reqCompleted  uint64
	reqFailed     uint64
	reqTimedOut   uint64
	peakPending   int
}

// healthScore maps error and drop ratios onto 0..100. Errors weigh 60 points and drops 40.
func healthScore(c counters) int {
	sent := float64(c.sent)
	errRatio := math.Min(1, float64(c.errors)/math.Max(1, sent))
	dropRatio := float64(c.dropped) / math.Max(1, sent+float64(c.dropped))
	score := math.Round(100 - 60*errRatio - 40*dropRatio)
	return int(math.Max(0, math.Min(100, score)))
}

func successRate(completed, sent uint64) string {
	if sent == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(completed)/float64(sent)*100)
}

// GetStats returns a snapshot of the bus counters. The snapshot is recomputed when a
// counter changed or StatsCacheTTL elapsed since the last one.
func (b *Bus) GetStats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	if b.snapshot != nil && !b.statsDirty && now.Sub(b.statsAt) < b.opts.StatsCacheTTL {
		return *b.snapshot
	}
	s := b.computeStats(now)
	b.snapshot = &s
	b.statsAt = now
	b.statsDirty = false
	return s
}

// computeStats builds a snapshot. Callers hold b.mu.
func (b *Bus) computeStats(now time.Time) Stats {
	c := b.counters
	uptime := max(0, now.Sub(b.startedAt))

	var perSecond float64
	if secs := uptime.Seconds(); secs > 0 {
		perSecond = float64(c.sent) / secs
	}

	return Stats{
		MessagesSent:          c.sent,
		MessagesDelivered:     c.delivered,
		MessagesDropped:       c.dropped,
		ErrorsCaught:          c.errors,
		LargeMessagesWarnings: c.largeWarnings,
		RequestsSent:          c.reqSent,
		RequestsCompleted:     c.reqCompleted,
		RequestsFailed:        c.reqFailed,
		RequestsTimedOut:      c.reqTimedOut,
		PeakPendingRequests:   c.peakPending,
		PendingRequests:       len(b.pending),
		TotalListeners:        b.registry.len(),
		QueueSize:             b.queue.len(),
		BatchSize:             b.sizer.current,
		Pressure:              b.bp.pressure(b.queue.len()),
		Health:                healthScore(c),
		Uptime:                uptime,
		UptimeHuman:           FormatUptime(uptime),
		Performance: Performance{
			MessagesPerSecond:  perSecond,
			RequestSuccessRate: successRate(c.reqCompleted, c.reqSent),
		},
		StartedAt: b.startedAt,
	}
}

// Health classifies the bus for probes: healthy at a score of 80 or more, degraded
// above zero, unhealthy at zero or once destroyed.
func (b *Bus) Health(_ context.Context) HealthStatus {
	stats := b.GetStats()
	status := HealthStatus{
		Score:     stats.Health,
		Stats:     stats,
		Timestamp: b.clock.Now(),
	}

	switch {
	case b.destroyed.Load():
		status.Status = "unhealthy"
		status.Message = "message bus destroyed"
	case stats.Health >= 80:
		status.Status = "healthy"
		status.Message = "message bus operating normally"
	case stats.Health > 0:
		status.Status = "degraded"
		status.Message = fmt.Sprintf("%d errors, %d dropped of %d sent",
			stats.ErrorsCaught, stats.MessagesDropped, stats.MessagesSent)
	default:
		status.Status = "unhealthy"
		status.Message = "message bus failing"
	}
	return status
}
