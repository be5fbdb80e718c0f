package xmsg

import (
	"fmt"
	"strings"
	"time"
)

// Priority orders both listeners (invocation order) and queued messages (dequeue order).
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityNormal
	PriorityLow

	numPriorities = 3
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

func (p Priority) valid() bool { return p >= PriorityHigh && p <= PriorityLow }

// ParsePriority maps "high", "normal" and "low" (case-insensitive) to a Priority.
// The empty string yields PriorityNormal.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh, nil
	case "", "normal":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	}
	return PriorityNormal, fmt.Errorf("%w: unknown priority %q", ErrInvalidOptions, s)
}

// DropPolicy selects what backpressure sheds once the threshold is crossed.
type DropPolicy string

const (
	// DropLowPriority sheds low priority messages under pressure.
	DropLowPriority DropPolicy = "low-priority"
	// DropNone only sheds at the hard queue ceiling.
	DropNone DropPolicy = "none"
)

// Response is what a responder passes to Reply.
type Response struct {
	Success bool
	Result  any
	Error   error
}

// Performance is the derived throughput section of Stats.
type Performance struct {
	MessagesPerSecond  float64
	RequestSuccessRate string // e.g. "50.00%"
}

// Stats is a point-in-time snapshot of bus counters.
type Stats struct {
	MessagesSent          uint64
	MessagesDelivered     uint64
	MessagesDropped       uint64
	ErrorsCaught          uint64
	LargeMessagesWarnings uint64
	RequestsSent          uint64
	RequestsCompleted     uint64
	RequestsFailed        uint64
	RequestsTimedOut      uint64
	PeakPendingRequests   int
	PendingRequests       int
	TotalListeners        int
	QueueSize             int
	BatchSize             int

	Pressure    float64
	Health      int
	Uptime      time.Duration
	UptimeHuman string
	Performance Performance
	StartedAt   time.Time
}

// HealthStatus indicates bus health for probes.
type HealthStatus struct {
	Status    string // "healthy", "degraded", "unhealthy"
	Score     int
	Stats     Stats
	Timestamp time.Time
	Message   string
}

// PoolStats returns telemetry about the observer pool.
type PoolStats struct {
	Dropped      uint64 // Events dropped due to full buffer
	Processed    uint64 // Events successfully processed
	ActiveEvents int    // Current queue depth
	Workers      int    // Number of dispatch goroutines
	BufferSize   int    // Channel capacity
}
