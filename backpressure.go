package xmsg

// backpressure decides admission into the delivery queue.
type backpressure struct {
	enabled   bool
	threshold float64
	capacity  int
	policy    DropPolicy
}

func newBackpressure(o Options) backpressure {
	return backpressure{
		enabled:   o.EnableBackpressure,
		threshold: o.BackpressureThreshold,
		capacity:  o.MaxQueueSize,
		policy:    o.DropPolicy,
	}
}

// pressure is occupancy divided by capacity.
func (bp backpressure) pressure(occupancy int) float64 {
	if bp.capacity <= 0 {
		return 0
	}
	return float64(occupancy) / float64(bp.capacity)
}

// admit reports whether a message of priority p may enter a queue holding occupancy
// messages.
//
// Under the low-priority policy and above the threshold, low messages are shed, normal
// messages are kept while the queue has headroom and high messages are always kept.
// Without that policy the queue is a plain bounded buffer.
func (bp backpressure) admit(p Priority, occupancy int) bool {
	headroom := occupancy < bp.capacity
	if !bp.enabled || bp.policy != DropLowPriority {
		return headroom
	}
	if bp.pressure(occupancy) < bp.threshold {
		return headroom
	}
	switch p {
	case PriorityHigh:
		return true
	case PriorityNormal:
		return headroom
	default:
		return false
	}
}
