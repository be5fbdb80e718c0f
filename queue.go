package xmsg

// tier is a FIFO of messages sharing one priority.
type tier struct {
	items []*Message
	head  int
}

func (t *tier) push(m *Message) { t.items = append(t.items, m) }

func (t *tier) pop() *Message {
	if t.head >= len(t.items) {
		return nil
	}
	m := t.items[t.head]
	t.items[t.head] = nil
	t.head++
	switch {
	case t.head == len(t.items):
		t.items = t.items[:0]
		t.head = 0
	case t.head > 64 && t.head*2 > len(t.items):
		n := copy(t.items, t.items[t.head:])
		clear(t.items[n:])
		t.items = t.items[:n]
		t.head = 0
	}
	return m
}

func (t *tier) len() int { return len(t.items) - t.head }

// priorityQueue dequeues high before normal before low, FIFO inside a tier.
type priorityQueue struct {
	tiers [numPriorities]tier
	size  int
}

func (q *priorityQueue) push(m *Message) {
	q.tiers[m.Priority].push(m)
	q.size++
}

func (q *priorityQueue) pop() *Message {
	for i := range q.tiers {
		if m := q.tiers[i].pop(); m != nil {
			q.size--
			return m
		}
	}
	return nil
}

func (q *priorityQueue) len() int { return q.size }

func (q *priorityQueue) clear() {
	for i := range q.tiers {
		q.tiers[i] = tier{}
	}
	q.size = 0
}
