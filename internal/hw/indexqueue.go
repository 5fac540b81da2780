package hw

// InitPhase is the lifecycle phase of an index queue after power-up.
type InitPhase int

const (
	// PhaseReset holds the queue empty while reset is asserted.
	PhaseReset InitPhase = iota
	// PhaseInit preloads one section index per cycle.
	PhaseInit
	// PhaseRelay is normal operation.
	PhaseRelay
)

func (p InitPhase) String() string {
	switch p {
	case PhaseReset:
		return "RESET"
	case PhaseInit:
		return "INIT"
	case PhaseRelay:
		return "RELAY"
	}
	return "UNKNOWN"
}

// IndexQueue is a cycle-level model of the free-index queue of a buffer
// channel. Out of reset it walks RESET, then INIT for one cycle per
// preloaded index, then RELAY; reads are not served before RELAY, so a
// producer can never observe a partially initialized queue.
type IndexQueue struct {
	phase    InitPhase
	sections int
	next     int
	depth    int
	data     []int
}

// NewIndexQueue returns a queue that will preload indices 0..sections-1.
// depth is the physical depth and must hold at least all sections.
func NewIndexQueue(sections, depth int) *IndexQueue {
	if sections < 1 {
		panic("index queue needs at least one section")
	}
	if depth < sections {
		panic("index queue depth below section count")
	}
	return &IndexQueue{sections: sections, depth: depth}
}

// Phase returns the current lifecycle phase.
func (q *IndexQueue) Phase() InitPhase { return q.phase }

// Len returns the number of queued indices.
func (q *IndexQueue) Len() int { return len(q.data) }

// Tick advances one clock cycle.
func (q *IndexQueue) Tick() {
	switch q.phase {
	case PhaseReset:
		q.data = q.data[:0]
		q.next = 0
		q.phase = PhaseInit
	case PhaseInit:
		q.data = append(q.data, q.next)
		q.next++
		if q.next == q.sections {
			q.phase = PhaseRelay
		}
	}
}

// Pop dequeues the oldest index. It fails while initialization is still
// in progress or the queue is empty.
func (q *IndexQueue) Pop() (int, bool) {
	if q.phase != PhaseRelay || len(q.data) == 0 {
		return 0, false
	}
	v := q.data[0]
	q.data = q.data[1:]
	return v, true
}

// Push enqueues a returned index. It fails while initialization is still
// in progress or the queue is at physical depth.
func (q *IndexQueue) Push(v int) bool {
	if q.phase != PhaseRelay || len(q.data) == q.depth {
		return false
	}
	q.data = append(q.data, v)
	return true
}
