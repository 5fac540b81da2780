package channel

// Stream is the behavioral model of an ordered, bounded, single-producer
// single-consumer FIFO. Push suspends the producer at depth D; Pop suspends
// the consumer when empty. There is deliberately no close or cancellation:
// generated hardware tasks run to completion or block forever on an
// external interface, and the host-side harness mirrors that contract.
type Stream[T any] struct {
	name string
	ch   chan T
}

// NewStream returns a stream of the given logical depth. Depth must be at
// least 1; a zero-depth rendezvous channel has no hardware realization.
func NewStream[T any](name string, depth int) *Stream[T] {
	if depth < 1 {
		panic("stream depth must be at least 1")
	}
	return &Stream[T]{name: name, ch: make(chan T, depth)}
}

// Name returns the declared channel name.
func (s *Stream[T]) Name() string { return s.name }

// Push enqueues v, blocking while the stream holds depth elements.
func (s *Stream[T]) Push(v T) { s.ch <- v }

// Pop dequeues the oldest element, blocking while the stream is empty.
func (s *Stream[T]) Pop() T { return <-s.ch }

// TryPush enqueues v if the stream is not full and reports success.
func (s *Stream[T]) TryPush(v T) bool {
	select {
	case s.ch <- v:
		return true
	default:
		return false
	}
}

// TryPop dequeues if the stream is not empty and reports success.
func (s *Stream[T]) TryPop() (T, bool) {
	select {
	case v := <-s.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Len returns the number of enqueued elements.
func (s *Stream[T]) Len() int { return len(s.ch) }
