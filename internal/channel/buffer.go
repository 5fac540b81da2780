package channel

import (
	"sync/atomic"
)

// SectionState tracks which side, if any, currently owns a buffer section.
type SectionState int32

const (
	SectionFree SectionState = iota
	SectionAcquiredByProducer
	SectionOccupied
	SectionAcquiredByConsumer
)

func (s SectionState) String() string {
	switch s {
	case SectionFree:
		return "FREE"
	case SectionAcquiredByProducer:
		return "ACQUIRED_BY_PRODUCER"
	case SectionOccupied:
		return "OCCUPIED"
	case SectionAcquiredByConsumer:
		return "ACQUIRED_BY_CONSUMER"
	}
	return "INVALID"
}

// Section is one of the N addressable memory regions backing a buffer.
type Section[T any] struct {
	index int
	state atomic.Int32
	Data  T
}

// Index returns the physical section index.
func (s *Section[T]) Index() int { return s.index }

// State returns the section's current protocol state.
func (s *Section[T]) State() SectionState { return SectionState(s.state.Load()) }

// Buffer is the behavioral model of the multi-section ping-pong protocol.
//
// The arbitration mechanism is exactly two index queues of depth N: a FREE
// queue the producer acquires from and a OCCUPIED queue the consumer
// acquires from. At reset the FREE queue is pre-loaded with indices
// 0..N-1, so a fresh buffer admits exactly N producer acquires before the
// producer blocks, and no consumer acquire succeeds until a producer
// release. Because each side's acquires drain its queue in FIFO order, the
// j-th producer cycle and the j-th consumer cycle always meet on the same
// section instance, which makes section reuse behaviorally equivalent to
// an unbounded ordered channel of section-sized messages.
type Buffer[T any] struct {
	name     string
	sections []*Section[T]
	free     chan int
	occupied chan int
}

// NewBuffer returns a buffer with n interchangeable sections whose payloads
// are zero values of T.
func NewBuffer[T any](name string, n int) *Buffer[T] {
	if n < 1 {
		panic("buffer must have at least one section")
	}
	b := &Buffer[T]{
		name:     name,
		sections: make([]*Section[T], n),
		free:     make(chan int, n),
		occupied: make(chan int, n),
	}
	for i := range b.sections {
		b.sections[i] = &Section[T]{index: i}
	}
	// Reset pre-load: one index per slot until all N are present. No
	// handshake can observe the queue before this completes because the
	// buffer is not shared until NewBuffer returns.
	for i := 0; i < n; i++ {
		b.free <- i
	}
	return b
}

// Name returns the declared channel name.
func (b *Buffer[T]) Name() string { return b.name }

// Sections returns the number of physical sections.
func (b *Buffer[T]) Sections() int { return len(b.sections) }

// Section returns section i for state inspection.
func (b *Buffer[T]) Section(i int) *Section[T] { return b.sections[i] }

// Produce acquires the next FREE section, runs fn on it, and releases the
// section as OCCUPIED. The release fires exactly once on every exit path,
// including a panic inside fn; acquire and release are never exposed as
// independently callable operations. Produce blocks until a section is
// FREE.
func (b *Buffer[T]) Produce(fn func(*Section[T]) error) error {
	sec := b.acquireProducer()
	defer b.releaseProducer(sec)
	return fn(sec)
}

// TryProduce is Produce without blocking: it reports false if no section
// is FREE.
func (b *Buffer[T]) TryProduce(fn func(*Section[T]) error) (bool, error) {
	select {
	case idx := <-b.free:
		sec := b.sections[idx]
		sec.state.Store(int32(SectionAcquiredByProducer))
		defer b.releaseProducer(sec)
		return true, fn(sec)
	default:
		return false, nil
	}
}

// Consume acquires the oldest OCCUPIED section, runs fn on it, and
// releases the section as FREE. Blocks until a section is OCCUPIED.
func (b *Buffer[T]) Consume(fn func(*Section[T]) error) error {
	sec := b.acquireConsumer()
	defer b.releaseConsumer(sec)
	return fn(sec)
}

// TryConsume is Consume without blocking: it reports false if no section
// is OCCUPIED.
func (b *Buffer[T]) TryConsume(fn func(*Section[T]) error) (bool, error) {
	select {
	case idx := <-b.occupied:
		sec := b.sections[idx]
		sec.state.Store(int32(SectionAcquiredByConsumer))
		defer b.releaseConsumer(sec)
		return true, fn(sec)
	default:
		return false, nil
	}
}

func (b *Buffer[T]) acquireProducer() *Section[T] {
	idx := <-b.free
	sec := b.sections[idx]
	sec.state.Store(int32(SectionAcquiredByProducer))
	return sec
}

// releaseProducer hands the section to the consumer side. The occupied
// queue has capacity N, so the send can never block.
func (b *Buffer[T]) releaseProducer(sec *Section[T]) {
	sec.state.Store(int32(SectionOccupied))
	b.occupied <- sec.index
}

func (b *Buffer[T]) acquireConsumer() *Section[T] {
	idx := <-b.occupied
	sec := b.sections[idx]
	sec.state.Store(int32(SectionAcquiredByConsumer))
	return sec
}

func (b *Buffer[T]) releaseConsumer(sec *Section[T]) {
	sec.state.Store(int32(SectionFree))
	b.free <- sec.index
}
