package channel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferInitialization(t *testing.T) {
	t.Parallel()

	// A fresh buffer admits exactly N producer acquires and no consumer
	// acquire.
	b := NewBuffer[int]("scratch", 3)
	for i := 0; i < 3; i++ {
		ok, err := b.TryProduce(func(sec *Section[int]) error {
			require.Equal(t, i, sec.Index())
			require.Equal(t, SectionAcquiredByProducer, sec.State())
			return nil
		})
		require.NoError(t, err)
		require.True(t, ok)
	}

	consumed := 0
	for i := 0; i < 3; i++ {
		ok, err := b.TryConsume(func(*Section[int]) error { consumed++; return nil })
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.Equal(t, 3, consumed)

	// All sections returned FREE; another full producer round succeeds.
	for i := 0; i < 3; i++ {
		ok, err := b.TryProduce(func(*Section[int]) error { return nil })
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestBufferSectionHandoff(t *testing.T) {
	t.Parallel()

	b := NewBuffer[[]int]("tiles", 2)

	require.NoError(t, b.Produce(func(sec *Section[[]int]) error {
		sec.Data = []int{1, 2, 3}
		return nil
	}))
	require.NoError(t, b.Produce(func(sec *Section[[]int]) error {
		sec.Data = []int{4, 5, 6}
		return nil
	}))

	// Both sections occupied: a third produce must not succeed.
	ok, err := b.TryProduce(func(*Section[[]int]) error { return nil })
	require.NoError(t, err)
	require.False(t, ok)

	// The consumer sees sections in production order.
	require.NoError(t, b.Consume(func(sec *Section[[]int]) error {
		require.Equal(t, 0, sec.Index())
		require.Equal(t, []int{1, 2, 3}, sec.Data)
		return nil
	}))

	// Releasing one section unblocks the producer on that same section.
	require.NoError(t, b.Produce(func(sec *Section[[]int]) error {
		require.Equal(t, 0, sec.Index())
		return nil
	}))
}

func TestBufferReleaseOnError(t *testing.T) {
	t.Parallel()

	b := NewBuffer[int]("scratch", 1)
	boom := errors.New("boom")

	// A failing producer body still releases the section as OCCUPIED.
	require.ErrorIs(t, b.Produce(func(*Section[int]) error { return boom }), boom)
	require.Equal(t, SectionOccupied, b.Section(0).State())

	// A failing consumer body still releases the section as FREE.
	require.ErrorIs(t, b.Consume(func(*Section[int]) error { return boom }), boom)
	require.Equal(t, SectionFree, b.Section(0).State())
}

func TestBufferReleaseOnPanic(t *testing.T) {
	t.Parallel()

	b := NewBuffer[int]("scratch", 1)
	require.Panics(t, func() {
		_ = b.Produce(func(*Section[int]) error { panic("inside fn") })
	})
	// The deferred release ran: the section is observable by the consumer.
	require.Equal(t, SectionOccupied, b.Section(0).State())
}

func TestBufferSectionValidation(t *testing.T) {
	t.Parallel()
	require.Panics(t, func() { NewBuffer[int]("scratch", 0) })
}
