package hw

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowforge-hdl/flowforge/internal/channel"
)

func TestPartitionIndices(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{""}, PartitionIndices(nil))
	require.Equal(t, []string{"0", "1"}, PartitionIndices([]int{2}))
	require.Equal(t,
		[]string{"0_0", "0_1", "0_2", "1_0", "1_1", "1_2"},
		PartitionIndices([]int{2, 3}))
}

func TestWriteBuffer(t *testing.T) {
	t.Parallel()

	cfg := &channel.BufferConfig{
		Elem:     "float",
		Width:    32,
		Dims:     []int{16},
		Sections: 2,
		Partitions: []channel.Partition{
			{Kind: channel.PartitionCyclic, Factor: 2},
		},
		Memory: channel.MemURAM,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBuffer(&buf, "tile", cfg, 0))
	out := buf.String()

	require.Contains(t, out, "module buffer_tile #(")
	require.Contains(t, out, "parameter N_SECTIONS  = 2")
	// One memory core per partition coordinate, on the selected technology.
	require.Contains(t, out, "memcore_URAM #(")
	require.Contains(t, out, ") memcore_0 (")
	require.Contains(t, out, ") memcore_1 (")
	// The occupied queue is a plain FIFO; the free queue starts full.
	require.Contains(t, out, ") occupied_q (")
	require.Contains(t, out, "initialized_fifo #(")
	require.Contains(t, out, ".INIT_LENGTH(N_SECTIONS),")
	require.NotContains(t, out, "relay_station")
}

func TestWriteBufferWithRelayStages(t *testing.T) {
	t.Parallel()

	cfg := &channel.BufferConfig{
		Elem:     "float",
		Width:    32,
		Dims:     []int{16},
		Sections: 4,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBuffer(&buf, "tile", cfg, 3))
	out := buf.String()

	// Crossing a region turns both queues into relay chains sized to the
	// physical depth: 4 sections + 2 slots per stage.
	require.Contains(t, out, "relay_station #(")
	require.Contains(t, out, "initialized_relay_station #(")
	require.Contains(t, out, ".DEPTH(10),")
	require.Contains(t, out, ".LEVEL(3),")
	require.NotContains(t, out, "initialized_fifo #(")
}

func TestWriteRelay(t *testing.T) {
	t.Parallel()

	cfg := &channel.StreamConfig{Elem: "float", Width: 32, Depth: 4}

	var buf bytes.Buffer
	require.NoError(t, WriteRelay(&buf, "data", cfg, 2))
	out := buf.String()

	require.Contains(t, out, "module relay_data (")
	require.Contains(t, out, ".DATA_WIDTH(32),")
	require.Contains(t, out, ".DEPTH(8),")
	require.Contains(t, out, ".LEVEL(2)")
}

func TestIndexQueueInitialization(t *testing.T) {
	t.Parallel()

	q := NewIndexQueue(3, 5)
	require.Equal(t, PhaseReset, q.Phase())

	// Nothing is served before initialization completes.
	_, ok := q.Pop()
	require.False(t, ok)
	require.False(t, q.Push(0))

	q.Tick()
	require.Equal(t, PhaseInit, q.Phase())

	// One preloaded index per cycle.
	for i := 1; i <= 3; i++ {
		q.Tick()
		require.Equal(t, i, q.Len())
	}
	require.Equal(t, PhaseRelay, q.Phase())

	// The preload order is the section order.
	for i := 0; i < 3; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	_, ok = q.Pop()
	require.False(t, ok)
}

func TestIndexQueueDepthBound(t *testing.T) {
	t.Parallel()

	q := NewIndexQueue(2, 2)
	for q.Phase() != PhaseRelay {
		q.Tick()
	}
	// Full at physical depth.
	require.False(t, q.Push(0))

	v, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, 0, v)
	require.True(t, q.Push(v))

	require.Panics(t, func() { NewIndexQueue(3, 2) })
	require.Panics(t, func() { NewIndexQueue(0, 2) })
}
