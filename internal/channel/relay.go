package channel

// PhysicalDepth returns the storage a channel endpoint must provide when
// the channel is realized as a chain of stages pipeline registers for
// timing closure. The full/backpressure signal takes stages cycles to
// reach the source, so up to 2*stages writes may already be in flight when
// the source observes full; the stage nearest the source absorbs them.
func PhysicalDepth(logical, stages int) int {
	if stages < 0 {
		panic("relay stage count must not be negative")
	}
	return logical + 2*stages
}

// RelayLatency returns the added cycles of latency in each direction for a
// chain of stages pipeline registers.
func RelayLatency(stages int) int {
	return stages
}
