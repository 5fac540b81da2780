// Package channel models the two channel kinds of a dataflow design: the
// ordered bounded Stream and the multi-section ping-pong Buffer. It holds
// both the compile-time configuration records extracted from declarations
// and a behavioral runtime used by the host-side verification harness and
// by tests of the section protocol.
package channel

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// PartitionKind is a per-dimension physical partitioning scheme. It affects
// only how a buffer dimension maps onto memory cores, never the logical
// section protocol.
type PartitionKind int

const (
	PartitionNormal PartitionKind = iota
	PartitionComplete
	PartitionBlock
	PartitionCyclic
)

func (k PartitionKind) String() string {
	switch k {
	case PartitionNormal:
		return "normal"
	case PartitionComplete:
		return "complete"
	case PartitionBlock:
		return "block"
	case PartitionCyclic:
		return "cyclic"
	}
	return fmt.Sprintf("partition(%d)", int(k))
}

// Partition pairs a scheme with its factor. The factor is meaningful only
// for block and cyclic schemes.
type Partition struct {
	Kind   PartitionKind `json:"type"`
	Factor int           `json:"factor"`
}

var partitionRe = regexp.MustCompile(`^(block|cyclic)\((\d+)\)$`)

// ParsePartition parses a partition spec string: "normal", "complete",
// "block(N)" or "cyclic(N)".
func ParsePartition(s string) (Partition, error) {
	switch s {
	case "", "normal":
		return Partition{Kind: PartitionNormal}, nil
	case "complete":
		return Partition{Kind: PartitionComplete}, nil
	}
	m := partitionRe.FindStringSubmatch(s)
	if m == nil {
		return Partition{}, fmt.Errorf("unrecognized partition scheme %q", s)
	}
	factor, err := strconv.Atoi(m[2])
	if err != nil || factor < 1 {
		return Partition{}, fmt.Errorf("invalid partition factor in %q", s)
	}
	kind := PartitionBlock
	if m[1] == "cyclic" {
		kind = PartitionCyclic
	}
	return Partition{Kind: kind, Factor: factor}, nil
}

// MemTech selects the memory technology backing a buffer.
type MemTech int

const (
	MemBRAM MemTech = iota
	MemURAM
)

func (m MemTech) String() string {
	if m == MemURAM {
		return "URAM"
	}
	return "BRAM"
}

// ParseMemTech parses a memory technology name; empty defaults to BRAM.
func ParseMemTech(s string) (MemTech, error) {
	switch strings.ToUpper(s) {
	case "", "BRAM":
		return MemBRAM, nil
	case "URAM":
		return MemURAM, nil
	}
	return MemBRAM, fmt.Errorf("unrecognized memory technology %q", s)
}

// StreamConfig is the compile-time configuration of a stream channel.
// Depth is the only tunable parameter of the logical protocol.
type StreamConfig struct {
	Elem  string `json:"type"`
	Width int    `json:"width"`
	Depth int    `json:"depth"`
}

// BufferConfig is the compile-time configuration of a buffer channel.
type BufferConfig struct {
	Elem       string      `json:"type"`
	Width      int         `json:"width"`
	Dims       []int       `json:"dims"`
	Sections   int         `json:"n_sections"`
	Partitions []Partition `json:"partitions"`
	Memory     MemTech     `json:"memcore_type"`
}

// DimPatterns returns the number of memory cores contributed by each
// dimension: 1 for normal, the full extent for complete, and the factor
// for block/cyclic.
func (c *BufferConfig) DimPatterns() []int {
	patterns := make([]int, len(c.Dims))
	for i, dim := range c.Dims {
		p := Partition{Kind: PartitionNormal}
		if i < len(c.Partitions) {
			p = c.Partitions[i]
		}
		switch p.Kind {
		case PartitionNormal:
			patterns[i] = 1
		case PartitionComplete:
			patterns[i] = dim
		default:
			patterns[i] = p.Factor
		}
	}
	return patterns
}

// MemCoreCount returns how many physical memory cores the buffer occupies.
func (c *BufferConfig) MemCoreCount() int {
	n := 1
	for _, p := range c.DimPatterns() {
		n *= p
	}
	return n
}

// MemCoreSize returns the number of words held by one memory core,
// covering all sections.
func (c *BufferConfig) MemCoreSize() int {
	size := 1
	for i, dim := range c.Dims {
		size *= ceilDiv(dim, c.DimPatterns()[i])
	}
	return size * c.Sections
}

// AddrWidth returns the address width of one memory core.
func (c *BufferConfig) AddrWidth() int {
	size := c.MemCoreSize()
	if size <= 1 {
		return 1
	}
	return int(math.Ceil(math.Log2(float64(size))))
}

// SectionLen returns the number of words in one section.
func (c *BufferConfig) SectionLen() int {
	n := 1
	for _, dim := range c.Dims {
		n *= dim
	}
	return n
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// ArrayElem returns the canonical name of element i of an arrayed channel
// or port declaration.
func ArrayElem(name string, i int) string {
	return fmt.Sprintf("%s[%d]", name, i)
}
