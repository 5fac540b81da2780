// Package graph recovers the hierarchical dataflow graph of a design from
// its task declarations and invocation sites, and validates the channel
// binding invariants. Building is single-threaded and deterministic: one
// pass over each task reachable from the designated top level.
package graph

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"

	"github.com/flowforge-hdl/flowforge/internal/channel"
)

// Level places a task in the hierarchy. The level decides which rewrite
// the target backend applies.
type Level int

const (
	LevelTop Level = iota
	LevelMiddle
	LevelLeaf
)

func (l Level) String() string {
	switch l {
	case LevelTop:
		return "top"
	case LevelMiddle:
		return "middle"
	case LevelLeaf:
		return "leaf"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// PortCat classifies a task port.
type PortCat int

const (
	CatScalar PortCat = iota
	CatMmap
	CatAsyncMmap
	CatIStream
	CatOStream
	CatIBuffer
	CatOBuffer
)

var portCatNames = map[PortCat]string{
	CatScalar:    "scalar",
	CatMmap:      "mmap",
	CatAsyncMmap: "async_mmap",
	CatIStream:   "istream",
	CatOStream:   "ostream",
	CatIBuffer:   "ibuffer",
	CatOBuffer:   "obuffer",
}

func (c PortCat) String() string {
	if s, ok := portCatNames[c]; ok {
		return s
	}
	return fmt.Sprintf("cat(%d)", int(c))
}

// ParsePortCat parses a declared port category name.
func ParsePortCat(s string) (PortCat, error) {
	for cat, name := range portCatNames {
		if name == s {
			return cat, nil
		}
	}
	return CatScalar, fmt.Errorf("unrecognized port category %q", s)
}

// IsStream reports whether the category is a stream endpoint.
func (c PortCat) IsStream() bool { return c == CatIStream || c == CatOStream }

// IsBuffer reports whether the category is a buffer endpoint.
func (c PortCat) IsBuffer() bool { return c == CatIBuffer || c == CatOBuffer }

// IsMmap reports whether the category is a memory-mapped interface.
func (c PortCat) IsMmap() bool { return c == CatMmap || c == CatAsyncMmap }

// Produces reports whether a parameter of this category writes its channel.
func (c PortCat) Produces() bool { return c == CatOStream || c == CatOBuffer }

// Consumes reports whether a parameter of this category reads its channel.
func (c PortCat) Consumes() bool { return c == CatIStream || c == CatIBuffer }

// Port is one externally visible interface of a task. Len > 0 marks an
// array port whose elements are independently addressable.
type Port struct {
	Name  string
	Cat   PortCat
	Elem  string
	Width int
	Len   int
}

// IsArray reports whether the port is an array of channels.
func (p Port) IsArray() bool { return p.Len > 0 }

// Arg is one resolved argument binding of an invocation.
type Arg struct {
	// Port is the callee-side parameter name, possibly array-indexed.
	Port string
	// Cat is the callee parameter's category.
	Cat PortCat
	// Value is the caller-side name the parameter binds to: a channel or
	// port reference (possibly array-indexed) or a rendered integer
	// constant such as 64'd42.
	Value string
}

// Invocation binds a child task instance into its parent's sequence.
type Invocation struct {
	Parent string
	Callee string
	// Step is the position in the parent's execution sequence.
	Step int
	// Index is this instance's position in the callee's instance list,
	// assigned in build order; channel binding references use it.
	Index int
	// Name is the optional explicit instance name.
	Name string
	Args []Arg
	// Range locates the invocation site for diagnostics.
	Range hcl.Range
}

// Task is a named unit of hardware computation. Once the graph is
// validated the task is immutable.
type Task struct {
	Name   string
	Level  Level
	Target string
	Vendor string
	// Code is the opaque leaf computation, passed through unchanged.
	Code  string
	Ports []Port
	// Children are this task's invocations in declaration order.
	Children []*Invocation
	// Instances are the invocations of this task across all parents, in
	// build order.
	Instances []*Invocation
	DeclRange hcl.Range
}

// PortByName returns the port with the given name, or nil.
func (t *Task) PortByName(name string) *Port {
	for i := range t.Ports {
		if t.Ports[i].Name == name {
			return &t.Ports[i]
		}
	}
	return nil
}

// ChannelKind distinguishes the two channel models.
type ChannelKind int

const (
	KindStream ChannelKind = iota
	KindBuffer
)

func (k ChannelKind) String() string {
	if k == KindBuffer {
		return "buffer"
	}
	return "stream"
}

// StepRef points at one invocation instance of a task.
type StepRef struct {
	Task  string `json:"task"`
	Index int    `json:"index"`
}

// Channel is a declared (or port-inherited) communication path. A retained
// channel has exactly one producer and one consumer binding.
type Channel struct {
	Name   string
	Kind   ChannelKind
	Stream *channel.StreamConfig
	Buffer *channel.BufferConfig
	// Declared marks channels declared in a task body, as opposed to
	// entries created for arguments that pass a parent port through; only
	// declared channels are subject to the one-sided binding check and to
	// pruning.
	Declared   bool
	ProducedBy *StepRef
	ConsumedBy *StepRef
	DeclRange  hcl.Range
}

// Graph is the validated hierarchical dataflow graph of one compilation.
type Graph struct {
	Top   string
	Tasks map[string]*Task
	// TaskOrder lists task names in deterministic build order, top first.
	TaskOrder []string
	Channels  map[string]*Channel
	// ChannelOrder lists channel names in declaration order.
	ChannelOrder []string
}

// TaskAt returns the task with the given name, or nil.
func (g *Graph) TaskAt(name string) *Task { return g.Tasks[name] }
