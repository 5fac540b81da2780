// Package schema defines the HCL shapes of a dataflow design: task
// declarations, their ports, typed channel declarations, and invocation
// lists. Decoding stops at syntax; classification into the compiler's data
// model happens in the graph builder so that every semantic problem is
// reported as a structured diagnostic rather than a decode failure.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// Port declares one externally visible interface of a task.
//
// cat is one of: scalar, mmap, async_mmap, istream, ostream, ibuffer,
// obuffer. A non-zero len makes the port an array of independently
// addressable elements.
type Port struct {
	Name  string `hcl:"name,label"`
	Cat   string `hcl:"cat"`
	Type  string `hcl:"type"`
	Width int    `hcl:"width,optional"`
	Len   int    `hcl:"len,optional"`
}

// Stream declares an ordered bounded FIFO channel local to a task body.
type Stream struct {
	Name   string   `hcl:"name,label"`
	Type   string   `hcl:"type"`
	Width  int      `hcl:"width,optional"`
	Depth  int      `hcl:"depth"`
	Remain hcl.Body `hcl:",remain"`
}

// StreamArray declares len streams addressable as name[0] .. name[len-1].
type StreamArray struct {
	Name   string   `hcl:"name,label"`
	Type   string   `hcl:"type"`
	Width  int      `hcl:"width,optional"`
	Depth  int      `hcl:"depth"`
	Len    int      `hcl:"len"`
	Remain hcl.Body `hcl:",remain"`
}

// Buffer declares a multi-section ping-pong channel. partition entries are
// per-dimension schemes: "normal", "complete", "block(N)" or "cyclic(N)";
// memory selects the backing technology, BRAM (default) or URAM.
type Buffer struct {
	Name      string   `hcl:"name,label"`
	Type      string   `hcl:"type"`
	Width     int      `hcl:"width,optional"`
	Dims      []int    `hcl:"dims"`
	Sections  int      `hcl:"sections"`
	Partition []string `hcl:"partition,optional"`
	Memory    string   `hcl:"memory,optional"`
	Remain    hcl.Body `hcl:",remain"`
}

// BufferArray declares len buffers addressable as name[0] .. name[len-1].
type BufferArray struct {
	Name      string   `hcl:"name,label"`
	Type      string   `hcl:"type"`
	Width     int      `hcl:"width,optional"`
	Dims      []int    `hcl:"dims"`
	Sections  int      `hcl:"sections"`
	Partition []string `hcl:"partition,optional"`
	Memory    string   `hcl:"memory,optional"`
	Len       int      `hcl:"len"`
	Remain    hcl.Body `hcl:",remain"`
}

// Invoke binds a child task into the parent's sequence.
//
// args is kept as an undecoded expression list: the first element names the
// callee, an optional quoted second element is the instance name, and the
// rest bind positionally to the callee's ports. count is the replication
// degree for vectorized invocation.
type Invoke struct {
	Step  *int           `hcl:"step,optional"`
	Count int            `hcl:"count,optional"`
	Args  hcl.Expression `hcl:"args"`
}

// Stage groups invocations. Stages nest arbitrarily; invocations are not
// restricted to direct children of the task body.
type Stage struct {
	Invokes []*Invoke `hcl:"invoke,block"`
	Stages  []*Stage  `hcl:"stage,block"`
}

// Task declares one unit of hardware computation. Leaf tasks carry opaque
// code that is passed through to the vendor backend unchanged; non-leaf
// tasks carry channel declarations and invocations.
type Task struct {
	Name   string `hcl:"name,label"`
	Leaf   bool   `hcl:"leaf,optional"`
	Target string `hcl:"target,optional"`
	Vendor string `hcl:"vendor,optional"`
	Code   string `hcl:"code,optional"`

	Ports        []*Port        `hcl:"port,block"`
	Streams      []*Stream      `hcl:"stream,block"`
	StreamArrays []*StreamArray `hcl:"streams,block"`
	Buffers      []*Buffer      `hcl:"buffer,block"`
	BufferArrays []*BufferArray `hcl:"buffers,block"`
	Invokes      []*Invoke      `hcl:"invoke,block"`
	Stages       []*Stage       `hcl:"stage,block"`

	Remain hcl.Body `hcl:",remain"`
}

// DeclRange returns a range inside the task block, usable as a diagnostic
// subject when no finer-grained range is available.
func (t *Task) DeclRange() hcl.Range {
	return t.Remain.MissingItemRange()
}

// File is the top-level structure of one design file.
type File struct {
	Tasks []*Task `hcl:"task,block"`
}

// Design aggregates the task declarations from every file of a compilation
// unit, so invocations may reference tasks declared in other files.
type Design struct {
	Tasks []*Task
}

// TaskByName returns the declared task with the given name, or nil.
func (d *Design) TaskByName(name string) *Task {
	for _, t := range d.Tasks {
		if t.Name == name {
			return t
		}
	}
	return nil
}
