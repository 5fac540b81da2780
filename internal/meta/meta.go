// Package meta serializes the validated dataflow graph for downstream
// tooling. The schema is the compiler's stable contract: the floorplanner
// reads it to assign tasks to physical regions and derive relay-chain
// depths, and the packager reads it to collect per-task artifacts. The
// emitted graph is owned by one compilation and consumed read-only.
package meta

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/flowforge-hdl/flowforge/internal/graph"
)

// Arg is one resolved argument binding, keyed by callee port name.
type Arg struct {
	Cat string `json:"cat"`
	Arg string `json:"arg"`
}

// Instance is one invocation of a task within its parent's sequence.
type Instance struct {
	Parent string         `json:"parent"`
	Step   int            `json:"step"`
	Name   string         `json:"name,omitempty"`
	Args   map[string]Arg `json:"args"`
}

// Port describes one task interface.
type Port struct {
	Name  string `json:"name"`
	Cat   string `json:"cat"`
	Width int    `json:"width"`
	Type  string `json:"type"`
	Len   int    `json:"len,omitempty"`
}

// Task groups a task's interface with its ordered invocation instances.
type Task struct {
	Level     string     `json:"level"`
	Target    string     `json:"target"`
	Vendor    string     `json:"vendor"`
	Ports     []Port     `json:"ports"`
	Instances []Instance `json:"instances,omitempty"`
}

// Fifo describes a retained stream channel.
type Fifo struct {
	Depth      int             `json:"depth"`
	Width      int             `json:"width"`
	Type       string          `json:"type"`
	ProducedBy *graph.StepRef  `json:"produced_by,omitempty"`
	ConsumedBy *graph.StepRef  `json:"consumed_by,omitempty"`
}

// Buffer describes a retained buffer channel, including the derived
// geometry the floorplanner needs.
type Buffer struct {
	Width        int                 `json:"width"`
	Type         string              `json:"type"`
	Dims         []int               `json:"dims"`
	Sections     int                 `json:"n_sections"`
	Partitions   []partitionJSON     `json:"partitions"`
	Memory       string              `json:"memcore_type"`
	MemCoreCount int                 `json:"n_memcores"`
	MemCoreSize  int                 `json:"memcore_size"`
	AddrWidth    int                 `json:"addr_width"`
	ProducedBy   *graph.StepRef      `json:"produced_by,omitempty"`
	ConsumedBy   *graph.StepRef      `json:"consumed_by,omitempty"`
}

type partitionJSON struct {
	Type   string `json:"type"`
	Factor int    `json:"factor"`
}

// Graph is the serialized form of a validated compilation.
type Graph struct {
	Top     string             `json:"top"`
	Tasks   map[string]*Task   `json:"tasks"`
	Fifos   map[string]*Fifo   `json:"fifos"`
	Buffers map[string]*Buffer `json:"buffers"`
}

// FromGraph converts a validated graph into its serialized form.
func FromGraph(g *graph.Graph) *Graph {
	out := &Graph{
		Top:     g.Top,
		Tasks:   map[string]*Task{},
		Fifos:   map[string]*Fifo{},
		Buffers: map[string]*Buffer{},
	}
	for _, name := range g.TaskOrder {
		t := g.Tasks[name]
		mt := &Task{
			Level:  t.Level.String(),
			Target: t.Target,
			Vendor: t.Vendor,
		}
		for _, p := range t.Ports {
			mt.Ports = append(mt.Ports, Port{
				Name: p.Name, Cat: p.Cat.String(), Width: p.Width, Type: p.Elem, Len: p.Len,
			})
		}
		for _, inst := range t.Instances {
			mi := Instance{
				Parent: inst.Parent,
				Step:   inst.Step,
				Name:   inst.Name,
				Args:   map[string]Arg{},
			}
			for _, a := range inst.Args {
				mi.Args[a.Port] = Arg{Cat: a.Cat.String(), Arg: a.Value}
			}
			mt.Instances = append(mt.Instances, mi)
		}
		out.Tasks[name] = mt
	}
	for _, name := range g.ChannelOrder {
		ch, ok := g.Channels[name]
		if !ok || !ch.Declared {
			continue
		}
		switch ch.Kind {
		case graph.KindStream:
			out.Fifos[name] = &Fifo{
				Depth:      ch.Stream.Depth,
				Width:      ch.Stream.Width,
				Type:       ch.Stream.Elem,
				ProducedBy: ch.ProducedBy,
				ConsumedBy: ch.ConsumedBy,
			}
		case graph.KindBuffer:
			cfg := ch.Buffer
			mb := &Buffer{
				Width:        cfg.Width,
				Type:         cfg.Elem,
				Dims:         cfg.Dims,
				Sections:     cfg.Sections,
				Memory:       cfg.Memory.String(),
				MemCoreCount: cfg.MemCoreCount(),
				MemCoreSize:  cfg.MemCoreSize(),
				AddrWidth:    cfg.AddrWidth(),
				ProducedBy:   ch.ProducedBy,
				ConsumedBy:   ch.ConsumedBy,
			}
			for _, p := range cfg.Partitions {
				mb.Partitions = append(mb.Partitions, partitionJSON{
					Type: p.Kind.String(), Factor: p.Factor,
				})
			}
			out.Buffers[name] = mb
		}
	}
	return out
}

// Write serializes the graph as indented JSON.
func (g *Graph) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("failed to encode metadata graph: %w", err)
	}
	return nil
}

// Load reads a serialized graph back; serializing and reloading reproduces
// an identical structure.
func Load(r io.Reader) (*Graph, error) {
	var g Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("failed to decode metadata graph: %w", err)
	}
	return &g, nil
}
