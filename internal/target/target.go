// Package target is the polymorphic code-generation backend. A Target
// emits vendor-specific code for each port category at each hierarchy
// level; the dispatch skeleton that iterates ports and routes them to the
// category hooks lives here and is never overridden. New vendors extend
// the compiler by implementing Target (usually by embedding Base and
// overriding only the hooks they need) and registering themselves; no
// type switches on vendor exist anywhere.
package target

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"

	"github.com/flowforge-hdl/flowforge/internal/diag"
	"github.com/flowforge-hdl/flowforge/internal/graph"
)

// Emitter collects generated source lines for one task rewrite.
type Emitter struct {
	lines []string
}

// AddLine appends one raw line.
func (e *Emitter) AddLine(line string) {
	e.lines = append(e.lines, line)
}

// AddPragma appends a directive line assembled from args.
func (e *Emitter) AddPragma(args ...string) {
	e.lines = append(e.lines, "#pragma "+strings.Join(args, " "))
}

// Lines returns the collected lines.
func (e *Emitter) Lines() []string { return e.lines }

// Target is the capability set a vendor backend implements: one hook per
// {hierarchy level} x {port category}, a top-level hook for host-shim
// bridging code, and statement-level rewrites for pipeline and unroll
// directives.
type Target interface {
	// TopLevelFunc emits the bridging code needed to invoke the design
	// from a host-side shim.
	TopLevelFunc(t *graph.Task, e *Emitter)

	TopLevelScalar(p graph.Port, e *Emitter)
	MiddleLevelScalar(p graph.Port, e *Emitter)
	LowerLevelScalar(p graph.Port, e *Emitter)

	TopLevelMmap(p graph.Port, e *Emitter)
	MiddleLevelMmap(p graph.Port, e *Emitter)
	LowerLevelMmap(p graph.Port, e *Emitter)

	TopLevelAsyncMmap(p graph.Port, e *Emitter)
	MiddleLevelAsyncMmap(p graph.Port, e *Emitter)
	LowerLevelAsyncMmap(p graph.Port, e *Emitter)

	TopLevelStream(p graph.Port, e *Emitter)
	MiddleLevelStream(p graph.Port, e *Emitter)
	LowerLevelStream(p graph.Port, e *Emitter)

	MiddleLevelBuffer(p graph.Port, e *Emitter)
	LowerLevelBuffer(p graph.Port, e *Emitter)

	// RewritePipeline and RewriteUnroll turn a directive marker inside
	// leaf code into vendor syntax. The marker line is dropped when the
	// result is empty.
	RewritePipeline(args string) string
	RewriteUnroll(args string) string
}

// Base is the default backend: every hook is a no-op, so an unknown
// vendor degrades to structurally correct but unannotated output. Vendor
// targets embed Base and override the hooks they support.
type Base struct{}

func (Base) TopLevelFunc(*graph.Task, *Emitter) {}

func (Base) TopLevelScalar(graph.Port, *Emitter)    {}
func (Base) MiddleLevelScalar(graph.Port, *Emitter) {}
func (Base) LowerLevelScalar(graph.Port, *Emitter)  {}

func (Base) TopLevelMmap(graph.Port, *Emitter)    {}
func (Base) MiddleLevelMmap(graph.Port, *Emitter) {}
func (Base) LowerLevelMmap(graph.Port, *Emitter)  {}

func (Base) TopLevelAsyncMmap(graph.Port, *Emitter)    {}
func (Base) MiddleLevelAsyncMmap(graph.Port, *Emitter) {}
func (Base) LowerLevelAsyncMmap(graph.Port, *Emitter)  {}

func (Base) TopLevelStream(graph.Port, *Emitter)    {}
func (Base) MiddleLevelStream(graph.Port, *Emitter) {}
func (Base) LowerLevelStream(graph.Port, *Emitter)  {}

func (Base) MiddleLevelBuffer(graph.Port, *Emitter) {}
func (Base) LowerLevelBuffer(graph.Port, *Emitter)  {}

func (Base) RewritePipeline(string) string { return "" }
func (Base) RewriteUnroll(string) string   { return "" }

// GenerateTopLevel runs the top-level dispatch skeleton: iterate the
// task's ports, route each to its category hook, then add the host-shim
// bridging code. Buffer ports do not surface at the top level and fall
// through to the scalar hook.
func GenerateTopLevel(tgt Target, task *graph.Task) []string {
	e := &Emitter{lines: []string{""}}
	for _, p := range task.Ports {
		switch {
		case p.Cat.IsStream():
			tgt.TopLevelStream(p, e)
		case p.Cat == graph.CatAsyncMmap:
			tgt.TopLevelAsyncMmap(p, e)
		case p.Cat == graph.CatMmap:
			tgt.TopLevelMmap(p, e)
		default:
			tgt.TopLevelScalar(p, e)
		}
		e.AddLine("")
	}
	e.AddLine("")
	tgt.TopLevelFunc(task, e)
	return e.Lines()
}

// GenerateMiddleLevel emits only per-port interface declarations for a
// task that instantiates children.
func GenerateMiddleLevel(tgt Target, task *graph.Task) []string {
	e := &Emitter{lines: []string{""}}
	for _, p := range task.Ports {
		switch {
		case p.Cat.IsStream():
			tgt.MiddleLevelStream(p, e)
		case p.Cat.IsBuffer():
			tgt.MiddleLevelBuffer(p, e)
		case p.Cat == graph.CatAsyncMmap:
			tgt.MiddleLevelAsyncMmap(p, e)
		case p.Cat == graph.CatMmap:
			tgt.MiddleLevelMmap(p, e)
		default:
			tgt.MiddleLevelScalar(p, e)
		}
		e.AddLine("")
	}
	return e.Lines()
}

// GenerateLowerLevel emits per-port annotations for a leaf task.
func GenerateLowerLevel(tgt Target, task *graph.Task) []string {
	e := &Emitter{lines: []string{""}}
	for _, p := range task.Ports {
		switch {
		case p.Cat.IsStream():
			tgt.LowerLevelStream(p, e)
		case p.Cat.IsBuffer():
			tgt.LowerLevelBuffer(p, e)
		case p.Cat == graph.CatAsyncMmap:
			tgt.LowerLevelAsyncMmap(p, e)
		case p.Cat == graph.CatMmap:
			tgt.LowerLevelMmap(p, e)
		default:
			tgt.LowerLevelScalar(p, e)
		}
		e.AddLine("")
	}
	return e.Lines()
}

// RewriteLeafCode passes opaque leaf code through, replacing #pipeline and
// #unroll marker lines with the vendor's directive syntax. Leaf rewrite
// only annotates existing loops and arrays; the computation itself is
// untouched.
func RewriteLeafCode(tgt Target, code string) string {
	if code == "" {
		return ""
	}
	var out []string
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		switch {
		case strings.HasPrefix(trimmed, "#pipeline"):
			if d := tgt.RewritePipeline(strings.TrimSpace(trimmed[len("#pipeline"):])); d != "" {
				out = append(out, indent+d)
			}
		case strings.HasPrefix(trimmed, "#unroll"):
			if d := tgt.RewriteUnroll(strings.TrimSpace(trimmed[len("#unroll"):])); d != "" {
				out = append(out, indent+d)
			}
		default:
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// Render produces the rewritten source for one task at its hierarchy
// level: a signature, the level-specific generated fragment, and either
// the child instantiation sequence or the rewritten leaf body.
func Render(tgt Target, task *graph.Task) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "// task %s (%s level)\n", task.Name, task.Level)
	fmt.Fprintf(&sb, "void %s(%s) {\n", task.Name, signature(task))

	var fragment []string
	switch task.Level {
	case graph.LevelTop:
		fragment = GenerateTopLevel(tgt, task)
	case graph.LevelMiddle:
		fragment = GenerateMiddleLevel(tgt, task)
	default:
		fragment = GenerateLowerLevel(tgt, task)
	}
	for _, line := range fragment {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	if task.Level == graph.LevelLeaf {
		sb.WriteString(RewriteLeafCode(tgt, task.Code))
		if task.Code != "" && !strings.HasSuffix(task.Code, "\n") {
			sb.WriteByte('\n')
		}
	} else {
		for _, inst := range task.Children {
			args := make([]string, len(inst.Args))
			for i, a := range inst.Args {
				args[i] = a.Value
			}
			name := inst.Name
			if name == "" {
				name = fmt.Sprintf("%s_%d", inst.Callee, inst.Index)
			}
			fmt.Fprintf(&sb, "  invoke<%d>(%s /*%s*/, %s);\n",
				inst.Step, inst.Callee, name, strings.Join(args, ", "))
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

func signature(task *graph.Task) string {
	params := make([]string, len(task.Ports))
	for i, p := range task.Ports {
		decl := fmt.Sprintf("%s %s", paramType(p), p.Name)
		if p.IsArray() {
			decl = fmt.Sprintf("%s %s[%d]", paramType(p), p.Name, p.Len)
		}
		params[i] = decl
	}
	return strings.Join(params, ", ")
}

func paramType(p graph.Port) string {
	switch {
	case p.Cat.IsMmap():
		return p.Elem + "*"
	case p.Cat == graph.CatIStream:
		return fmt.Sprintf("istream<%s>&", p.Elem)
	case p.Cat == graph.CatOStream:
		return fmt.Sprintf("ostream<%s>&", p.Elem)
	case p.Cat == graph.CatIBuffer:
		return fmt.Sprintf("ibuffer<%s>&", p.Elem)
	case p.Cat == graph.CatOBuffer:
		return fmt.Sprintf("obuffer<%s>&", p.Elem)
	}
	return p.Elem
}

// Registry maps (target, vendor) pairs to backends. An unsupported pair
// falls back to the default backend with a recoverable diagnostic instead
// of aborting the compilation.
type Registry struct {
	targets  map[string]Target
	fallback Target
}

// NewRegistry returns a registry pre-populated with the built-in vendors
// and the no-op default as fallback.
func NewRegistry() *Registry {
	r := &Registry{targets: map[string]Target{}, fallback: Base{}}
	r.Register("hls", "xilinx", XilinxHLS{})
	return r
}

// Register adds a backend for a (target, vendor) pair.
func (r *Registry) Register(target, vendor string, t Target) {
	r.targets[target+"/"+vendor] = t
}

// Lookup resolves the backend for a task's (target, vendor) pair. When the
// pair is unsupported it returns the fallback plus a diagnostic; the
// compilation continues.
func (r *Registry) Lookup(target, vendor string, rng hcl.Range) (Target, *diag.Diagnostic) {
	if t, ok := r.targets[target+"/"+vendor]; ok {
		return t, nil
	}
	return r.fallback, &diag.Diagnostic{
		Severity: diag.Warning,
		Code:     diag.CodeUnsupportedTarget,
		Summary:  fmt.Sprintf("unsupported target: %s by %s", target, vendor),
		Detail:   "Falling back to the default backend; the task is emitted without vendor annotations.",
		Subject:  &rng,
	}
}
