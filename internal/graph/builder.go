package graph

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/flowforge-hdl/flowforge/internal/channel"
	"github.com/flowforge-hdl/flowforge/internal/ctxlog"
	"github.com/flowforge-hdl/flowforge/internal/diag"
	"github.com/flowforge-hdl/flowforge/internal/schema"
)

// DefaultTarget and DefaultVendor are assumed for tasks that do not carry
// explicit target attributes.
const (
	DefaultTarget = "hls"
	DefaultVendor = "xilinx"
)

// Build constructs the hierarchical dataflow graph rooted at the task named
// top. Structural problems accumulate as diagnostics across the whole
// traversal; the returned graph is meaningful only if the list carries no
// errors.
func Build(ctx context.Context, design *schema.Design, top string) (*Graph, diag.List) {
	logger := ctxlog.FromContext(ctx)
	b := &builder{
		design: design,
		g: &Graph{
			Top:      top,
			Tasks:    map[string]*Task{},
			Channels: map[string]*Channel{},
		},
		arrayLens: map[string]int{},
		accessPos: map[PortCat]map[string]int{},
		seqPos:    map[hcl.Expression]int{},
	}

	topDecl := design.TaskByName(top)
	if topDecl == nil {
		b.diags = b.diags.Append(&diag.Diagnostic{
			Severity: diag.Error,
			Code:     diag.CodeBadInvokeTarget,
			Summary:  fmt.Sprintf("top-level task %q is not declared", top),
		})
		return b.g, b.diags
	}

	// Process tasks reachable from the top, one pass each, breadth-first
	// so parents are processed before their children.
	worklist := []*schema.Task{topDecl}
	processed := map[string]bool{}
	for len(worklist) > 0 {
		decl := worklist[0]
		worklist = worklist[1:]
		if processed[decl.Name] {
			continue
		}
		processed[decl.Name] = true
		task := b.taskFor(decl)
		for _, calleeName := range b.processBody(task, decl) {
			if callee := design.TaskByName(calleeName); callee != nil && !processed[callee.Name] {
				worklist = append(worklist, callee)
			}
		}
	}

	logger.Debug("Graph construction finished",
		"tasks", len(b.g.Tasks), "channels", len(b.g.Channels),
		"diagnostics", len(b.diags))
	return b.g, b.diags
}

type builder struct {
	design *schema.Design
	g      *Graph
	diags  diag.List

	// arrayLens records the declared length of arrayed channels, keyed by
	// base name, for round-robin element selection under vectorized
	// invocation.
	arrayLens map[string]int
	// accessPos holds the per-(array, direction) running access counters.
	accessPos map[PortCat]map[string]int
	// seqPos numbers each seq occurrence site independently.
	seqPos map[hcl.Expression]int
}

func (b *builder) errorf(rng hcl.Range, code, format string, args ...any) {
	r := rng
	b.diags = b.diags.Append(&diag.Diagnostic{
		Severity: diag.Error,
		Code:     code,
		Summary:  fmt.Sprintf(format, args...),
		Subject:  &r,
	})
}

// taskFor classifies a declaration into a Task, registering it in the
// graph on first sight.
func (b *builder) taskFor(decl *schema.Task) *Task {
	if t, ok := b.g.Tasks[decl.Name]; ok {
		return t
	}
	t := &Task{
		Name:      decl.Name,
		Level:     LevelLeaf,
		Target:    decl.Target,
		Vendor:    decl.Vendor,
		Code:      decl.Code,
		DeclRange: decl.DeclRange(),
	}
	if t.Target == "" {
		t.Target = DefaultTarget
	}
	if t.Vendor == "" {
		t.Vendor = DefaultVendor
	}
	for _, p := range decl.Ports {
		cat, err := ParsePortCat(p.Cat)
		if err != nil {
			b.errorf(t.DeclRange, diag.CodeBadArgument,
				"port %q of task %q: %v", p.Name, decl.Name, err)
			continue
		}
		width := p.Width
		if width == 0 {
			width = defaultWidth(p.Type)
		}
		t.Ports = append(t.Ports, Port{
			Name: p.Name, Cat: cat, Elem: p.Type, Width: width, Len: p.Len,
		})
	}
	b.g.Tasks[decl.Name] = t
	b.g.TaskOrder = append(b.g.TaskOrder, decl.Name)
	return t
}

// processBody scans a task body for channel declarations and invocation
// sites, and returns the names of the invoked tasks.
func (b *builder) processBody(task *Task, decl *schema.Task) []string {
	if decl.Leaf {
		return nil
	}
	b.declareChannels(decl)

	invokes := collectInvokes(decl)
	if len(invokes) == 0 {
		return nil
	}
	if task.Name == b.g.Top {
		task.Level = LevelTop
	} else {
		task.Level = LevelMiddle
	}

	var callees []string
	for _, inv := range invokes {
		if name, ok := b.resolveInvoke(task, inv); ok {
			callees = append(callees, name)
		}
	}
	return callees
}

// collectInvokes locates every invocation under a task body, including
// those nested in stage blocks at arbitrary depth. The search is driven by
// an explicit worklist so traversal depth is bounded by the worklist, not
// the call stack.
func collectInvokes(decl *schema.Task) []*schema.Invoke {
	invokes := append([]*schema.Invoke{}, decl.Invokes...)
	stack := make([]*schema.Stage, 0, len(decl.Stages))
	for i := len(decl.Stages) - 1; i >= 0; i-- {
		stack = append(stack, decl.Stages[i])
	}
	for len(stack) > 0 {
		stage := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		invokes = append(invokes, stage.Invokes...)
		for i := len(stage.Stages) - 1; i >= 0; i-- {
			stack = append(stack, stage.Stages[i])
		}
	}
	return invokes
}

func (b *builder) declareChannels(decl *schema.Task) {
	for _, s := range decl.Streams {
		b.addChannel(s.Name, s.Remain.MissingItemRange(), &Channel{
			Kind:   KindStream,
			Stream: &channel.StreamConfig{Elem: s.Type, Width: widthOr(s.Width, s.Type), Depth: s.Depth},
		})
	}
	for _, s := range decl.StreamArrays {
		b.arrayLens[s.Name] = s.Len
		for i := 0; i < s.Len; i++ {
			b.addChannel(channel.ArrayElem(s.Name, i), s.Remain.MissingItemRange(), &Channel{
				Kind:   KindStream,
				Stream: &channel.StreamConfig{Elem: s.Type, Width: widthOr(s.Width, s.Type), Depth: s.Depth},
			})
		}
	}
	for _, bd := range decl.Buffers {
		cfg, ok := b.bufferConfig(bd.Type, bd.Width, bd.Dims, bd.Sections, bd.Partition, bd.Memory, bd.Remain.MissingItemRange())
		if !ok {
			continue
		}
		b.addChannel(bd.Name, bd.Remain.MissingItemRange(), &Channel{Kind: KindBuffer, Buffer: cfg})
	}
	for _, bd := range decl.BufferArrays {
		cfg, ok := b.bufferConfig(bd.Type, bd.Width, bd.Dims, bd.Sections, bd.Partition, bd.Memory, bd.Remain.MissingItemRange())
		if !ok {
			continue
		}
		b.arrayLens[bd.Name] = bd.Len
		for i := 0; i < bd.Len; i++ {
			c := *cfg
			b.addChannel(channel.ArrayElem(bd.Name, i), bd.Remain.MissingItemRange(), &Channel{Kind: KindBuffer, Buffer: &c})
		}
	}
}

func (b *builder) bufferConfig(elem string, width int, dims []int, sections int, partition []string, memory string, rng hcl.Range) (*channel.BufferConfig, bool) {
	if sections < 1 {
		b.errorf(rng, diag.CodeBadArgument, "buffer must have at least one section, got %d", sections)
		return nil, false
	}
	partitions := make([]channel.Partition, len(dims))
	for i := range dims {
		if i >= len(partition) {
			break
		}
		p, err := channel.ParsePartition(partition[i])
		if err != nil {
			b.errorf(rng, diag.CodeBadArgument, "%v", err)
			return nil, false
		}
		partitions[i] = p
	}
	mem, err := channel.ParseMemTech(memory)
	if err != nil {
		b.errorf(rng, diag.CodeBadArgument, "%v", err)
		return nil, false
	}
	return &channel.BufferConfig{
		Elem:       elem,
		Width:      widthOr(width, elem),
		Dims:       dims,
		Sections:   sections,
		Partitions: partitions,
		Memory:     mem,
	}, true
}

func (b *builder) addChannel(name string, rng hcl.Range, ch *Channel) {
	ch.Name = name
	ch.Declared = true
	ch.DeclRange = rng
	b.g.Channels[name] = ch
	b.g.ChannelOrder = append(b.g.ChannelOrder, name)
}

// channelEntry returns the channel with the given name, creating an
// undeclared entry for port-passthrough arguments on first binding.
func (b *builder) channelEntry(name string, kind ChannelKind, rng hcl.Range) *Channel {
	if ch, ok := b.g.Channels[name]; ok {
		return ch
	}
	ch := &Channel{Name: name, Kind: kind, DeclRange: rng}
	b.g.Channels[name] = ch
	b.g.ChannelOrder = append(b.g.ChannelOrder, name)
	return ch
}

// resolveInvoke expands one invocation site, iterating replicas outer and
// arguments inner, and registers every channel binding. It reports the
// callee's name when the invocation target resolves.
func (b *builder) resolveInvoke(parent *Task, inv *schema.Invoke) (string, bool) {
	exprs, hclDiags := hcl.ExprList(inv.Args)
	if hclDiags.HasErrors() {
		b.diags = b.diags.Append(diag.FromHCL(diag.CodeBadArgument, hclDiags)...)
		return "", false
	}
	if len(exprs) == 0 {
		b.errorf(inv.Args.Range(), diag.CodeBadInvokeTarget, "invocation has no arguments")
		return "", false
	}

	calleeName, _, ok := plainRef(exprs[0])
	calleeDecl := (*schema.Task)(nil)
	if ok {
		calleeDecl = b.design.TaskByName(calleeName)
	}
	if calleeDecl == nil {
		b.errorf(exprs[0].Range(), diag.CodeBadInvokeTarget,
			"unexpected invocation target: first argument does not name a declared task")
		return "", false
	}
	callee := b.taskFor(calleeDecl)

	instName, hasName := stringLit(exprs, 1)

	step := 0
	if inv.Step != nil {
		step = *inv.Step
	}
	count := inv.Count
	if count < 1 {
		count = 1
	}

	for rep := 0; rep < count; rep++ {
		instance := &Invocation{
			Parent: parent.Name,
			Callee: callee.Name,
			Step:   step,
			Index:  len(callee.Instances),
			Name:   instName,
			Range:  inv.Args.Range(),
		}
		callee.Instances = append(callee.Instances, instance)
		parent.Children = append(parent.Children, instance)

		for i := 1; i < len(exprs); i++ {
			if i == 1 && hasName {
				continue
			}
			paramIdx := i - 1
			if hasName {
				paramIdx--
			}
			if paramIdx >= len(callee.Ports) {
				b.errorf(exprs[i].Range(), diag.CodeBadArgument,
					"unexpected argument: task %q declares only %d ports", callee.Name, len(callee.Ports))
				break
			}
			b.bindArg(parent, instance, callee.Ports[paramIdx], exprs[i])
		}
	}
	return callee.Name, true
}

// bindArg resolves one caller-side argument expression against one callee
// parameter and registers the resulting channel bindings.
func (b *builder) bindArg(parent *Task, inst *Invocation, param Port, expr hcl.Expression) {
	form := b.classifyArg(expr)
	rng := expr.Range()

	switch form.kind {
	case argInvalid:
		b.errorf(rng, diag.CodeBadArgument,
			"unexpected argument: not a channel reference, array element, integer constant, or seq")
		return
	case argSeq:
		n := b.seqPos[expr]
		b.seqPos[expr]++
		b.addArg(inst, param.Name, CatScalar, fmt.Sprintf("64'd%d", n))
		return
	case argInt:
		b.addArg(inst, param.Name, CatScalar, fmt.Sprintf("64'd%d", form.value))
		return
	}

	// A reference or indexed element. Array-typed parameters pull one
	// caller-side element per parameter slot.
	name := form.name
	ref := StepRef{Task: inst.Callee, Index: inst.Index}
	if param.IsArray() && (param.Cat.IsStream() || param.Cat.IsBuffer() || param.Cat.IsMmap()) {
		for i := 0; i < param.Len; i++ {
			elem := b.nextElem(parent, name, param.Cat, rng)
			b.registerBinding(elem, param.Cat, ref, rng)
			b.addArg(inst, channel.ArrayElem(param.Name, i), param.Cat, elem)
		}
		return
	}

	switch {
	case param.Cat.IsStream() || param.Cat.IsBuffer() || param.Cat.IsMmap():
		elem := b.nextElem(parent, name, param.Cat, rng)
		b.registerBinding(elem, param.Cat, ref, rng)
		b.addArg(inst, param.Name, param.Cat, elem)
	default:
		b.addArg(inst, param.Name, CatScalar, name)
	}
}

func (b *builder) addArg(inst *Invocation, port string, cat PortCat, value string) {
	inst.Args = append(inst.Args, Arg{Port: port, Cat: cat, Value: value})
}

// registerBinding records a producer or consumer binding and reports the
// first double binding incrementally, as soon as it is registered. The
// earlier binding is kept so the first offender wins the report.
func (b *builder) registerBinding(name string, cat PortCat, ref StepRef, rng hcl.Range) {
	kind := KindStream
	if cat.IsBuffer() {
		kind = KindBuffer
	}
	if cat.IsMmap() {
		return // mmap interfaces are host-visible, not channels
	}
	ch := b.channelEntry(name, kind, rng)
	switch {
	case cat.Produces():
		if ch.ProducedBy != nil {
			b.errorf(rng, diag.CodeDoubleProduce,
				"%s %q produced more than once", ch.Kind, name)
			return
		}
		ch.ProducedBy = &StepRef{Task: ref.Task, Index: ref.Index}
	case cat.Consumes():
		if ch.ConsumedBy != nil {
			b.errorf(rng, diag.CodeDoubleConsume,
				"%s %q consumed more than once", ch.Kind, name)
			return
		}
		ch.ConsumedBy = &StepRef{Task: ref.Task, Index: ref.Index}
	}
}

// nextElem maps a caller-side name onto a concrete channel element. For an
// arrayed declaration the bound index is the per-(array, direction)
// running access counter modulo the declared length; the counter advances
// on every access. Wraparound past the declared length intentionally
// reuses elements round-robin and is reported as a remark, not an error.
func (b *builder) nextElem(parent *Task, name string, cat PortCat, rng hcl.Range) string {
	pos := b.accessPos[dirCat(cat)]
	if pos == nil {
		pos = map[string]int{}
		b.accessPos[dirCat(cat)] = pos
	}
	i := pos[name]
	pos[name]++

	length := b.callerArrayLen(parent, name)
	if length == 0 {
		return name
	}
	if i >= length {
		r := rng
		b.diags = b.diags.Append(&diag.Diagnostic{
			Severity: diag.Remark,
			Code:     diag.CodeIndexWraparound,
			Summary:  fmt.Sprintf("invocation #%d accesses '%s[%d]'", i, name, i%length),
			Subject:  &r,
		})
	}
	return channel.ArrayElem(name, i%length)
}

// dirCat folds the async distinction away so mmap and async_mmap share one
// access counter per array, matching the per-direction counter model.
func dirCat(cat PortCat) PortCat {
	if cat == CatAsyncMmap {
		return CatMmap
	}
	return cat
}

func (b *builder) callerArrayLen(parent *Task, name string) int {
	if n, ok := b.arrayLens[name]; ok {
		return n
	}
	if p := parent.PortByName(name); p != nil && p.IsArray() {
		return p.Len
	}
	return 0
}

type argKind int

const (
	argRef argKind = iota
	argSeq
	argInt
	argInvalid
)

type argForm struct {
	kind  argKind
	name  string
	value int64
}

// classifyArg recognizes the four argument forms: plain reference, indexed
// array element, compile-time integer constant, and the seq ordinal.
func (b *builder) classifyArg(expr hcl.Expression) argForm {
	if name, idx, ok := plainRef(expr); ok {
		if name == "seq" && idx < 0 {
			return argForm{kind: argSeq}
		}
		if idx >= 0 {
			return argForm{kind: argRef, name: channel.ArrayElem(name, idx)}
		}
		return argForm{kind: argRef, name: name}
	}
	if v, diags := expr.Value(nil); !diags.HasErrors() && v.IsKnown() && v.Type().Equals(cty.Number) {
		n, _ := v.AsBigFloat().Int64()
		return argForm{kind: argInt, value: n}
	}
	return argForm{kind: argInvalid}
}

// plainRef matches a bare identifier (idx < 0) or an identifier indexed by
// an integer constant.
func plainRef(expr hcl.Expression) (name string, idx int, ok bool) {
	traversal, diags := hcl.AbsTraversalForExpr(expr)
	if diags.HasErrors() || len(traversal) == 0 {
		return "", -1, false
	}
	name = traversal.RootName()
	if len(traversal) == 1 {
		return name, -1, true
	}
	if len(traversal) == 2 {
		if ix, isIdx := traversal[1].(hcl.TraverseIndex); isIdx && ix.Key.Type().Equals(cty.Number) {
			n, _ := ix.Key.AsBigFloat().Int64()
			return name, int(n), true
		}
	}
	return "", -1, false
}

// stringLit returns the string literal at position i of exprs, if any.
func stringLit(exprs []hcl.Expression, i int) (string, bool) {
	if i >= len(exprs) {
		return "", false
	}
	v, diags := exprs[i].Value(nil)
	if diags.HasErrors() || !v.IsKnown() || !v.Type().Equals(cty.String) {
		return "", false
	}
	return v.AsString(), true
}

var typeWidths = map[string]int{
	"bool": 1, "char": 8, "int8": 8, "uint8": 8,
	"int16": 16, "uint16": 16,
	"int": 32, "uint": 32, "int32": 32, "uint32": 32, "float": 32,
	"int64": 64, "uint64": 64, "double": 64,
}

// defaultWidth infers an element width for well-known type names; anything
// unrecognized defaults to one machine word.
func defaultWidth(elem string) int {
	if w, ok := typeWidths[elem]; ok {
		return w
	}
	return 32
}

func widthOr(width int, elem string) int {
	if width > 0 {
		return width
	}
	return defaultWidth(elem)
}
