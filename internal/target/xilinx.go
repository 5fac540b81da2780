package target

import (
	"fmt"

	"github.com/flowforge-hdl/flowforge/internal/graph"
)

// XilinxHLS generates Vitis HLS interface pragmas and directives. It is
// the reference backend; the dispatch skeleton in this package decides
// which hooks run at which level.
type XilinxHLS struct {
	Base
}

func (XilinxHLS) TopLevelScalar(p graph.Port, e *Emitter) {
	e.AddPragma("HLS", "interface", "s_axilite", "port="+p.Name, "bundle=control")
}

func (XilinxHLS) TopLevelMmap(p graph.Port, e *Emitter) {
	e.AddPragma("HLS", "interface", "m_axi", "port="+p.Name, "offset=slave",
		"bundle=gmem_"+p.Name)
	e.AddPragma("HLS", "interface", "s_axilite", "port="+p.Name, "bundle=control")
}

// Async access to external memory uses the same physical AXI port; the
// request/response split happens in the generated RTL, not in the
// interface contract.
func (x XilinxHLS) TopLevelAsyncMmap(p graph.Port, e *Emitter) {
	x.TopLevelMmap(p, e)
}

func (XilinxHLS) TopLevelStream(p graph.Port, e *Emitter) {
	e.AddPragma("HLS", "interface", "axis", "port="+p.Name)
}

func (XilinxHLS) MiddleLevelScalar(p graph.Port, e *Emitter) {
	e.AddPragma("HLS", "interface", "ap_none", "port="+p.Name)
}

func (XilinxHLS) MiddleLevelMmap(p graph.Port, e *Emitter) {
	e.AddPragma("HLS", "interface", "m_axi", "port="+p.Name, "offset=direct")
}

func (x XilinxHLS) MiddleLevelAsyncMmap(p graph.Port, e *Emitter) {
	x.MiddleLevelMmap(p, e)
}

func (XilinxHLS) MiddleLevelStream(p graph.Port, e *Emitter) {
	e.AddPragma("HLS", "interface", "ap_fifo", "port="+p.Name)
	e.AddPragma("HLS", "aggregate", "variable="+p.Name, "bit")
}

// A buffer port decomposes into a data array plus the two index queues
// that pass section ownership between the producer and the consumer side.
func (XilinxHLS) MiddleLevelBuffer(p graph.Port, e *Emitter) {
	e.AddPragma("HLS", "interface", "ap_memory", "port="+p.Name+".data")
	e.AddPragma("HLS", "interface", "ap_fifo", "port="+p.Name+".src")
	e.AddPragma("HLS", "interface", "ap_fifo", "port="+p.Name+".sink")
}

func (XilinxHLS) LowerLevelScalar(p graph.Port, e *Emitter) {
	e.AddPragma("HLS", "interface", "ap_none", "port="+p.Name)
	e.AddPragma("HLS", "stable", "variable="+p.Name)
}

func (XilinxHLS) LowerLevelMmap(p graph.Port, e *Emitter) {
	e.AddPragma("HLS", "interface", "m_axi", "port="+p.Name, "offset=direct")
}

func (x XilinxHLS) LowerLevelAsyncMmap(p graph.Port, e *Emitter) {
	x.LowerLevelMmap(p, e)
}

func (XilinxHLS) LowerLevelStream(p graph.Port, e *Emitter) {
	e.AddPragma("HLS", "interface", "ap_fifo", "port="+p.Name)
	e.AddPragma("HLS", "aggregate", "variable="+p.Name, "bit")
}

func (XilinxHLS) LowerLevelBuffer(p graph.Port, e *Emitter) {
	e.AddPragma("HLS", "interface", "ap_memory", "port="+p.Name+".data")
	e.AddPragma("HLS", "interface", "ap_fifo", "port="+p.Name+".src")
	e.AddPragma("HLS", "interface", "ap_fifo", "port="+p.Name+".sink")
}

// TopLevelFunc emits the host-side bridging table: one kernel-argument
// assignment per port, in port order, so the runtime shim can set OpenCL
// kernel arguments without parsing the design.
func (XilinxHLS) TopLevelFunc(t *graph.Task, e *Emitter) {
	e.AddLine("// host bridge for kernel " + t.Name)
	for i, p := range t.Ports {
		e.AddLine(fmt.Sprintf("// set_kernel_arg(%d, /*%s*/ %s);", i, p.Cat, p.Name))
	}
}

func (XilinxHLS) RewritePipeline(args string) string {
	if args == "" {
		return "#pragma HLS pipeline II=1"
	}
	return "#pragma HLS pipeline " + args
}

func (XilinxHLS) RewriteUnroll(args string) string {
	if args == "" {
		return "#pragma HLS unroll"
	}
	return "#pragma HLS unroll " + args
}
