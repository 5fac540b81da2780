package hw

import (
	"fmt"
	"io"
	"math"

	"github.com/flowforge-hdl/flowforge/internal/channel"
)

// PartitionIndices enumerates the memory-core coordinates for the given
// per-dimension pattern counts, last dimension fastest. The strings name
// the memcore instances of a partitioned buffer.
func PartitionIndices(patterns []int) []string {
	coords := []string{""}
	for _, n := range patterns {
		var next []string
		for _, prefix := range coords {
			for i := 0; i < n; i++ {
				if prefix == "" {
					next = append(next, fmt.Sprintf("%d", i))
				} else {
					next = append(next, fmt.Sprintf("%s_%d", prefix, i))
				}
			}
		}
		coords = next
	}
	return coords
}

// indexWidth returns the bit width needed to address n sections.
func indexWidth(n int) int {
	if n <= 2 {
		return 1
	}
	return int(math.Ceil(math.Log2(float64(n))))
}

// WriteBuffer renders the wrapper module for one buffer channel. The
// wrapper instantiates one memory core per partition coordinate and the
// two index queues of the section protocol: the occupied queue carries
// section indices from producer to consumer, and the free queue carries
// them back, starting full with every section index so the producer can
// begin immediately after initialization.
//
// With stages > 0 each queue becomes a relay-station chain sized to the
// physical depth, and the free side uses the initialized variant so its
// preload survives the pipeline registers.
func WriteBuffer(w io.Writer, name string, cfg *channel.BufferConfig, stages int) error {
	iw := indexWidth(cfg.Sections)
	p := &printer{w: w}
	p.linef("`timescale 1 ns / 1 ps")
	p.blank()
	p.linef("module buffer_%s #(", name)
	p.in()
	p.linef("parameter DATA_WIDTH  = %d,", cfg.Width)
	p.linef("parameter ADDR_WIDTH  = %d,", cfg.AddrWidth())
	p.linef("parameter INDEX_WIDTH = %d,", iw)
	p.linef("parameter N_SECTIONS  = %d", cfg.Sections)
	p.out()
	p.linef(") (")
	p.in()
	p.linef("input  wire clk,")
	p.linef("input  wire reset,")
	p.blank()
	p.linef("// producer side")
	p.linef("input  wire [ADDR_WIDTH-1:0] src_waddr,")
	p.linef("input  wire [DATA_WIDTH-1:0] src_wdata,")
	p.linef("input  wire src_we,")
	p.linef("input  wire [INDEX_WIDTH-1:0] src_index_din,")
	p.linef("input  wire src_index_write,")
	p.linef("output wire src_index_full_n,")
	p.linef("output wire [INDEX_WIDTH-1:0] src_free_dout,")
	p.linef("input  wire src_free_read,")
	p.linef("output wire src_free_empty_n,")
	p.blank()
	p.linef("// consumer side")
	p.linef("input  wire [ADDR_WIDTH-1:0] sink_raddr,")
	p.linef("output wire [DATA_WIDTH-1:0] sink_rdata,")
	p.linef("output wire [INDEX_WIDTH-1:0] sink_index_dout,")
	p.linef("input  wire sink_index_read,")
	p.linef("output wire sink_index_empty_n,")
	p.linef("input  wire [INDEX_WIDTH-1:0] sink_free_din,")
	p.linef("input  wire sink_free_write,")
	p.linef("output wire sink_free_full_n")
	p.out()
	p.linef(");")
	p.blank()
	p.in()

	for _, coord := range PartitionIndices(cfg.DimPatterns()) {
		inst := "memcore"
		if coord != "" {
			inst = "memcore_" + coord
		}
		p.linef("memcore_%s #(", cfg.Memory)
		p.in()
		p.linef(".DATA_WIDTH(DATA_WIDTH),")
		p.linef(".ADDR_WIDTH(ADDR_WIDTH),")
		p.linef(".DEPTH(%d)", cfg.MemCoreSize())
		p.out()
		p.linef(") %s (", inst)
		p.in()
		p.linef(".clk(clk),")
		p.linef(".waddr(src_waddr),")
		p.linef(".wdata(src_wdata),")
		p.linef(".we(src_we),")
		p.linef(".raddr(sink_raddr),")
		p.linef(".rdata(sink_rdata)")
		p.out()
		p.linef(");")
		p.blank()
	}

	occMod, freeMod := "fifo", "initialized_fifo"
	if stages > 0 {
		occMod, freeMod = "relay_station", "initialized_relay_station"
	}
	depth := channel.PhysicalDepth(cfg.Sections, stages)

	p.linef("// occupied sections, producer to consumer")
	p.linef("%s #(", occMod)
	p.in()
	p.linef(".DATA_WIDTH(INDEX_WIDTH),")
	p.linef(".DEPTH(%d),", depth)
	if stages > 0 {
		p.linef(".LEVEL(%d),", stages)
	}
	p.linef(".ADDR_WIDTH(%d)", indexWidth(depth))
	p.out()
	p.linef(") occupied_q (")
	p.in()
	p.linef(".clk(clk),")
	p.linef(".reset(reset),")
	p.linef(".if_din(src_index_din),")
	p.linef(".if_write(src_index_write),")
	p.linef(".if_full_n(src_index_full_n),")
	p.linef(".if_dout(sink_index_dout),")
	p.linef(".if_read(sink_index_read),")
	p.linef(".if_empty_n(sink_index_empty_n)")
	p.out()
	p.linef(");")
	p.blank()

	p.linef("// free sections, consumer back to producer, preloaded 0..N-1")
	p.linef("%s #(", freeMod)
	p.in()
	p.linef(".DATA_WIDTH(INDEX_WIDTH),")
	p.linef(".DEPTH(%d),", depth)
	if stages > 0 {
		p.linef(".LEVEL(%d),", stages)
	}
	p.linef(".INIT_LENGTH(N_SECTIONS),")
	p.linef(".ADDR_WIDTH(%d)", indexWidth(depth))
	p.out()
	p.linef(") free_q (")
	p.in()
	p.linef(".clk(clk),")
	p.linef(".reset(reset),")
	p.linef(".if_din(sink_free_din),")
	p.linef(".if_write(sink_free_write),")
	p.linef(".if_full_n(sink_free_full_n),")
	p.linef(".if_dout(src_free_dout),")
	p.linef(".if_read(src_free_read),")
	p.linef(".if_empty_n(src_free_empty_n)")
	p.out()
	p.linef(");")
	p.out()
	p.blank()
	p.linef("endmodule")
	return p.err
}
