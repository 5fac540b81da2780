package hw

import (
	"io"

	"github.com/flowforge-hdl/flowforge/internal/channel"
)

// WriteRelay renders a wrapper module that realizes one stream channel as
// a relay-station chain. The station's DEPTH parameter is the physical
// depth: the declared depth plus two slots per pipeline stage, so the
// chain never drops a write that was issued before backpressure arrived.
func WriteRelay(w io.Writer, name string, cfg *channel.StreamConfig, stages int) error {
	p := &printer{w: w}
	p.linef("`timescale 1 ns / 1 ps")
	p.blank()
	p.linef("module relay_%s (", name)
	p.in()
	p.linef("input  wire clk,")
	p.linef("input  wire reset,")
	p.linef("input  wire [%d:0] if_din,", cfg.Width-1)
	p.linef("input  wire if_write,")
	p.linef("output wire if_full_n,")
	p.linef("output wire [%d:0] if_dout,", cfg.Width-1)
	p.linef("input  wire if_read,")
	p.linef("output wire if_empty_n")
	p.out()
	p.linef(");")
	p.blank()
	p.in()
	p.linef("relay_station #(")
	p.in()
	p.linef(".DATA_WIDTH(%d),", cfg.Width)
	p.linef(".DEPTH(%d),", channel.PhysicalDepth(cfg.Depth, stages))
	p.linef(".LEVEL(%d)", stages)
	p.out()
	p.linef(") inst (")
	p.in()
	p.linef(".clk(clk),")
	p.linef(".reset(reset),")
	p.linef(".if_din(if_din),")
	p.linef(".if_write(if_write),")
	p.linef(".if_full_n(if_full_n),")
	p.linef(".if_dout(if_dout),")
	p.linef(".if_read(if_read),")
	p.linef(".if_empty_n(if_empty_n)")
	p.out()
	p.linef(");")
	p.out()
	p.blank()
	p.linef("endmodule")
	return p.err
}
