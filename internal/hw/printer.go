// Package hw renders the RTL support modules a compiled design
// instantiates: per-buffer wrapper modules wiring memory cores to the
// section index queues, and relay-station chains for channels that cross
// physical regions. It also carries a cycle-level model of the index
// queue used to check the initialization protocol.
package hw

import (
	"fmt"
	"io"
	"strings"
)

// printer accumulates indented source lines and latches the first write
// error so emission code stays free of error plumbing.
type printer struct {
	w      io.Writer
	indent int
	err    error
}

func (p *printer) in()  { p.indent++ }
func (p *printer) out() { p.indent-- }

func (p *printer) linef(format string, args ...any) {
	if p.err != nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	if line != "" {
		line = strings.Repeat("  ", p.indent) + line
	}
	_, p.err = io.WriteString(p.w, line+"\n")
}

func (p *printer) blank() { p.linef("") }
