// Package diag defines the structured diagnostics produced by a compilation.
//
// Diagnostics are values that accumulate in a List and are returned to the
// caller; no component reports through a shared engine or global state. This
// keeps every pass deterministic and lets tests assert on exact diagnostic
// contents. Rendering reuses HCL's diagnostic writer so every report carries
// a source excerpt alongside its severity and stable code.
package diag

import (
	"fmt"
	"io"

	"github.com/hashicorp/hcl/v2"
)

// Severity classifies how a diagnostic affects the compilation.
type Severity int

const (
	// Error diagnostics fail the compilation once the current pass finishes.
	Error Severity = iota
	// Warning diagnostics are reported but never fail the compilation.
	Warning
	// Remark diagnostics are informational, e.g. the vectorized index
	// wraparound notice.
	Remark
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Remark:
		return "remark"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Stable diagnostic codes. The leading digit groups codes by class:
// 1xxx structural, 2xxx consistency, 3xxx advisory, 4xxx lowering.
const (
	CodeBadInvokeTarget   = "FF1001" // first invoke argument is not a declared task
	CodeBadArgument       = "FF1002" // argument matches no recognized form
	CodeNotConstant       = "FF1003" // expression does not evaluate at compile time
	CodeDoubleProduce     = "FF2001"
	CodeDoubleConsume     = "FF2002"
	CodeOnlyProduced      = "FF2003" // produced but never consumed
	CodeOnlyConsumed      = "FF2004" // consumed but never produced
	CodeUnusedChannel     = "FF3001"
	CodeIndexWraparound   = "FF3002"
	CodeUnsupportedTarget = "FF4001"
)

// Diagnostic is a single report tied to a source location.
type Diagnostic struct {
	Severity Severity
	Code     string
	Summary  string
	Detail   string
	Subject  *hcl.Range
}

func (d *Diagnostic) Error() string {
	if d.Subject != nil {
		return fmt.Sprintf("%s: %s [%s] %s", d.Subject, d.Severity, d.Code, d.Summary)
	}
	return fmt.Sprintf("%s [%s] %s", d.Severity, d.Code, d.Summary)
}

// List accumulates diagnostics across a whole traversal. The compiler keeps
// going after errors so one run reports as many problems as it safely can.
type List []*Diagnostic

// Append adds diagnostics to the list and returns the extended list, in the
// style of hcl.Diagnostics.
func (l List) Append(ds ...*Diagnostic) List {
	return append(l, ds...)
}

// HasErrors reports whether the list contains at least one Error diagnostic.
func (l List) HasErrors() bool {
	for _, d := range l {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Err returns the first error diagnostic as an error, or nil. The full list
// should still be rendered for the user; Err only drives the exit path.
func (l List) Err() error {
	for _, d := range l {
		if d.Severity == Error {
			return d
		}
	}
	return nil
}

// Count returns the number of diagnostics with the given severity.
func (l List) Count(s Severity) int {
	n := 0
	for _, d := range l {
		if d.Severity == s {
			n++
		}
	}
	return n
}

// HCL converts the list into hcl.Diagnostics for rendering. Remarks map to
// HCL warnings; the severity is preserved textually in the summary prefix.
func (l List) HCL() hcl.Diagnostics {
	var out hcl.Diagnostics
	for _, d := range l {
		sev := hcl.DiagWarning
		if d.Severity == Error {
			sev = hcl.DiagError
		}
		out = append(out, &hcl.Diagnostic{
			Severity: sev,
			Summary:  fmt.Sprintf("[%s] %s", d.Code, d.Summary),
			Detail:   d.Detail,
			Subject:  d.Subject,
		})
	}
	return out
}

// Write renders the list to w with source excerpts drawn from files, which
// is the parser's file map keyed by filename.
func (l List) Write(w io.Writer, files map[string]*hcl.File) error {
	if len(l) == 0 {
		return nil
	}
	return hcl.NewDiagnosticTextWriter(w, files, 100, false).WriteDiagnostics(l.HCL())
}

// FromHCL converts parser/decoder diagnostics into the structured form so
// syntax problems flow through the same reporting path as semantic ones.
func FromHCL(code string, ds hcl.Diagnostics) List {
	var out List
	for _, d := range ds {
		sev := Warning
		if d.Severity == hcl.DiagError {
			sev = Error
		}
		out = append(out, &Diagnostic{
			Severity: sev,
			Code:     code,
			Summary:  d.Summary,
			Detail:   d.Detail,
			Subject:  d.Subject,
		})
	}
	return out
}
