package graph

import (
	"context"
	"fmt"

	"github.com/flowforge-hdl/flowforge/internal/ctxlog"
	"github.com/flowforge-hdl/flowforge/internal/diag"
)

// Validate enforces the channel binding invariants after construction.
// Double bindings are already rejected incrementally during the build;
// what remains is the per-channel endpoint census:
//
//   - no bindings at all: advisory, the channel is pruned from the graph;
//   - exactly one side bound: fatal, the missing side is named;
//   - both sides bound: the channel is retained.
//
// Only declared channels participate: entries created for port-passthrough
// arguments are resolved one level up the hierarchy.
func Validate(ctx context.Context, g *Graph) diag.List {
	logger := ctxlog.FromContext(ctx)
	var diags diag.List

	retained := g.ChannelOrder[:0]
	for _, name := range g.ChannelOrder {
		ch := g.Channels[name]
		if !ch.Declared {
			retained = append(retained, name)
			continue
		}
		produced := ch.ProducedBy != nil
		consumed := ch.ConsumedBy != nil
		switch {
		case !produced && !consumed:
			rng := ch.DeclRange
			diags = diags.Append(&diag.Diagnostic{
				Severity: diag.Warning,
				Code:     diag.CodeUnusedChannel,
				Summary:  fmt.Sprintf("unused %s: %s", ch.Kind, name),
				Subject:  &rng,
			})
			delete(g.Channels, name)
		case produced && !consumed:
			rng := ch.DeclRange
			diags = diags.Append(&diag.Diagnostic{
				Severity: diag.Error,
				Code:     diag.CodeOnlyProduced,
				Summary:  fmt.Sprintf("produced but not consumed %s: %s", ch.Kind, name),
				Subject:  &rng,
			})
			retained = append(retained, name)
		case consumed && !produced:
			rng := ch.DeclRange
			diags = diags.Append(&diag.Diagnostic{
				Severity: diag.Error,
				Code:     diag.CodeOnlyConsumed,
				Summary:  fmt.Sprintf("consumed but not produced %s: %s", ch.Kind, name),
				Subject:  &rng,
			})
			retained = append(retained, name)
		default:
			retained = append(retained, name)
		}
	}
	g.ChannelOrder = retained

	logger.Debug("Graph validation finished",
		"retained_channels", len(g.ChannelOrder), "diagnostics", len(diags))
	return diags
}
