package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"

	"github.com/flowforge-hdl/flowforge/internal/ctxlog"
	"github.com/flowforge-hdl/flowforge/internal/diag"
	"github.com/flowforge-hdl/flowforge/internal/graph"
	"github.com/flowforge-hdl/flowforge/internal/hw"
	"github.com/flowforge-hdl/flowforge/internal/meta"
	"github.com/flowforge-hdl/flowforge/internal/schema"
	"github.com/flowforge-hdl/flowforge/internal/target"
)

// Run executes one full compilation: load, build, validate, emit. All
// diagnostics are rendered to the app's writer before the error decision
// is made, so a failing run still reports everything it found.
func (a *App) Run(ctx context.Context, cfg *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	design, parser, err := schema.Load(ctx, cfg.SourcePath)
	if err != nil {
		return err
	}

	g, diags := graph.Build(ctx, design, cfg.Top)
	diags = diags.Append(graph.Validate(ctx, g)...)

	files := map[string]*hcl.File{}
	if parser != nil {
		files = parser.Files()
	}
	if err := diags.Write(a.outW, files); err != nil {
		return fmt.Errorf("failed to render diagnostics: %w", err)
	}
	if diags.HasErrors() {
		return fmt.Errorf("compilation of %q failed: %w", cfg.Top, diags.Err())
	}

	return a.emit(ctx, cfg, g, files)
}

// emit writes the compilation artifacts: one rewritten source per task,
// one RTL wrapper per declared channel that needs hardware, and the
// metadata graph for downstream tooling.
func (a *App) emit(ctx context.Context, cfg *Config, g *graph.Graph, files map[string]*hcl.File) error {
	logger := ctxlog.FromContext(ctx)
	rtlDir := filepath.Join(cfg.OutDir, "rtl")
	if err := os.MkdirAll(rtlDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, name := range g.TaskOrder {
		t := g.Tasks[name]
		tgt, d := a.registry.Lookup(t.Target, t.Vendor, t.DeclRange)
		if d != nil {
			if err := (diag.List{d}).Write(a.outW, files); err != nil {
				return err
			}
		}
		path := filepath.Join(cfg.OutDir, name+".cpp")
		if err := os.WriteFile(path, []byte(target.Render(tgt, t)), 0o644); err != nil {
			return fmt.Errorf("failed to write task source for %s: %w", name, err)
		}
		logger.Debug("Task source emitted.", "task", name, "path", path)
	}

	for _, name := range g.ChannelOrder {
		ch := g.Channels[name]
		if !ch.Declared {
			continue
		}
		switch ch.Kind {
		case graph.KindBuffer:
			if err := writeRTL(rtlDir, "buffer_"+rtlName(name)+".v", func(f *os.File) error {
				return hw.WriteBuffer(f, rtlName(name), ch.Buffer, cfg.RelayStages)
			}); err != nil {
				return err
			}
		case graph.KindStream:
			if cfg.RelayStages == 0 {
				continue
			}
			if err := writeRTL(rtlDir, "relay_"+rtlName(name)+".v", func(f *os.File) error {
				return hw.WriteRelay(f, rtlName(name), ch.Stream, cfg.RelayStages)
			}); err != nil {
				return err
			}
		}
	}

	metaPath := filepath.Join(cfg.OutDir, "graph.json")
	f, err := os.Create(metaPath)
	if err != nil {
		return fmt.Errorf("failed to create metadata file: %w", err)
	}
	defer f.Close()
	if err := meta.FromGraph(g).Write(f); err != nil {
		return err
	}

	logger.Info("Compilation finished.",
		"top", g.Top, "tasks", len(g.TaskOrder), "channels", len(g.ChannelOrder),
		"out", cfg.OutDir)
	return nil
}

func writeRTL(dir, file string, write func(*os.File) error) error {
	f, err := os.Create(filepath.Join(dir, file))
	if err != nil {
		return fmt.Errorf("failed to create RTL file %s: %w", file, err)
	}
	defer f.Close()
	if err := write(f); err != nil {
		return fmt.Errorf("failed to write RTL file %s: %w", file, err)
	}
	return nil
}

// rtlName flattens an arrayed channel name into an identifier usable as a
// Verilog module suffix.
func rtlName(name string) string {
	name = strings.ReplaceAll(name, "[", "_")
	return strings.ReplaceAll(name, "]", "")
}
