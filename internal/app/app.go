// Package app wires the compilation pipeline together: load the design,
// build and validate the dataflow graph, then emit per-task source,
// channel hardware, and the metadata graph.
package app

import (
	"io"
	"log/slog"

	"github.com/flowforge-hdl/flowforge/internal/target"
)

// App encapsulates the compiler's dependencies, configuration, and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *target.Registry
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and target
// registry.
func NewApp(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	return &App{
		outW:     outW,
		logger:   logger,
		registry: target.NewRegistry(),
	}
}

// Registry returns the application's target registry. This is primarily
// for testing and for embedders that register extra backends.
func (a *App) Registry() *target.Registry {
	return a.registry
}
