package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const e2eDesign = `
task "VecAdd" {
  port "a" {
    cat  = "mmap"
    type = "float"
  }
  port "n" {
    cat  = "scalar"
    type = "uint64"
  }

  stream "data" {
    type  = "float"
    depth = 4
  }
  buffer "tile" {
    type     = "float"
    dims     = [16]
    sections = 2
  }

  invoke {
    args = [Load, a, data, tile, n]
  }
  invoke {
    step = 1
    args = [Store, data, tile, n]
  }
}

task "Load" {
  leaf = true
  code = "#pipeline\nout << mem[i];"
  port "mem" {
    cat  = "mmap"
    type = "float"
  }
  port "out" {
    cat  = "ostream"
    type = "float"
  }
  port "t" {
    cat  = "obuffer"
    type = "float"
  }
  port "n" {
    cat  = "scalar"
    type = "uint64"
  }
}

task "Store" {
  leaf = true
  port "in" {
    cat  = "istream"
    type = "float"
  }
  port "t" {
    cat  = "ibuffer"
    type = "float"
  }
  port "n" {
    cat  = "scalar"
    type = "uint64"
  }
}
`

func writeDesign(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "design.hcl"), []byte(src), 0o644))
	return dir
}

func TestRunEmitsArtifacts(t *testing.T) {
	t.Parallel()

	outDir := filepath.Join(t.TempDir(), "build")
	cfg, err := NewConfig(Config{
		SourcePath:  writeDesign(t, e2eDesign),
		Top:         "VecAdd",
		OutDir:      outDir,
		RelayStages: 2,
		LogFormat:   "text",
		LogLevel:    "error",
	})
	require.NoError(t, err)

	var out bytes.Buffer
	forge := NewApp(&out, cfg)
	require.NoError(t, forge.Run(context.Background(), cfg))

	// One rewritten source per task.
	top, err := os.ReadFile(filepath.Join(outDir, "VecAdd.cpp"))
	require.NoError(t, err)
	require.Contains(t, string(top), "#pragma HLS interface m_axi port=a")
	require.Contains(t, string(top), "invoke<0>(Load")

	load, err := os.ReadFile(filepath.Join(outDir, "Load.cpp"))
	require.NoError(t, err)
	require.Contains(t, string(load), "#pragma HLS pipeline II=1")
	require.NotContains(t, string(load), "#pipeline")

	// Channel hardware: the buffer wrapper and the stream relay.
	bufRTL, err := os.ReadFile(filepath.Join(outDir, "rtl", "buffer_tile.v"))
	require.NoError(t, err)
	require.Contains(t, string(bufRTL), "module buffer_tile #(")
	require.Contains(t, string(bufRTL), "initialized_relay_station #(")

	relayRTL, err := os.ReadFile(filepath.Join(outDir, "rtl", "relay_data.v"))
	require.NoError(t, err)
	// Depth 4 plus two slots per stage.
	require.Contains(t, string(relayRTL), ".DEPTH(8),")

	// The metadata graph round-trips through the emitted file.
	metaRaw, err := os.ReadFile(filepath.Join(outDir, "graph.json"))
	require.NoError(t, err)
	require.Contains(t, string(metaRaw), `"top": "VecAdd"`)
	require.Contains(t, string(metaRaw), `"tile"`)
}

func TestRunFailsOnValidationErrors(t *testing.T) {
	t.Parallel()

	src := `
task "Top" {
  stream "data" {
    type  = "float"
    depth = 2
  }
  invoke {
    args = [Prod, data]
  }
}
task "Prod" {
  leaf = true
  port "out" {
    cat  = "ostream"
    type = "float"
  }
}
`
	outDir := filepath.Join(t.TempDir(), "build")
	cfg, err := NewConfig(Config{
		SourcePath: writeDesign(t, src),
		Top:        "Top",
		OutDir:     outDir,
		LogFormat:  "text",
		LogLevel:   "error",
	})
	require.NoError(t, err)

	var out bytes.Buffer
	forge := NewApp(&out, cfg)
	err = forge.Run(context.Background(), cfg)
	require.Error(t, err)

	// The rendered diagnostics carry the stable code and a source excerpt.
	require.Contains(t, out.String(), "FF2003")
	require.Contains(t, out.String(), "produced but not consumed stream: data")

	// No artifacts on a failed run.
	_, statErr := os.Stat(filepath.Join(outDir, "graph.json"))
	require.True(t, os.IsNotExist(statErr))
}

func TestNewConfigValidation(t *testing.T) {
	t.Parallel()

	_, err := NewConfig(Config{Top: "T"})
	require.Error(t, err)

	_, err = NewConfig(Config{SourcePath: "x"})
	require.Error(t, err)

	cfg, err := NewConfig(Config{SourcePath: "x", Top: "T"})
	require.NoError(t, err)
	require.Equal(t, "build", cfg.OutDir)

	_, err = NewConfig(Config{SourcePath: "x", Top: "T", RelayStages: -1})
	require.Error(t, err)
}
