package graph

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowforge-hdl/flowforge/internal/diag"
	"github.com/flowforge-hdl/flowforge/internal/schema"
)

func buildSource(t *testing.T, src, top string) (*Graph, diag.List) {
	t.Helper()
	design, _, err := schema.LoadSource([]byte(src), "test.hcl")
	require.NoError(t, err)
	return Build(context.Background(), design, top)
}

func codesOf(diags diag.List) []string {
	var codes []string
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	return codes
}

const vecAddSrc = `
task "VecAdd" {
  port "src" {
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

  invoke {
    args = [Load, src, data, n]
  }
  invoke {
    step = 1
    args = [Store, "sink", data, n]
  }
}

task "Load" {
  leaf = true
  port "mem" {
    cat  = "mmap"
    type = "float"
  }
  port "out" {
    cat  = "ostream"
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
  port "n" {
    cat  = "scalar"
    type = "uint64"
  }
}
`

func TestBuildLinearPipeline(t *testing.T) {
	t.Parallel()

	g, diags := buildSource(t, vecAddSrc, "VecAdd")
	require.False(t, diags.HasErrors(), "unexpected diagnostics: %v", diags)

	require.Equal(t, "VecAdd", g.Top)
	require.Equal(t, []string{"VecAdd", "Load", "Store"}, g.TaskOrder)
	require.Equal(t, LevelTop, g.Tasks["VecAdd"].Level)
	require.Equal(t, LevelLeaf, g.Tasks["Load"].Level)
	require.Equal(t, LevelLeaf, g.Tasks["Store"].Level)

	// Unspecified target attributes fall back to the defaults.
	require.Equal(t, DefaultTarget, g.Tasks["Load"].Target)
	require.Equal(t, DefaultVendor, g.Tasks["Load"].Vendor)

	ch := g.Channels["data"]
	require.NotNil(t, ch)
	require.True(t, ch.Declared)
	require.Equal(t, KindStream, ch.Kind)
	require.Equal(t, 4, ch.Stream.Depth)
	require.Equal(t, 32, ch.Stream.Width)
	require.Equal(t, &StepRef{Task: "Load", Index: 0}, ch.ProducedBy)
	require.Equal(t, &StepRef{Task: "Store", Index: 0}, ch.ConsumedBy)

	// The quoted argument names the instance and is skipped for binding.
	store := g.Tasks["Store"]
	require.Len(t, store.Instances, 1)
	require.Equal(t, "sink", store.Instances[0].Name)
	require.Equal(t, 1, store.Instances[0].Step)
	require.Equal(t, []Arg{
		{Port: "in", Cat: CatIStream, Value: "data"},
		{Port: "n", Cat: CatScalar, Value: "n"},
	}, store.Instances[0].Args)
}

func TestBuildVectorizedRoundRobin(t *testing.T) {
	t.Parallel()

	src := `
task "Top" {
  streams "ch" {
    type  = "int32"
    depth = 2
    len   = 2
  }
  invoke {
    count = 2
    args  = [Prod, ch]
  }
  invoke {
    step  = 1
    count = 2
    args  = [Cons, ch]
  }
}
task "Prod" {
  leaf = true
  port "out" {
    cat  = "ostream"
    type = "int32"
  }
}
task "Cons" {
  leaf = true
  port "in" {
    cat  = "istream"
    type = "int32"
  }
}
`
	g, diags := buildSource(t, src, "Top")
	require.False(t, diags.HasErrors(), "unexpected diagnostics: %v", diags)

	// Replica k of each side binds element k: the per-direction access
	// counter advances once per replica.
	for i := 0; i < 2; i++ {
		ch := g.Channels[fmt.Sprintf("ch[%d]", i)]
		require.NotNil(t, ch)
		require.Equal(t, &StepRef{Task: "Prod", Index: i}, ch.ProducedBy)
		require.Equal(t, &StepRef{Task: "Cons", Index: i}, ch.ConsumedBy)
	}
}

func TestBuildWraparoundRemark(t *testing.T) {
	t.Parallel()

	src := `
task "Top" {
  port "mem" {
    cat  = "mmap"
    type = "float"
    len  = 2
  }
  invoke {
    count = 4
    args  = [Reader, mem, seq]
  }
}
task "Reader" {
  leaf = true
  port "m" {
    cat  = "mmap"
    type = "float"
  }
  port "id" {
    cat  = "scalar"
    type = "uint64"
  }
}
`
	g, diags := buildSource(t, src, "Top")
	require.False(t, diags.HasErrors(), "unexpected diagnostics: %v", diags)

	reader := g.Tasks["Reader"]
	require.Len(t, reader.Instances, 4)

	// Accesses 2 and 3 wrap around the two-element array.
	wantMem := []string{"mem[0]", "mem[1]", "mem[0]", "mem[1]"}
	for i, inst := range reader.Instances {
		require.Equal(t, i, inst.Index)
		require.Equal(t, wantMem[i], inst.Args[0].Value)
		// seq renders the replica ordinal as a 64-bit constant.
		require.Equal(t, fmt.Sprintf("64'd%d", i), inst.Args[1].Value)
	}

	require.Equal(t, 2, diags.Count(diag.Remark))
	require.Equal(t, diag.CodeIndexWraparound, diags[0].Code)
	require.Equal(t, "invocation #2 accesses 'mem[0]'", diags[0].Summary)
	require.Equal(t, "invocation #3 accesses 'mem[1]'", diags[1].Summary)
}

func TestBuildIntegerConstantArg(t *testing.T) {
	t.Parallel()

	src := `
task "Top" {
  invoke {
    args = [Leaf, 42]
  }
}
task "Leaf" {
  leaf = true
  port "n" {
    cat  = "scalar"
    type = "uint64"
  }
}
`
	g, diags := buildSource(t, src, "Top")
	require.False(t, diags.HasErrors(), "unexpected diagnostics: %v", diags)
	require.Equal(t, "64'd42", g.Tasks["Leaf"].Instances[0].Args[0].Value)
}

func TestBuildUnknownTop(t *testing.T) {
	t.Parallel()

	_, diags := buildSource(t, vecAddSrc, "Nonexistent")
	require.True(t, diags.HasErrors())
	require.Equal(t, diag.CodeBadInvokeTarget, diags[0].Code)
}

func TestBuildBadInvokeTarget(t *testing.T) {
	t.Parallel()

	src := `
task "Top" {
  invoke {
    args = [Nonexistent, 1]
  }
}
`
	_, diags := buildSource(t, src, "Top")
	require.True(t, diags.HasErrors())
	require.Contains(t, codesOf(diags), diag.CodeBadInvokeTarget)
}

func TestBuildBadArgument(t *testing.T) {
	t.Parallel()

	// A string in a non-name position matches no argument form.
	src := `
task "Top" {
  invoke {
    args = [Leaf, "inst", "not-a-ref"]
  }
}
task "Leaf" {
  leaf = true
  port "n" {
    cat  = "scalar"
    type = "uint64"
  }
}
`
	_, diags := buildSource(t, src, "Top")
	require.True(t, diags.HasErrors())
	require.Contains(t, codesOf(diags), diag.CodeBadArgument)
}

func TestBuildDoubleProduceReportedIncrementally(t *testing.T) {
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
  invoke {
    args = [Prod, data]
  }
  invoke {
    step = 1
    args = [Cons, data]
  }
}
task "Prod" {
  leaf = true
  port "out" {
    cat  = "ostream"
    type = "float"
  }
}
task "Cons" {
  leaf = true
  port "in" {
    cat  = "istream"
    type = "float"
  }
}
`
	g, diags := buildSource(t, src, "Top")
	require.True(t, diags.HasErrors())
	require.Contains(t, codesOf(diags), diag.CodeDoubleProduce)

	// The first binding wins; the duplicate is rejected.
	require.Equal(t, &StepRef{Task: "Prod", Index: 0}, g.Channels["data"].ProducedBy)
}

func TestBuildDoubleConsume(t *testing.T) {
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
  invoke {
    step  = 1
    count = 2
    args  = [Cons, data]
  }
}
task "Prod" {
  leaf = true
  port "out" {
    cat  = "ostream"
    type = "float"
  }
}
task "Cons" {
  leaf = true
  port "in" {
    cat  = "istream"
    type = "float"
  }
}
`
	_, diags := buildSource(t, src, "Top")
	require.True(t, diags.HasErrors())
	require.Contains(t, codesOf(diags), diag.CodeDoubleConsume)
}

func TestBuildNestedStages(t *testing.T) {
	t.Parallel()

	src := `
task "Top" {
  stream "data" {
    type  = "float"
    depth = 2
  }
  stage {
    invoke {
      args = [Prod, data]
    }
    stage {
      invoke {
        step = 1
        args = [Cons, data]
      }
    }
  }
}
task "Prod" {
  leaf = true
  port "out" {
    cat  = "ostream"
    type = "float"
  }
}
task "Cons" {
  leaf = true
  port "in" {
    cat  = "istream"
    type = "float"
  }
}
`
	g, diags := buildSource(t, src, "Top")
	require.False(t, diags.HasErrors(), "unexpected diagnostics: %v", diags)
	require.Len(t, g.Tasks["Top"].Children, 2)
	require.Equal(t, "Prod", g.Tasks["Top"].Children[0].Callee)
	require.Equal(t, "Cons", g.Tasks["Top"].Children[1].Callee)
}

func TestBuildBufferChannel(t *testing.T) {
	t.Parallel()

	src := `
task "Top" {
  buffer "tile" {
    type      = "float"
    dims      = [16, 8]
    sections  = 2
    partition = ["cyclic(4)", "normal"]
    memory    = "URAM"
  }
  invoke {
    args = [Fill, tile]
  }
  invoke {
    step = 1
    args = [Drain, tile]
  }
}
task "Fill" {
  leaf = true
  port "out" {
    cat  = "obuffer"
    type = "float"
  }
}
task "Drain" {
  leaf = true
  port "in" {
    cat  = "ibuffer"
    type = "float"
  }
}
`
	g, diags := buildSource(t, src, "Top")
	require.False(t, diags.HasErrors(), "unexpected diagnostics: %v", diags)

	ch := g.Channels["tile"]
	require.NotNil(t, ch)
	require.Equal(t, KindBuffer, ch.Kind)
	require.Equal(t, []int{16, 8}, ch.Buffer.Dims)
	require.Equal(t, 2, ch.Buffer.Sections)
	require.Equal(t, 4, ch.Buffer.MemCoreCount())
	require.Equal(t, &StepRef{Task: "Fill", Index: 0}, ch.ProducedBy)
	require.Equal(t, &StepRef{Task: "Drain", Index: 0}, ch.ConsumedBy)
}
