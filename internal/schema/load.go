package schema

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/flowforge-hdl/flowforge/internal/ctxlog"
	"github.com/flowforge-hdl/flowforge/internal/fsutil"
)

// Load finds and parses every .hcl design file under path and aggregates
// the declared tasks into a single Design. The returned parser retains the
// parsed files for diagnostic rendering.
func Load(ctx context.Context, path string) (*Design, *hclparse.Parser, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading design from path", "path", path)

	files, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find design files in %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no .hcl design files found in %s", path)
	}

	parser := hclparse.NewParser()
	design := &Design{}
	for _, file := range files {
		tasks, err := loadFile(file, parser)
		if err != nil {
			return nil, parser, err
		}
		design.Tasks = append(design.Tasks, tasks...)
	}

	logger.Debug("Design loaded", "files", len(files), "tasks", len(design.Tasks))
	return design, parser, nil
}

// LoadSource parses design source held in memory, for tests and tooling
// that do not go through the filesystem.
func LoadSource(src []byte, filename string) (*Design, *hclparse.Parser, error) {
	parser := hclparse.NewParser()
	tasks, err := parseBytes(src, filename, parser)
	if err != nil {
		return nil, parser, err
	}
	return &Design{Tasks: tasks}, parser, nil
}

func loadFile(path string, parser *hclparse.Parser) ([]*Task, error) {
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse design file %s: %w", path, diags)
	}
	var parsed File
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode design file %s: %w", path, diags)
	}
	return parsed.Tasks, nil
}

func parseBytes(src []byte, filename string, parser *hclparse.Parser) ([]*Task, error) {
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse design source %s: %w", filename, diags)
	}
	var parsed File
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode design source %s: %w", filename, diags)
	}
	return parsed.Tasks, nil
}
