package catalog

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/matzehuels/stageflow/pkg/workflow"
)

//go:embed samples/*.yaml
var samples embed.FS

// Static serves a fixed set of workflows.
type Static struct {
	set *set
}

// NewStatic creates a provider over docs. Each document is validated and
// workflow ids must be unique.
func NewStatic(docs ...*workflow.Data) (*Static, error) {
	for _, d := range docs {
		if err := workflow.Validate(d); err != nil {
			return nil, err
		}
	}
	s, err := newSet(docs)
	if err != nil {
		return nil, err
	}
	return &Static{set: s}, nil
}

func (s *Static) List(ctx context.Context) ([]workflow.Summary, error) {
	return s.set.list(), nil
}

func (s *Static) Get(ctx context.Context, id string) (*workflow.Data, error) {
	return s.set.get(id)
}

var builtin = sync.OnceValues(func() (*Static, error) {
	docs, err := loadFS(samples, "samples")
	if err != nil {
		return nil, err
	}
	return NewStatic(docs...)
})

// Builtin returns the embedded sample catalog.
func Builtin() (*Static, error) {
	return builtin()
}

// loadFS decodes every workflow file directly under dir in fsys.
func loadFS(fsys fs.FS, dir string) ([]*workflow.Data, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var docs []*workflow.Data
	for _, e := range entries {
		if e.IsDir() || !IsWorkflowFile(e.Name()) {
			continue
		}
		path := dir + "/" + e.Name()
		if dir == "." {
			path = e.Name()
		}
		raw, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		d, err := Decode(e.Name(), raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}
