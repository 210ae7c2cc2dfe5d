// Package catalog supplies workflow definitions to the rest of stageflow.
//
// A [Provider] lists the available workflows and returns one by id. Two
// providers are included:
//
//   - [Static]: an in-memory set, including the embedded sample catalog
//     returned by [Builtin]
//   - [Dir]: every *.json, *.yaml and *.yml file in a directory, reloaded
//     wholesale by [Dir.Watch] when files change
//
// Returned [workflow.Data] values are copies; callers may keep or modify
// them without affecting the provider.
package catalog

import (
	"bytes"
	"context"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/stageflow/pkg/errors"
	"github.com/matzehuels/stageflow/pkg/workflow"
)

// Provider is a source of workflow definitions.
type Provider interface {
	// List returns a summary of every workflow, ordered by id.
	List(ctx context.Context) ([]workflow.Summary, error)

	// Get returns the workflow with the given id.
	// Returns an error with code WORKFLOW_NOT_FOUND for unknown ids.
	Get(ctx context.Context, id string) (*workflow.Data, error)
}

// Decode parses a workflow document, choosing the format from the file
// name's extension. Unknown extensions are treated as JSON.
func Decode(name string, raw []byte) (*workflow.Data, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return workflow.DecodeYAML(raw)
	default:
		return workflow.Decode(bytes.NewReader(raw))
	}
}

// IsWorkflowFile reports whether a file name has a supported extension.
func IsWorkflowFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// set is an immutable id-indexed collection shared by the providers.
type set struct {
	byID map[string]*workflow.Data
	ids  []string
}

func newSet(docs []*workflow.Data) (*set, error) {
	s := &set{byID: make(map[string]*workflow.Data, len(docs))}
	for _, d := range docs {
		id := d.Workflow.ID
		if _, dup := s.byID[id]; dup {
			return nil, errors.Invalid(errors.ErrCodeInvalidWorkflow, "workflow.id", "duplicate workflow id %q", id)
		}
		s.byID[id] = d
		s.ids = append(s.ids, id)
	}
	slices.Sort(s.ids)
	return s, nil
}

func (s *set) list() []workflow.Summary {
	out := make([]workflow.Summary, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.byID[id].Summary())
	}
	return out
}

func (s *set) get(id string) (*workflow.Data, error) {
	d, ok := s.byID[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeWorkflowNotFound, "unknown workflow %q", id)
	}
	return d.Clone(), nil
}
