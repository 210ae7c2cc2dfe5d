// Package pipeline provides the load → assemble → render pipeline for stageflow.
//
// The CLI, the TUI and the HTTP API all drive diagrams through a [Runner],
// so caching, logging and observability hooks behave the same at every
// entry point.
//
// # Stages
//
//  1. Load: fetch the workflow from a [catalog.Provider]
//  2. Assemble: lay out nodes, infer edges and merge user-drawn edges
//  3. Render: produce artifacts in the requested formats
//
// Assembled graphs and rendered artifacts are cached by content hash, so a
// changed workflow file or layout config never serves a stale diagram.
//
// # Usage
//
//	runner := pipeline.NewRunner(provider, cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    WorkflowID: "order-fulfilment",
//	    State:      assemble.State{Expanded: true},
//	    Formats:    []string{"svg"},
//	})
//	svg := result.Artifacts["svg"]
//
// Run individual stages:
//
//	data, err := runner.Load(ctx, "order-fulfilment")
//	g, err := runner.Assemble(ctx, data, opts)
//	artifacts, err := runner.Render(ctx, g, opts)
package pipeline

import (
	"time"

	"github.com/matzehuels/stageflow/pkg/assemble"
	"github.com/matzehuels/stageflow/pkg/cache"
	"github.com/matzehuels/stageflow/pkg/errors"
	"github.com/matzehuels/stageflow/pkg/graph"
	"github.com/matzehuels/stageflow/pkg/render"
	"github.com/matzehuels/stageflow/pkg/workflow"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API and TUI
// =============================================================================

const (
	// DefaultFormat is the output format when none is requested.
	DefaultFormat = render.FormatSVG

	// DefaultTheme is the SVG palette when none is requested.
	DefaultTheme = "light"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Load options
	WorkflowID string `json:"workflow_id"`
	Refresh    bool   `json:"refresh,omitempty"` // bypass cache reads

	// Assemble options
	Layout workflow.LayoutConfig `json:"layout"`
	State  assemble.State        `json:"state"`
	Edges  []graph.Edge          `json:"edges,omitempty"` // edges of the previous graph

	// Render options
	Formats []string `json:"formats,omitempty"`
	Theme   string   `json:"theme,omitempty"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Data is the workflow the graph was assembled from.
	Data *workflow.Data

	// Graph is the assembled diagram.
	Graph graph.Graph

	// GraphHash is the content hash of the graph.
	GraphHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount    int
	EdgeCount    int
	LoadTime     time.Duration
	AssembleTime time.Duration
	RenderTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	GraphHit  bool // Whether the graph came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := render.ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.WorkflowID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "workflow id is required")
	}
	if err := o.ValidateForAssemble(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForAssemble fills unset layout values and validates the result.
func (o *Options) ValidateForAssemble() error {
	o.Layout = o.Layout.WithDefaults()
	return o.Layout.Validate()
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	if o.Theme == "" {
		o.Theme = DefaultTheme
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	return render.ValidateTheme(o.Theme)
}

// GraphKeyOpts returns cache key options for assembly. Existing edges only
// take part when they belong to the workflow being assembled, matching
// what [assemble.Assemble] keeps.
func (o *Options) GraphKeyOpts(workflowID string) (cache.GraphKeyOpts, error) {
	cfgHash, err := cache.HashJSON(o.Layout)
	if err != nil {
		return cache.GraphKeyOpts{}, err
	}
	opts := cache.GraphKeyOpts{
		ConfigHash: cfgHash,
		Expanded:   o.State.Expanded,
		Selected:   o.State.Selected,
	}
	if len(o.Edges) > 0 && o.State.WorkflowID != "" && o.State.WorkflowID == workflowID {
		if opts.EdgesHash, err = cache.HashJSON(o.Edges); err != nil {
			return cache.GraphKeyOpts{}, err
		}
	}
	return opts, nil
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format: format,
		Theme:  o.Theme,
	}
}

// RenderOptions returns the renderer options for one format.
func (o *Options) RenderOptions(format string) render.Options {
	return render.Options{Format: format, Theme: o.Theme}
}
