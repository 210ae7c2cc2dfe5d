package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/stageflow/pkg/assemble"
	"github.com/matzehuels/stageflow/pkg/cache"
	"github.com/matzehuels/stageflow/pkg/catalog"
	"github.com/matzehuels/stageflow/pkg/errors"
	"github.com/matzehuels/stageflow/pkg/graph"
	"github.com/matzehuels/stageflow/pkg/observability"
	"github.com/matzehuels/stageflow/pkg/workflow"
)

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "mermaid", "dot"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}

	err := ValidateFormats([]string{"svg", "invalid"})
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Invalid format should fail with INVALID_FORMAT, got %v", err)
	}

	// Empty slice is valid
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	opts := Options{}
	if err := opts.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("missing workflow id: got %v", err)
	}

	opts = Options{WorkflowID: "returns"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("valid options: %v", err)
	}
	if opts.Layout != workflow.DefaultLayoutConfig() {
		t.Errorf("layout defaults not applied: %+v", opts.Layout)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != DefaultFormat {
		t.Errorf("Formats should be [svg], got %v", opts.Formats)
	}
	if opts.Theme != DefaultTheme {
		t.Errorf("Theme should be %s, got %s", DefaultTheme, opts.Theme)
	}

	// Second call should be idempotent
	before := opts.Layout
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("Second validation failed: %v", err)
	}
	if opts.Layout != before {
		t.Error("Layout changed on second call")
	}
}

func TestOptionsRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"NegativeWidth", Options{WorkflowID: "w", Layout: workflow.LayoutConfig{ContainerWidth: -1}}, errors.ErrCodeInvalidConfig},
		{"BadFormat", Options{WorkflowID: "w", Formats: []string{"gif"}}, errors.ErrCodeInvalidFormat},
		{"BadTheme", Options{WorkflowID: "w", Theme: "sepia"}, errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.ValidateAndSetDefaults(); !errors.Is(err, tt.code) {
				t.Errorf("got %v, want %s", err, tt.code)
			}
		})
	}
}

func TestGraphKeyOptsIgnoresForeignEdges(t *testing.T) {
	edges := []graph.Edge{{ID: "custom-1", Source: "a", Target: "b", Kind: graph.EdgeCustom}}

	own := Options{State: assemble.State{WorkflowID: "returns"}, Edges: edges}
	k, err := own.GraphKeyOpts("returns")
	if err != nil {
		t.Fatal(err)
	}
	if k.EdgesHash == "" {
		t.Error("edges of the same workflow should be part of the key")
	}

	foreign := Options{State: assemble.State{WorkflowID: "onboarding"}, Edges: edges}
	k, err = foreign.GraphKeyOpts("returns")
	if err != nil {
		t.Fatal(err)
	}
	if k.EdgesHash != "" {
		t.Error("edges of another workflow are dropped and should not affect the key")
	}
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	p, err := catalog.Builtin()
	if err != nil {
		t.Fatal(err)
	}
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(p, c, nil, nil)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	r := newTestRunner(t)

	opts := Options{
		WorkflowID: "order-fulfilment",
		State:      assemble.State{Expanded: true},
		Formats:    []string{"svg", "json"},
	}
	res, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Data.Workflow.ID != "order-fulfilment" {
		t.Errorf("loaded %q", res.Data.Workflow.ID)
	}
	// container + 3 stages + 3 statuses + group + 4 chips
	if res.Stats.NodeCount != 12 {
		t.Errorf("NodeCount = %d, want 12", res.Stats.NodeCount)
	}
	if len(res.Artifacts["svg"]) == 0 || len(res.Artifacts["json"]) == 0 {
		t.Error("missing artifacts")
	}
	if res.CacheInfo.GraphHit || res.CacheInfo.RenderHit {
		t.Error("first run should miss the cache")
	}
	if res.GraphHash == "" {
		t.Error("GraphHash not set")
	}

	again, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if !again.CacheInfo.GraphHit || !again.CacheInfo.RenderHit {
		t.Errorf("second run should hit the cache: %+v", again.CacheInfo)
	}
	if again.GraphHash != res.GraphHash {
		t.Error("cached graph differs")
	}

	opts.Refresh = true
	fresh, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("refresh Execute: %v", err)
	}
	if fresh.CacheInfo.GraphHit || fresh.CacheInfo.RenderHit {
		t.Error("refresh should bypass the cache")
	}
}

func TestExecuteUnknownWorkflow(t *testing.T) {
	r := newTestRunner(t)
	_, err := r.Execute(context.Background(), Options{WorkflowID: "nope"})
	if !errors.Is(err, errors.ErrCodeWorkflowNotFound) {
		t.Errorf("got %v, want WORKFLOW_NOT_FOUND", err)
	}
}

func TestAssembleCacheKeyTracksState(t *testing.T) {
	ctx := context.Background()
	r := newTestRunner(t)
	data, err := r.Load(ctx, "returns")
	if err != nil {
		t.Fatal(err)
	}

	collapsed, hit, err := r.AssembleWithCacheInfo(ctx, data, Options{})
	if err != nil || hit {
		t.Fatalf("first assemble: hit=%v err=%v", hit, err)
	}
	expanded, hit, err := r.AssembleWithCacheInfo(ctx, data, Options{State: assemble.State{Expanded: true}})
	if err != nil || hit {
		t.Fatalf("expanded assemble should miss: hit=%v err=%v", hit, err)
	}
	if len(expanded.Nodes) <= len(collapsed.Nodes) {
		t.Error("expanded graph should carry entity chips")
	}

	// Changing the workflow content changes the key.
	data.Stages[0].Title = "Changed"
	_, hit, err = r.AssembleWithCacheInfo(ctx, data, Options{})
	if err != nil || hit {
		t.Errorf("edited workflow should miss: hit=%v err=%v", hit, err)
	}
}

func TestAssembleKeepsCustomEdges(t *testing.T) {
	ctx := context.Background()
	r := newTestRunner(t)
	data, err := r.Load(ctx, "returns")
	if err != nil {
		t.Fatal(err)
	}

	custom := graph.Edge{ID: "custom-x", Source: "refunded", Target: "request", Kind: graph.EdgeCustom}
	g, err := r.Assemble(ctx, data, Options{State: assemble.State{WorkflowID: "returns"}, Edges: []graph.Edge{custom}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := g.Edge("custom-x"); !ok {
		t.Error("custom edge dropped")
	}
}

func TestAssembleNilData(t *testing.T) {
	r := newTestRunner(t)
	if _, err := r.Assemble(context.Background(), nil, Options{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("got %v", err)
	}
}

func TestLoadWithoutProvider(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil)
	if _, err := r.Load(context.Background(), "x"); !errors.Is(err, errors.ErrCodeInternal) {
		t.Errorf("got %v", err)
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	observability.NoopCacheHooks

	mu        sync.Mutex
	assembled []string
	rendered  []string
	hits      map[string]int
}

func (h *recordingHooks) OnAssembleComplete(_ context.Context, id string, _, _ int, _ time.Duration, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assembled = append(h.assembled, id)
}

func (h *recordingHooks) OnRenderComplete(_ context.Context, format string, _ int, _ time.Duration, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rendered = append(h.rendered, format)
}

func (h *recordingHooks) OnCacheHit(_ context.Context, keyType string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hits[keyType]++
}

func TestHooks(t *testing.T) {
	h := &recordingHooks{hits: map[string]int{}}
	observability.SetPipelineHooks(h)
	observability.SetCacheHooks(h)
	t.Cleanup(observability.Reset)

	ctx := context.Background()
	r := newTestRunner(t)
	opts := Options{WorkflowID: "onboarding", Formats: []string{"mermaid"}}
	for range 2 {
		if _, err := r.Execute(ctx, opts); err != nil {
			t.Fatal(err)
		}
	}

	if len(h.assembled) != 2 || h.assembled[0] != "onboarding" {
		t.Errorf("assemble hooks = %v", h.assembled)
	}
	if len(h.rendered) != 1 || h.rendered[0] != "mermaid" {
		t.Errorf("render hooks = %v (second run should be cached)", h.rendered)
	}
	if h.hits["graph"] != 1 || h.hits["artifact"] != 1 {
		t.Errorf("cache hits = %v", h.hits)
	}
}
