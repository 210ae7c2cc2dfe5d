package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stageflow/pkg/config"
	"github.com/matzehuels/stageflow/pkg/graph"
)

// newTestCLI returns a CLI with defaults and no cache.
func newTestCLI(t *testing.T) *CLI {
	t.Helper()
	c := New(io.Discard, LogInfo)
	c.cfg = config.Default()
	c.cfg.Cache.Type = config.CacheNull
	return c
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{"svg"}},
		{"svg", []string{"svg"}},
		{"svg, dot,mermaid", []string{"svg", "dot", "mermaid"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseFormats(tt.input), "parseFormats(%q)", tt.input)
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		name, output, source, id, want string
	}{
		{"catalog id", "", "returns", "returns", "returns"},
		{"workflow file", "", "flows/order.yaml", "order", "flows/order"},
		{"output with format extension", "out/diagram.svg", "returns", "returns", "out/diagram"},
		{"output with mermaid extension", "diagram.mmd", "returns", "returns", "diagram"},
		{"output without extension", "out/diagram", "returns", "returns", "out/diagram"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, basePath(tt.output, tt.source, tt.id))
		})
	}
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".svg", extensionFor("svg"))
	assert.Equal(t, ".graphviz.svg", extensionFor("graphviz"))
	assert.Equal(t, ".mmd", extensionFor("mermaid"))
	assert.Equal(t, ".dot", extensionFor("dot"))
}

func TestRunRenderWritesEveryFormat(t *testing.T) {
	c := newTestCLI(t)
	base := filepath.Join(t.TempDir(), "returns")

	flags := &diagramFlags{expanded: true}
	err := c.runRender(context.Background(), "returns", flags, []string{"svg", "mermaid", "json"}, "dark", base)
	require.NoError(t, err)

	for _, ext := range []string{".svg", ".mmd", ".json"} {
		info, err := os.Stat(base + ext)
		require.NoError(t, err, ext)
		assert.Positive(t, info.Size(), ext)
	}

	g, err := graph.ReadGraphFile(base + ".json")
	require.NoError(t, err)
	assert.Equal(t, "returns", g.WorkflowID)
}

func TestRunRenderRejectsUnknownFormat(t *testing.T) {
	c := newTestCLI(t)
	err := c.runRender(context.Background(), "returns", &diagramFlags{}, []string{"gif"}, "", filepath.Join(t.TempDir(), "x"))
	assert.Error(t, err)
}

func TestRunLayoutFromFile(t *testing.T) {
	c := newTestCLI(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "mini.yaml")
	doc := "workflow: {id: mini, title: Mini}\n" +
		"stages: [{id: a, title: A}, {id: b, title: B}]\n" +
		"statusNodes: [{id: done, label: Done, connectedToStage: a}]\n" +
		"entities: []\n"
	require.NoError(t, os.WriteFile(src, []byte(doc), 0o644))

	out := filepath.Join(dir, "mini.json")
	require.NoError(t, c.runLayout(context.Background(), src, &diagramFlags{}, out))

	g, err := graph.ReadGraphFile(out)
	require.NoError(t, err)
	assert.Equal(t, "mini", g.WorkflowID)
	_, ok := g.Edge("a-to-done")
	assert.True(t, ok)
	_, ok = g.Edge("done-to-b")
	assert.True(t, ok)
}

func TestOptionsCarryCustomEdges(t *testing.T) {
	c := newTestCLI(t)
	prev := graph.Graph{
		WorkflowID: "returns",
		Edges: []graph.Edge{
			{ID: "request-to-requested", Source: "request", Target: "requested", Kind: graph.EdgeStageStatus},
			{ID: "custom-1", Source: "request", Target: "refund", Kind: graph.EdgeCustom},
		},
	}
	path := filepath.Join(t.TempDir(), "prev.json")
	require.NoError(t, graph.WriteGraphFile(prev, path))

	opts, err := c.options(&diagramFlags{edgesFile: path, stageWidth: 150}, "returns")
	require.NoError(t, err)
	assert.Equal(t, "returns", opts.State.WorkflowID)
	require.Len(t, opts.Edges, 1)
	assert.Equal(t, "custom-1", opts.Edges[0].ID)
	assert.Equal(t, 150.0, opts.Layout.StageWidth)
}
