package graph

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleGraph() Graph {
	return Graph{
		WorkflowID: "wf",
		Nodes: []Node{
			{ID: ContainerID, Kind: KindContainer, Width: 800, Height: 600},
			{ID: "a", Kind: KindStage, X: 30, Y: 70, Width: 220, Height: 100, ParentID: ContainerID, Label: "Intake"},
			{ID: "s1", Kind: KindStatus, X: 110, Y: 210, Width: 60, Height: 60, ParentID: ContainerID},
			{ID: EntitiesGroupID, Kind: KindEntityGroup, X: 30, Y: 310, Width: 740, Height: 260, ParentID: ContainerID},
			{ID: "e1", Kind: KindEntity, X: 10, Y: 50, Width: 160, Height: 32, ParentID: EntitiesGroupID},
		},
		Edges: []Edge{
			{ID: "a-to-s1", Source: "a", Target: "s1", Kind: EdgeStageStatus},
			{ID: "custom-1", Source: "s1", Target: "e1", Kind: EdgeCustom},
		},
	}
}

func TestMarshalGraph(t *testing.T) {
	tests := []struct {
		name      string
		graph     Graph
		wantNodes int
		wantEdges int
		check     func(t *testing.T, raw string)
	}{
		{
			name:      "Empty",
			graph:     Graph{},
			wantNodes: 0,
			wantEdges: 0,
			check: func(t *testing.T, raw string) {
				if !strings.Contains(raw, `"nodes": []`) {
					t.Errorf("empty graph should encode nodes as [], got %s", raw)
				}
			},
		},
		{
			name:      "Sample",
			graph:     sampleGraph(),
			wantNodes: 5,
			wantEdges: 2,
			check: func(t *testing.T, raw string) {
				if !strings.Contains(raw, `"parent_id": "entities-group"`) {
					t.Error("parent_id should be serialized")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalGraph(tt.graph)
			if err != nil {
				t.Fatalf("MarshalGraph: %v", err)
			}

			var result Graph
			if err := json.Unmarshal(data, &result); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}

			if got := len(result.Nodes); got != tt.wantNodes {
				t.Errorf("nodes = %d, want %d", got, tt.wantNodes)
			}
			if got := len(result.Edges); got != tt.wantEdges {
				t.Errorf("edges = %d, want %d", got, tt.wantEdges)
			}

			if tt.check != nil {
				tt.check(t, string(data))
			}
		})
	}
}

func TestReadGraph(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantNodes int
		wantEdges int
		wantErr   bool
	}{
		{
			name: "Valid",
			input: `{
				"workflow_id": "wf",
				"nodes": [{"id": "a", "kind": "stage", "x": 1, "y": 2}],
				"edges": [{"id": "a-to-b", "source": "a", "target": "b"}]
			}`,
			wantNodes: 1,
			wantEdges: 1,
		},
		{
			name:      "Empty",
			input:     `{"nodes": [], "edges": []}`,
			wantNodes: 0,
			wantEdges: 0,
		},
		{
			name:    "Invalid",
			input:   `{invalid json}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ReadGraph(strings.NewReader(tt.input))

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadGraph: %v", err)
			}

			if got := len(g.Nodes); got != tt.wantNodes {
				t.Errorf("nodes = %d, want %d", got, tt.wantNodes)
			}
			if got := len(g.Edges); got != tt.wantEdges {
				t.Errorf("edges = %d, want %d", got, tt.wantEdges)
			}
		})
	}
}

func TestGraphFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagram.json")
	want := sampleGraph()

	if err := WriteGraphFile(want, path); err != nil {
		t.Fatalf("WriteGraphFile: %v", err)
	}
	got, err := ReadGraphFile(path)
	if err != nil {
		t.Fatalf("ReadGraphFile: %v", err)
	}

	if got.WorkflowID != want.WorkflowID {
		t.Errorf("WorkflowID = %q, want %q", got.WorkflowID, want.WorkflowID)
	}
	if len(got.Nodes) != len(want.Nodes) || len(got.Edges) != len(want.Edges) {
		t.Fatalf("got %d nodes/%d edges, want %d/%d", len(got.Nodes), len(got.Edges), len(want.Nodes), len(want.Edges))
	}
	for i := range want.Nodes {
		if got.Nodes[i] != want.Nodes[i] {
			t.Errorf("node %d = %+v, want %+v", i, got.Nodes[i], want.Nodes[i])
		}
	}
}

func TestReadGraphFileMissing(t *testing.T) {
	if _, err := ReadGraphFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	} else if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLookupHelpers(t *testing.T) {
	g := sampleGraph()

	if n, ok := g.Node("a"); !ok || n.DisplayLabel() != "Intake" {
		t.Errorf("Node(a) = %+v, %v", n, ok)
	}
	if n, ok := g.Node("s1"); !ok || n.DisplayLabel() != "s1" {
		t.Errorf("DisplayLabel should fall back to ID, got %+v", n)
	}
	if _, ok := g.Node("missing"); ok {
		t.Error("Node(missing) should not be found")
	}
	if got := len(g.NodesOfKind(KindStage)); got != 1 {
		t.Errorf("NodesOfKind(stage) = %d, want 1", got)
	}
	if e, ok := g.Edge("custom-1"); !ok || !e.IsCustom() {
		t.Errorf("Edge(custom-1) = %+v, %v", e, ok)
	}
	if got := g.CustomEdges(); len(got) != 1 || got[0].ID != "custom-1" {
		t.Errorf("CustomEdges() = %+v", got)
	}
}

func TestIsReservedID(t *testing.T) {
	for _, id := range []string{ContainerID, EntitiesGroupID} {
		if !IsReservedID(id) {
			t.Errorf("IsReservedID(%q) = false, want true", id)
		}
	}
	if IsReservedID("stage-1") {
		t.Error("IsReservedID(stage-1) = true, want false")
	}
}

func TestAbsolute(t *testing.T) {
	g := sampleGraph()
	abs := g.Absolute()

	entity := abs["e1"]
	if entity.X != 40 || entity.Y != 360 {
		t.Errorf("e1 absolute = (%v, %v), want (40, 360)", entity.X, entity.Y)
	}
	if stage := abs["a"]; stage.X != 30 || stage.Y != 70 {
		t.Errorf("a absolute = (%v, %v), want (30, 70)", stage.X, stage.Y)
	}
	if !abs[ContainerID].Contains(abs["e1"]) {
		t.Error("container should contain entity chip")
	}
}

func TestAbsoluteParentCycle(t *testing.T) {
	g := Graph{Nodes: []Node{
		{ID: "a", X: 1, ParentID: "b"},
		{ID: "b", X: 2, ParentID: "a"},
	}}
	abs := g.Absolute()
	if abs["a"].X != 3 || abs["b"].X != 3 {
		t.Errorf("cycle should be cut after one hop, got a=%v b=%v", abs["a"].X, abs["b"].X)
	}
}

func TestRectOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want bool
	}{
		{"disjoint", Rect{0, 0, 10, 10}, Rect{20, 0, 10, 10}, false},
		{"touching", Rect{0, 0, 10, 10}, Rect{10, 0, 10, 10}, false},
		{"overlapping", Rect{0, 0, 10, 10}, Rect{5, 5, 10, 10}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
		})
	}
}
