package connect

import (
	"reflect"
	"testing"

	"github.com/matzehuels/stageflow/pkg/graph"
	"github.com/matzehuels/stageflow/pkg/workflow"
)

func stages(ids ...string) []workflow.Stage {
	out := make([]workflow.Stage, len(ids))
	for i, id := range ids {
		out[i] = workflow.Stage{ID: id}
	}
	return out
}

func statuses(ids ...string) []workflow.StatusNode {
	out := make([]workflow.StatusNode, len(ids))
	for i, id := range ids {
		out[i] = workflow.StatusNode{ID: id}
	}
	return out
}

func ids(edges []graph.Edge) []string {
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = e.ID
	}
	return out
}

func TestEdgeID(t *testing.T) {
	if got := EdgeID("pick", "picked"); got != "pick-to-picked" {
		t.Errorf("EdgeID = %q", got)
	}
}

func TestInfer(t *testing.T) {
	tests := []struct {
		name string
		data *workflow.Data
		want []string
	}{
		{
			name: "PositionalFallback",
			data: &workflow.Data{
				Stages:      stages("A", "B"),
				StatusNodes: statuses("s1", "s2"),
			},
			want: []string{"A-to-s1", "B-to-s2", "s1-to-B"},
		},
		{
			name: "ExplicitLinksOverrideIndex",
			data: &workflow.Data{
				Stages: stages("A", "B"),
				StatusNodes: []workflow.StatusNode{
					{ID: "s1", ConnectedToStage: "B"},
					{ID: "s2", ConnectedToStage: "A"},
				},
			},
			want: []string{"A-to-s2", "B-to-s1", "s1-to-B"},
		},
		{
			name: "FirstExplicitLinkWins",
			data: &workflow.Data{
				Stages: stages("A"),
				StatusNodes: []workflow.StatusNode{
					{ID: "s1", ConnectedToStage: "A"},
					{ID: "s2", ConnectedToStage: "A"},
				},
			},
			want: []string{"A-to-s1"},
		},
		{
			name: "DanglingLinkIgnored",
			data: &workflow.Data{
				Stages: stages("A", "B"),
				StatusNodes: []workflow.StatusNode{
					{ID: "s1", ConnectedToStage: "ghost", ConnectedToEntities: []string{"nobody"}},
					{ID: "s2"},
				},
			},
			want: []string{"A-to-s1", "B-to-s2", "s1-to-B"},
		},
		{
			name: "ZeroStages",
			data: &workflow.Data{StatusNodes: statuses("s1")},
			want: nil,
		},
		{
			name: "NoStatuses",
			data: &workflow.Data{Stages: stages("A", "B")},
			want: nil,
		},
		{
			name: "Nil",
			data: nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Infer(tt.data))
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Infer() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInferKinds(t *testing.T) {
	edges := Infer(&workflow.Data{
		Stages:      stages("A", "B"),
		StatusNodes: statuses("s1", "s2"),
	})
	want := []graph.Edge{
		{ID: "A-to-s1", Source: "A", Target: "s1", Kind: graph.EdgeStageStatus},
		{ID: "B-to-s2", Source: "B", Target: "s2", Kind: graph.EdgeStageStatus},
		{ID: "s1-to-B", Source: "s1", Target: "B", Kind: graph.EdgeSequence},
	}
	if !reflect.DeepEqual(edges, want) {
		t.Errorf("Infer() = %+v, want %+v", edges, want)
	}
}

func TestInferIdempotent(t *testing.T) {
	data := &workflow.Data{
		Stages:      stages("A", "B", "C"),
		StatusNodes: statuses("s1", "s2", "s3"),
	}
	first := Infer(data)
	second := Infer(data)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Infer not idempotent: %v vs %v", first, second)
	}
}

// The index fallback pairs by position, so unequal list lengths leave the
// surplus side without edges and may pair an explicitly linked status twice.
func TestInferLengthMismatch(t *testing.T) {
	tests := []struct {
		name string
		data *workflow.Data
		want []string
	}{
		{
			name: "MoreStatusesThanStages",
			data: &workflow.Data{
				Stages:      stages("A", "B"),
				StatusNodes: statuses("s1", "s2", "s3"),
			},
			want: []string{"A-to-s1", "B-to-s2", "s1-to-B"},
		},
		{
			name: "MoreStagesThanStatuses",
			data: &workflow.Data{
				Stages:      stages("A", "B", "C"),
				StatusNodes: statuses("s1"),
			},
			want: []string{"A-to-s1", "s1-to-B"},
		},
		{
			name: "FallbackReusesLinkedStatus",
			data: &workflow.Data{
				Stages: stages("A", "B"),
				StatusNodes: []workflow.StatusNode{
					{ID: "s1"},
					{ID: "s2", ConnectedToStage: "A"},
				},
			},
			want: []string{"A-to-s2", "B-to-s2", "s1-to-B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(Infer(tt.data)); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Infer() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInferDeduplicates(t *testing.T) {
	// "a-to" + "b" and "a" + "to-b" collide on the derived id.
	data := &workflow.Data{
		Stages: stages("a-to", "a"),
		StatusNodes: []workflow.StatusNode{
			{ID: "b", ConnectedToStage: "a-to"},
			{ID: "to-b", ConnectedToStage: "a"},
		},
	}
	edges := Infer(data)
	seen := map[string]bool{}
	for _, e := range edges {
		if seen[e.ID] {
			t.Fatalf("duplicate edge id %q", e.ID)
		}
		seen[e.ID] = true
	}
	if e := edges[0]; e.Source != "a-to" || e.Target != "b" {
		t.Errorf("first edge = %+v, want a-to → b", e)
	}
}
