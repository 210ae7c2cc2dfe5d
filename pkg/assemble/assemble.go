// Package assemble combines layout and connection inference into a graph.
//
// [Assemble] is the single recompute entry point. It is pure: UI state is
// passed in as a [State] value owned by the caller, and the previous edge
// set is passed in explicitly so user-drawn edges survive a recompute.
package assemble

import (
	"github.com/matzehuels/stageflow/pkg/connect"
	"github.com/matzehuels/stageflow/pkg/graph"
	"github.com/matzehuels/stageflow/pkg/layout"
	"github.com/matzehuels/stageflow/pkg/workflow"
)

// State is the externally owned view state that shapes a recompute.
type State struct {
	// WorkflowID names the workflow the existing edges were drawn on. When it
	// does not match the data being assembled, existing edges are dropped.
	WorkflowID string `json:"workflowId"`

	// Expanded shows the entity chips.
	Expanded bool `json:"expanded"`

	// Selected flags the node with this id. Unknown ids are ignored.
	Selected string `json:"selected,omitempty"`
}

// Assemble lays out data, infers its edges and merges them with existing.
func Assemble(data *workflow.Data, cfg workflow.LayoutConfig, state State, existing []graph.Edge) graph.Graph {
	nodes := layout.Compute(data, cfg, state.Expanded)
	if state.Selected != "" {
		for i := range nodes {
			if nodes[i].ID == state.Selected {
				nodes[i].Selected = true
				break
			}
		}
	}

	var id string
	if data != nil {
		id = data.Workflow.ID
	}
	if state.WorkflowID == "" || state.WorkflowID != id {
		existing = nil
	}

	return graph.Graph{
		WorkflowID: id,
		Nodes:      nodes,
		Edges:      Merge(connect.Infer(data), existing),
	}
}

// Merge returns inferred followed by every existing edge whose id is not
// already inferred. Inferred edges win on id collisions; surviving existing
// edges are kept verbatim and in order.
func Merge(inferred, existing []graph.Edge) []graph.Edge {
	out := make([]graph.Edge, 0, len(inferred)+len(existing))
	taken := make(map[string]struct{}, len(inferred)+len(existing))
	for _, e := range inferred {
		out = append(out, e)
		taken[e.ID] = struct{}{}
	}
	for _, e := range existing {
		if _, ok := taken[e.ID]; ok {
			continue
		}
		out = append(out, e)
		taken[e.ID] = struct{}{}
	}
	return out
}
