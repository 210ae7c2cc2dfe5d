// Package connect infers the causal edges of a workflow diagram.
//
// Every stage emits one status marker, and every status marker leads into
// the next stage. Which status a stage emits is taken from the status's
// explicit ConnectedToStage link when present; otherwise the status at the
// same list position is used. The positional fallback applies even when
// that status is explicitly linked elsewhere, so mismatched list lengths
// or orderings can pair nodes the author did not intend.
package connect

import (
	"github.com/matzehuels/stageflow/pkg/graph"
	"github.com/matzehuels/stageflow/pkg/workflow"
)

// EdgeID returns the deterministic id of the edge from source to target.
func EdgeID(source, target string) string {
	return source + "-to-" + target
}

// Infer returns the inferred edges for data.
//
// All stage→status edges come first, in stage order, followed by all
// status→next-stage edges in status order. The two groups are not
// interleaved along the flow; callers that need path order should walk the
// edges by endpoint rather than by position. Ids are derived from the
// endpoints, so calling Infer twice on the same data yields identical
// results. If two edges would share an id the first one wins.
// ConnectedToEntities never produces an edge.
func Infer(data *workflow.Data) []graph.Edge {
	if data == nil || len(data.Stages) == 0 {
		return nil
	}

	b := newBuilder(len(data.Stages) + len(data.StatusNodes))

	for i, stage := range data.Stages {
		status, ok := emittedStatus(data, i, stage.ID)
		if !ok {
			continue
		}
		b.add(stage.ID, status.ID, graph.EdgeStageStatus)
	}

	for i, status := range data.StatusNodes {
		if i+1 >= len(data.Stages) {
			break
		}
		b.add(status.ID, data.Stages[i+1].ID, graph.EdgeSequence)
	}

	return b.edges
}

// emittedStatus picks the status a stage emits: the first status explicitly
// linked to stageID, else the status at the stage's index.
func emittedStatus(data *workflow.Data, index int, stageID string) (workflow.StatusNode, bool) {
	for _, s := range data.StatusNodes {
		if s.ConnectedToStage == stageID {
			return s, true
		}
	}
	if index < len(data.StatusNodes) {
		return data.StatusNodes[index], true
	}
	return workflow.StatusNode{}, false
}

type builder struct {
	edges []graph.Edge
	seen  map[string]struct{}
}

func newBuilder(capacity int) *builder {
	return &builder{
		edges: make([]graph.Edge, 0, capacity),
		seen:  make(map[string]struct{}, capacity),
	}
}

func (b *builder) add(source, target, kind string) {
	id := EdgeID(source, target)
	if _, dup := b.seen[id]; dup {
		return
	}
	b.seen[id] = struct{}{}
	b.edges = append(b.edges, graph.Edge{ID: id, Source: source, Target: target, Kind: kind})
}
