// Package layout computes deterministic positions for workflow diagrams.
//
// [Compute] places one container, a left-to-right row of stage cards, a
// status marker centred under each stage column and a group of entity chips
// below. All coordinates come from [workflow.LayoutConfig]; nothing is
// measured or randomised, so the same inputs always yield the same nodes.
//
// Child coordinates are relative to the parent's origin. Stages, status
// markers and the entity group are children of the container; entity chips
// are children of the group.
package layout

import (
	"math"

	"github.com/matzehuels/stageflow/pkg/graph"
	"github.com/matzehuels/stageflow/pkg/workflow"
)

// Compute returns the positioned nodes for data under cfg.
//
// Nodes are emitted in a fixed order: container, stages, status nodes,
// entity group, then (only when expanded) entity chips. The expanded flag
// affects nothing but the chips, so toggling it never moves a stage or
// status node. A workflow without stages yields the container alone.
func Compute(data *workflow.Data, cfg workflow.LayoutConfig, expanded bool) []graph.Node {
	var (
		stages   []workflow.Stage
		statuses []workflow.StatusNode
		entities []workflow.Entity
	)
	if data != nil {
		stages, statuses, entities = data.Stages, data.StatusNodes, data.Entities
	}

	nodes := make([]graph.Node, 0, 2+len(stages)+len(statuses)+len(entities))
	nodes = append(nodes, graph.Node{
		ID:     graph.ContainerID,
		Kind:   graph.KindContainer,
		Width:  cfg.ContainerWidth,
		Height: cfg.ContainerHeight,
		Label:  workflowTitle(data),
	})
	if len(stages) == 0 {
		return nodes
	}

	g := newGrid(len(stages), cfg)

	for i, s := range stages {
		nodes = append(nodes, graph.Node{
			ID:       s.ID,
			Kind:     graph.KindStage,
			X:        g.columnX(i),
			Y:        g.stageY,
			Width:    cfg.StageWidth,
			Height:   cfg.StageHeight,
			ParentID: graph.ContainerID,
			Label:    s.Title,
			Color:    s.Color,
		})
	}

	for i, s := range statuses {
		nodes = append(nodes, graph.Node{
			ID:       s.ID,
			Kind:     graph.KindStatus,
			X:        g.columnX(i) + cfg.StageWidth/2 - cfg.CircleSize/2,
			Y:        g.circleY,
			Width:    cfg.CircleSize,
			Height:   cfg.CircleSize,
			ParentID: graph.ContainerID,
			Label:    s.Label,
			Color:    s.Color,
		})
	}

	group := graph.Node{
		ID:       graph.EntitiesGroupID,
		Kind:     graph.KindEntityGroup,
		X:        cfg.Padding,
		Y:        g.groupY,
		Width:    cfg.ContainerWidth - 2*cfg.Padding,
		Height:   math.Max(cfg.ContainerHeight-g.groupY-cfg.Padding, 0),
		ParentID: graph.ContainerID,
		Label:    "Entities",
	}

	var chips []graph.Node
	if expanded {
		chips, group.Overflow = placeChips(entities, group.Width, group.Height, cfg)
	}
	nodes = append(nodes, group)
	return append(nodes, chips...)
}

// Spacing returns the horizontal gap between adjacent stage cards for a
// row of n stages. It is 0 for n <= 1 and never below
// [workflow.MinStageSpacing] otherwise.
func Spacing(n int, cfg workflow.LayoutConfig) float64 {
	if n <= 1 {
		return 0
	}
	available := cfg.ContainerWidth - 2*cfg.Padding
	return math.Max((available-float64(n)*cfg.StageWidth)/float64(n-1), workflow.MinStageSpacing)
}

// Fits reports whether a row of n stage cards stays inside the container's
// padded area. When the minimum spacing kicks in, the row runs past the
// right edge and Fits returns false.
func Fits(n int, cfg workflow.LayoutConfig) bool {
	if n <= 0 {
		return true
	}
	right := cfg.Padding + float64(n)*cfg.StageWidth + float64(n-1)*Spacing(n, cfg)
	return right <= cfg.ContainerWidth-cfg.Padding+1e-9
}

// grid holds the derived row and column geometry shared by all nodes.
type grid struct {
	padding float64
	step    float64 // stage width plus spacing
	stageY  float64
	circleY float64
	groupY  float64
}

func newGrid(n int, cfg workflow.LayoutConfig) grid {
	stageY := cfg.Padding + cfg.HeaderHeight
	circleY := stageY + cfg.StageHeight + cfg.VerticalSpacing
	return grid{
		padding: cfg.Padding,
		step:    cfg.StageWidth + Spacing(n, cfg),
		stageY:  stageY,
		circleY: circleY,
		groupY:  circleY + cfg.CircleSize + cfg.VerticalSpacing,
	}
}

// columnX is the left edge of stage column i. Columns past the last stage
// continue with the same step.
func (g grid) columnX(i int) float64 {
	return g.padding + float64(i)*g.step
}

func workflowTitle(data *workflow.Data) string {
	if data == nil {
		return ""
	}
	if data.Workflow.Title != "" {
		return data.Workflow.Title
	}
	return data.Workflow.ID
}
