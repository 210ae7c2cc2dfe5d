package layout

import (
	"github.com/matzehuels/stageflow/pkg/graph"
	"github.com/matzehuels/stageflow/pkg/workflow"
)

// placeChips wraps entity chips into rows inside a group of the given size.
// Positions are relative to the group. Chips whose row would cross the
// group's bottom edge are dropped and counted in the returned overflow.
func placeChips(entities []workflow.Entity, width, height float64, cfg workflow.LayoutConfig) ([]graph.Node, int) {
	if len(entities) == 0 {
		return nil, 0
	}

	perRow := ChipsPerRow(width, cfg)
	out := make([]graph.Node, 0, len(entities))
	for i, e := range entities {
		row, col := i/perRow, i%perRow
		x := cfg.ChipGap + float64(col)*(cfg.ChipWidth+cfg.ChipGap)
		y := cfg.ChipGap + float64(row)*(cfg.ChipHeight+cfg.ChipGap)
		if y+cfg.ChipHeight > height {
			return out, len(entities) - i
		}
		out = append(out, graph.Node{
			ID:       e.ID,
			Kind:     graph.KindEntity,
			X:        x,
			Y:        y,
			Width:    cfg.ChipWidth,
			Height:   cfg.ChipHeight,
			ParentID: graph.EntitiesGroupID,
			Label:    e.Title,
			Color:    e.Color,
		})
	}
	return out, 0
}

// ChipsPerRow returns how many entity chips fit side by side in a group of
// the given width. It is at least 1.
func ChipsPerRow(width float64, cfg workflow.LayoutConfig) int {
	n := int((width - cfg.ChipGap) / (cfg.ChipWidth + cfg.ChipGap))
	return max(n, 1)
}
