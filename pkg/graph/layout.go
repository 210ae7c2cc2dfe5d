package graph

// Rect is an axis-aligned rectangle in absolute diagram coordinates.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Right returns the right edge of the rectangle.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the bottom edge of the rectangle.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// CenterX returns the horizontal center point of the rectangle.
func (r Rect) CenterX() float64 { return r.X + r.Width/2 }

// CenterY returns the vertical center point of the rectangle.
func (r Rect) CenterY() float64 { return r.Y + r.Height/2 }

// Contains reports whether o lies entirely inside r (edges inclusive).
func (r Rect) Contains(o Rect) bool {
	const eps = 1e-9
	return o.X >= r.X-eps && o.Y >= r.Y-eps &&
		o.Right() <= r.Right()+eps && o.Bottom() <= r.Bottom()+eps
}

// Overlaps reports whether r and o share interior area.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.Right() && o.X < r.Right() && r.Y < o.Bottom() && o.Y < r.Bottom()
}

// Absolute resolves every node's relative position into absolute coordinates
// by walking the parent chain. Nodes whose parent is missing are treated as
// top-level. Cycles in the parent chain are cut at the first repeat.
func (g *Graph) Absolute() map[string]Rect {
	byID := make(map[string]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		byID[n.ID] = n
	}

	out := make(map[string]Rect, len(g.Nodes))
	for _, n := range g.Nodes {
		x, y := n.X, n.Y
		seen := map[string]bool{n.ID: true}
		for p := n.ParentID; p != "" && !seen[p]; {
			parent, ok := byID[p]
			if !ok {
				break
			}
			seen[p] = true
			x += parent.X
			y += parent.Y
			p = parent.ParentID
		}
		out[n.ID] = Rect{X: x, Y: y, Width: n.Width, Height: n.Height}
	}
	return out
}
