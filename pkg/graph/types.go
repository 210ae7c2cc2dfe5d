package graph

import "slices"

// =============================================================================
// Constants - Single Source of Truth
// =============================================================================

// Node kinds.
const (
	KindContainer   = "container"
	KindStage       = "stage"
	KindStatus      = "status"
	KindEntityGroup = "entity-group"
	KindEntity      = "entity"
)

// Edge kinds.
const (
	EdgeStageStatus = "stage-status" // stage → the status it emits
	EdgeSequence    = "sequence"     // status → the next stage
	EdgeCustom      = "custom"       // drawn by a user
)

// Structural node ids. Workflow data may not reuse them.
const (
	ContainerID     = "workflow-container"
	EntitiesGroupID = "entities-group"
)

// IsReservedID reports whether id is taken by a structural node.
func IsReservedID(id string) bool {
	return id == ContainerID || id == EntitiesGroupID
}

// =============================================================================
// Graph - Renderable Node/Edge Set
// =============================================================================

// Graph is the canonical serialization format for an assembled workflow diagram.
// Used for API responses, caching and as renderer input.
//
// WorkflowID records which workflow the edges were computed for; it is how
// a later recompute decides whether user-drawn edges may be carried over.
type Graph struct {
	WorkflowID string `json:"workflow_id"`
	Nodes      []Node `json:"nodes"`
	Edges      []Edge `json:"edges"`
}

// =============================================================================
// Node - Positioned Element
// =============================================================================

// Node is a positioned structural element of the diagram.
//
// X and Y are relative to the origin of the node named by ParentID, or
// absolute when ParentID is empty. A child never extends past its parent.
type Node struct {
	ID       string  `json:"id"`
	Kind     string  `json:"kind"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width,omitempty"`
	Height   float64 `json:"height,omitempty"`
	ParentID string  `json:"parent_id,omitempty"`
	Label    string  `json:"label,omitempty"`
	Color    string  `json:"color,omitempty"`
	Selected bool    `json:"selected,omitempty"`
	Overflow int     `json:"overflow,omitempty"` // entity chips that did not fit (group only)
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// =============================================================================
// Edge - Directed Connection
// =============================================================================

// Edge is a directed connection between two nodes. Its ID is derived from
// Source and Target for inferred edges, so recomputation is idempotent.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind,omitempty"`
}

// IsCustom reports whether the edge was drawn by a user rather than inferred.
func (e *Edge) IsCustom() bool { return e.Kind == EdgeCustom }

// =============================================================================
// Lookup Helpers
// =============================================================================

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	i := slices.IndexFunc(g.Nodes, func(n Node) bool { return n.ID == id })
	if i < 0 {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// NodesOfKind returns the nodes of the given kind in emission order.
func (g *Graph) NodesOfKind(kind string) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Edge returns the edge with the given id.
func (g *Graph) Edge(id string) (Edge, bool) {
	i := slices.IndexFunc(g.Edges, func(e Edge) bool { return e.ID == id })
	if i < 0 {
		return Edge{}, false
	}
	return g.Edges[i], true
}

// CustomEdges returns the user-drawn edges in order.
func (g *Graph) CustomEdges() []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.IsCustom() {
			out = append(out, e)
		}
	}
	return out
}
