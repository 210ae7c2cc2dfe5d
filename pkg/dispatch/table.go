package dispatch

import "github.com/matzehuels/stageflow/pkg/graph"

type nodeKey struct {
	node  string
	event EventType
}

// Table binds events to actions. Lookup prefers a node id binding, then a
// node kind binding, then an event-wide binding.
type Table struct {
	byNode  map[nodeKey]Action
	byKind  map[nodeKey]Action
	byEvent map[EventType]Action
}

// NewTable returns an empty table.
func NewTable() Table {
	return Table{
		byNode:  make(map[nodeKey]Action),
		byKind:  make(map[nodeKey]Action),
		byEvent: make(map[EventType]Action),
	}
}

// DefaultTable returns the stock bindings: clicking the entity group toggles
// it, clicking a stage or status selects it, and toggle, connect,
// disconnect and select-workflow apply anywhere.
func DefaultTable() Table {
	t := NewTable()
	t.On(graph.EntitiesGroupID, EventClick, ToggleExpanded)
	t.OnKind(graph.KindStage, EventClick, Select)
	t.OnKind(graph.KindStatus, EventClick, Select)
	t.OnEvent(EventToggle, ToggleExpanded)
	t.OnEvent(EventConnect, Connect)
	t.OnEvent(EventDisconnect, Disconnect)
	t.OnEvent(EventSelectWorkflow, SelectWorkflow)
	return t
}

// On binds an action to one node id.
func (t Table) On(nodeID string, ev EventType, a Action) {
	t.byNode[nodeKey{nodeID, ev}] = a
}

// OnKind binds an action to every node of a kind.
func (t Table) OnKind(kind string, ev EventType, a Action) {
	t.byKind[nodeKey{kind, ev}] = a
}

// OnEvent binds an action to an event regardless of node.
func (t Table) OnEvent(ev EventType, a Action) {
	t.byEvent[ev] = a
}

func (t Table) lookup(nodeID, kind string, ev EventType) Action {
	if nodeID != "" {
		if a, ok := t.byNode[nodeKey{nodeID, ev}]; ok {
			return a
		}
	}
	if kind != "" {
		if a, ok := t.byKind[nodeKey{kind, ev}]; ok {
			return a
		}
	}
	return t.byEvent[ev]
}
