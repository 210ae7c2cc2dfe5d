// Package dispatch maps user interactions on diagram nodes to state changes.
//
// Nodes carry only an identity and a kind. What happens when a node is
// clicked is decided by a [Table] of bindings, keyed by node id, node kind
// or event type, each resolving to an [Action] that transforms a caller
// owned [Session]. The layout core never sees a handler.
//
//	d := dispatch.New()
//	sess := dispatch.NewSession("returns")
//	g := assemble.Assemble(data, cfg, sess.State(), sess.Edges)
//	err := d.Dispatch(&sess, g, dispatch.Event{Type: dispatch.EventClick, NodeID: graph.EntitiesGroupID})
package dispatch

import (
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/stageflow/pkg/assemble"
	"github.com/matzehuels/stageflow/pkg/errors"
	"github.com/matzehuels/stageflow/pkg/graph"
)

// EventType names a user interaction.
type EventType string

// Supported events.
const (
	EventClick          EventType = "click"
	EventToggle         EventType = "toggle"
	EventConnect        EventType = "connect"
	EventDisconnect     EventType = "disconnect"
	EventSelectWorkflow EventType = "select-workflow"
)

// CustomEdgePrefix starts the id of every user-drawn edge.
const CustomEdgePrefix = "custom-"

// Event is one user interaction. Which fields are read depends on Type.
type Event struct {
	Type       EventType `json:"type"`
	NodeID     string    `json:"nodeId,omitempty"`     // click
	Source     string    `json:"source,omitempty"`     // connect
	Target     string    `json:"target,omitempty"`     // connect
	EdgeID     string    `json:"edgeId,omitempty"`     // disconnect
	WorkflowID string    `json:"workflowId,omitempty"` // select-workflow
}

// Session is the mutable view state of one diagram consumer. Edges holds
// only the user-drawn edges; inferred edges are recomputed every time.
type Session struct {
	WorkflowID string       `json:"workflowId"`
	Expanded   bool         `json:"expanded"`
	Selected   string       `json:"selected,omitempty"`
	Edges      []graph.Edge `json:"edges"`
}

// NewSession returns a fresh session for the given workflow.
func NewSession(workflowID string) Session {
	return Session{WorkflowID: workflowID}
}

// State returns the assembler view of the session.
func (s Session) State() assemble.State {
	return assemble.State{
		WorkflowID: s.WorkflowID,
		Expanded:   s.Expanded,
		Selected:   s.Selected,
	}
}

// Action applies an event to a session. g is the graph the event was
// raised on and is read only.
type Action func(d *Dispatcher, s *Session, g *graph.Graph, ev Event) error

// Dispatcher resolves events through its table and runs the bound action.
type Dispatcher struct {
	table Table
	newID func() string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTable replaces the default bindings.
func WithTable(t Table) Option {
	return func(d *Dispatcher) { d.table = t }
}

// WithIDGenerator sets the function that produces custom edge id suffixes.
func WithIDGenerator(fn func() string) Option {
	return func(d *Dispatcher) { d.newID = fn }
}

// New creates a Dispatcher with [DefaultTable] and uuid edge ids.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		table: DefaultTable(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch applies ev to s. Events without a binding are ignored, except
// for unknown event types which return an INVALID_EVENT error.
func (d *Dispatcher) Dispatch(s *Session, g graph.Graph, ev Event) error {
	if !ev.Type.valid() {
		return errors.New(errors.ErrCodeInvalidEvent, "unknown event type %q", ev.Type)
	}
	var kind string
	if ev.NodeID != "" {
		n, ok := g.Node(ev.NodeID)
		if !ok {
			return errors.New(errors.ErrCodeNotFound, "node %q not in diagram", ev.NodeID)
		}
		kind = n.Kind
	}
	action := d.table.lookup(ev.NodeID, kind, ev.Type)
	if action == nil {
		return nil
	}
	return action(d, s, &g, ev)
}

func (t EventType) valid() bool {
	switch t {
	case EventClick, EventToggle, EventConnect, EventDisconnect, EventSelectWorkflow:
		return true
	}
	return false
}

// =============================================================================
// Actions
// =============================================================================

// ToggleExpanded flips the entity group between collapsed and expanded.
func ToggleExpanded(_ *Dispatcher, s *Session, _ *graph.Graph, _ Event) error {
	s.Expanded = !s.Expanded
	return nil
}

// Select marks the event's node as selected. Selecting the selected node
// again clears the selection.
func Select(_ *Dispatcher, s *Session, _ *graph.Graph, ev Event) error {
	if s.Selected == ev.NodeID {
		s.Selected = ""
		return nil
	}
	s.Selected = ev.NodeID
	return nil
}

// Connect adds a custom edge between two nodes of the diagram.
func Connect(d *Dispatcher, s *Session, g *graph.Graph, ev Event) error {
	for _, id := range []string{ev.Source, ev.Target} {
		if id == "" {
			return errors.New(errors.ErrCodeInvalidEvent, "connect needs source and target")
		}
		if _, ok := g.Node(id); !ok {
			return errors.New(errors.ErrCodeNotFound, "node %q not in diagram", id)
		}
	}
	s.Edges = append(s.Edges, graph.Edge{
		ID:     CustomEdgePrefix + d.newID(),
		Source: ev.Source,
		Target: ev.Target,
		Kind:   graph.EdgeCustom,
	})
	return nil
}

// Disconnect removes a user-drawn edge. Inferred edges cannot be removed.
func Disconnect(_ *Dispatcher, s *Session, g *graph.Graph, ev Event) error {
	for i, e := range s.Edges {
		if e.ID == ev.EdgeID {
			s.Edges = append(s.Edges[:i:i], s.Edges[i+1:]...)
			return nil
		}
	}
	if e, ok := g.Edge(ev.EdgeID); ok && !e.IsCustom() {
		return errors.New(errors.ErrCodeInvalidEvent, "edge %q is inferred and cannot be removed", ev.EdgeID)
	}
	return errors.New(errors.ErrCodeNotFound, "edge %q not found", ev.EdgeID)
}

// SelectWorkflow switches the session to another workflow. Nothing carries
// over: expansion, selection and custom edges all reset.
func SelectWorkflow(_ *Dispatcher, s *Session, _ *graph.Graph, ev Event) error {
	id := strings.TrimSpace(ev.WorkflowID)
	if id == "" {
		return errors.New(errors.ErrCodeInvalidEvent, "select-workflow needs a workflow id")
	}
	*s = NewSession(id)
	return nil
}
