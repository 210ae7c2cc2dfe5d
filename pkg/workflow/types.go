package workflow

import "slices"

// Definition identifies the overall workflow. It is immutable once loaded.
type Definition struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Stage is one step in a strictly ordered sequence. Its position in
// [Data.Stages] is its temporal position.
type Stage struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
}

// StatusNode is a marker conceptually emitted by a stage.
//
// ConnectedToStage is an optional explicit link to the emitting stage.
// ConnectedToEntities lists the entities the status touches; it is carried
// for consumers but never turned into an edge. Links to unknown ids are
// treated as absent.
type StatusNode struct {
	ID                  string   `json:"id"`
	Label               string   `json:"label"`
	Color               string   `json:"color,omitempty"`
	ConnectedToStage    string   `json:"connectedToStage,omitempty"`
	ConnectedToEntities []string `json:"connectedToEntities,omitempty"`
}

// Entity is a data object affected by the workflow. Entities have no
// ordering meaning beyond the wrap layout of the entity group.
type Entity struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Color string `json:"color,omitempty"`
}

// Data is the aggregate root handed to the layout core. It is created by a
// provider and replaced wholesale on selection change, never patched.
type Data struct {
	Workflow    Definition   `json:"workflow"`
	Stages      []Stage      `json:"stages"`
	StatusNodes []StatusNode `json:"statusNodes"`
	Entities    []Entity     `json:"entities"`
}

// Summary is the listing view of a workflow used by selection screens.
type Summary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Stages      int    `json:"stages"`
}

// Summary returns the listing view of d.
func (d *Data) Summary() Summary {
	return Summary{
		ID:          d.Workflow.ID,
		Title:       d.Workflow.Title,
		Description: d.Workflow.Description,
		Stages:      len(d.Stages),
	}
}

// StageIndex returns the position of the stage with the given id, or -1.
func (d *Data) StageIndex(id string) int {
	for i, s := range d.Stages {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// HasEntity reports whether an entity with the given id exists.
func (d *Data) HasEntity(id string) bool {
	for _, e := range d.Entities {
		if e.ID == id {
			return true
		}
	}
	return false
}

// LinkedEntities returns the entities a status node is associated with,
// skipping ids that do not resolve.
func (d *Data) LinkedEntities(s StatusNode) []Entity {
	var out []Entity
	for _, id := range s.ConnectedToEntities {
		for _, e := range d.Entities {
			if e.ID == id {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Clone returns a deep copy of d.
func (d *Data) Clone() *Data {
	if d == nil {
		return nil
	}
	c := &Data{
		Workflow:    d.Workflow,
		Stages:      slices.Clone(d.Stages),
		StatusNodes: slices.Clone(d.StatusNodes),
		Entities:    slices.Clone(d.Entities),
	}
	for i := range c.StatusNodes {
		c.StatusNodes[i].ConnectedToEntities = slices.Clone(c.StatusNodes[i].ConnectedToEntities)
	}
	return c
}
