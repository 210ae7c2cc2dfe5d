package workflow

import (
	"fmt"

	"github.com/matzehuels/stageflow/pkg/errors"
	"github.com/matzehuels/stageflow/pkg/graph"
)

// Validate checks the identity constraints of a workflow aggregate: every id
// is non-empty and well formed, ids are unique across stages, status nodes
// and entities, and no element uses a structural node id.
//
// The workflow's own id lives in a separate namespace and may coincide with
// an element id. Dangling ConnectedToStage and ConnectedToEntities links are
// not errors; inference ignores them.
func Validate(d *Data) error {
	if d == nil {
		return errors.Invalid(errors.ErrCodeInvalidWorkflow, "", "workflow data is nil")
	}
	if err := errors.ValidateID("workflow.id", d.Workflow.ID); err != nil {
		return err
	}

	seen := make(map[string]string, len(d.Stages)+len(d.StatusNodes)+len(d.Entities))
	check := func(field, id string) error {
		if err := errors.ValidateID(field, id); err != nil {
			return err
		}
		if graph.IsReservedID(id) {
			return errors.Invalid(errors.ErrCodeInvalidWorkflow, field, "id %q is reserved", id)
		}
		if prev, ok := seen[id]; ok {
			return errors.Invalid(errors.ErrCodeInvalidWorkflow, field, "duplicate id %q (already used by %s)", id, prev)
		}
		seen[id] = field
		return nil
	}

	for i, s := range d.Stages {
		if err := check(fmt.Sprintf("stages[%d].id", i), s.ID); err != nil {
			return err
		}
	}
	for i, s := range d.StatusNodes {
		if err := check(fmt.Sprintf("statusNodes[%d].id", i), s.ID); err != nil {
			return err
		}
	}
	for i, e := range d.Entities {
		if err := check(fmt.Sprintf("entities[%d].id", i), e.ID); err != nil {
			return err
		}
	}
	return nil
}
