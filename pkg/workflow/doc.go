// Package workflow defines the input model of a stageflow diagram.
//
// A workflow is an ordered list of stages, a list of status markers that
// the stages emit, and an unordered set of data entities the workflow
// touches. [Data] is the aggregate root; it is produced by a catalog
// provider and replaced wholesale when the user picks another workflow.
//
// # Decoding
//
// Raw documents (JSON or YAML) are checked against an embedded JSON Schema
// before they are decoded, then [Validate] enforces id constraints:
//
//	data, err := workflow.Decode(r)
//	if errors.IsValidation(err) {
//	    // missing "stages", duplicate id, ...
//	}
//
// # Geometry
//
// [LayoutConfig] carries every number the layout engine uses.
// [DefaultLayoutConfig] is the single source of defaults for the CLI, the
// HTTP API and the terminal viewer.
package workflow
