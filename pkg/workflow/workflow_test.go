package workflow

import (
	"strings"
	"testing"

	"github.com/matzehuels/stageflow/pkg/errors"
)

const validDoc = `{
  "workflow": {"id": "returns", "title": "Returns"},
  "stages": [
    {"id": "receive", "title": "Receive"},
    {"id": "inspect", "title": "Inspect"}
  ],
  "statusNodes": [
    {"id": "received", "label": "Received", "connectedToStage": "receive"},
    {"id": "inspected", "label": "Inspected", "connectedToEntities": ["parcel"]}
  ],
  "entities": [
    {"id": "parcel", "title": "Parcel"}
  ]
}`

func TestDecode(t *testing.T) {
	data, err := Decode(strings.NewReader(validDoc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if data.Workflow.ID != "returns" {
		t.Errorf("Workflow.ID = %q, want returns", data.Workflow.ID)
	}
	if len(data.Stages) != 2 || len(data.StatusNodes) != 2 || len(data.Entities) != 1 {
		t.Fatalf("got %d stages, %d statuses, %d entities", len(data.Stages), len(data.StatusNodes), len(data.Entities))
	}
	if got := data.StatusNodes[0].ConnectedToStage; got != "receive" {
		t.Errorf("ConnectedToStage = %q, want receive", got)
	}
	if got := data.LinkedEntities(data.StatusNodes[1]); len(got) != 1 || got[0].ID != "parcel" {
		t.Errorf("LinkedEntities = %+v", got)
	}
}

func TestDecodeRejectsMalformedDocuments(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"NotJSON", `{stages`},
		{"MissingStages", `{"workflow": {"id": "w"}, "statusNodes": [], "entities": []}`},
		{"MissingEntities", `{"workflow": {"id": "w"}, "stages": [], "statusNodes": []}`},
		{"StagesNotArray", `{"workflow": {"id": "w"}, "stages": {}, "statusNodes": [], "entities": []}`},
		{"StatusNodesNull", `{"workflow": {"id": "w"}, "stages": [], "statusNodes": null, "entities": []}`},
		{"StageWithoutID", `{"workflow": {"id": "w"}, "stages": [{"title": "x"}], "statusNodes": [], "entities": []}`},
		{"NumericID", `{"workflow": {"id": "w"}, "stages": [{"id": 3}], "statusNodes": [], "entities": []}`},
		{"DuplicateID", `{"workflow": {"id": "w"}, "stages": [{"id": "a"}], "statusNodes": [{"id": "a"}], "entities": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.IsValidation(err) {
				t.Errorf("expected ValidationError, got %T: %v", err, err)
			}
			if !errors.Is(err, errors.ErrCodeInvalidWorkflow) {
				t.Errorf("code = %q, want %q", errors.GetCode(err), errors.ErrCodeInvalidWorkflow)
			}
		})
	}
}

func TestDecodeYAML(t *testing.T) {
	doc := `
workflow:
  id: returns
  title: Returns
stages:
  - id: receive
    title: Receive
statusNodes:
  - id: received
    label: Received
entities: []
`
	data, err := DecodeYAML([]byte(doc))
	if err != nil {
		t.Fatalf("DecodeYAML: %v", err)
	}
	if len(data.Stages) != 1 || data.Stages[0].Title != "Receive" {
		t.Errorf("Stages = %+v", data.Stages)
	}
	if data.Entities == nil || len(data.Entities) != 0 {
		t.Errorf("Entities = %#v, want empty non-nil slice", data.Entities)
	}

	if _, err := DecodeYAML([]byte("workflow: {id: w}\nstages: []\n")); !errors.IsValidation(err) {
		t.Errorf("missing lists should fail validation, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Data {
		return &Data{
			Workflow:    Definition{ID: "w"},
			Stages:      []Stage{{ID: "a"}, {ID: "b"}},
			StatusNodes: []StatusNode{{ID: "s1", ConnectedToStage: "missing"}},
			Entities:    []Entity{{ID: "e1"}},
		}
	}

	tests := []struct {
		name      string
		mutate    func(d *Data)
		wantField string
	}{
		{"Valid", func(d *Data) {}, ""},
		{"ZeroStages", func(d *Data) { d.Stages = nil; d.StatusNodes = nil }, ""},
		{"WorkflowIDMaySharePrefix", func(d *Data) { d.Workflow.ID = "a" }, ""},
		{"EmptyWorkflowID", func(d *Data) { d.Workflow.ID = "" }, "workflow.id"},
		{"EmptyStageID", func(d *Data) { d.Stages[1].ID = " " }, "stages[1].id"},
		{"DuplicateAcrossLists", func(d *Data) { d.Entities[0].ID = "s1" }, "entities[0].id"},
		{"ReservedID", func(d *Data) { d.StatusNodes[0].ID = "entities-group" }, "statusNodes[0].id"},
		{"ControlCharacter", func(d *Data) { d.Stages[0].ID = "a\nb" }, "stages[0].id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base()
			tt.mutate(d)
			err := Validate(d)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			var verr *errors.ValidationError
			if !asValidation(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestValidateNil(t *testing.T) {
	if err := Validate(nil); !errors.IsValidation(err) {
		t.Errorf("Validate(nil) = %v, want ValidationError", err)
	}
}

func TestLayoutConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *LayoutConfig)
		wantField string
	}{
		{"Defaults", func(c *LayoutConfig) {}, ""},
		{"ZeroPadding", func(c *LayoutConfig) { c.Padding = 0 }, ""},
		{"ZeroStageWidth", func(c *LayoutConfig) { c.StageWidth = 0 }, "stageWidth"},
		{"NegativeCircle", func(c *LayoutConfig) { c.CircleSize = -5 }, "circleSize"},
		{"NegativeGap", func(c *LayoutConfig) { c.ChipGap = -1 }, "chipGap"},
		{"PaddingConsumesWidth", func(c *LayoutConfig) { c.Padding = 400 }, "padding"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultLayoutConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			var verr *errors.ValidationError
			if !asValidation(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Code != errors.ErrCodeInvalidConfig {
				t.Errorf("Code = %q, want %q", verr.Code, errors.ErrCodeInvalidConfig)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestLayoutConfigWithDefaults(t *testing.T) {
	got := LayoutConfig{ContainerWidth: 1200}.WithDefaults()
	want := DefaultLayoutConfig()
	want.ContainerWidth = 1200
	if got != want {
		t.Errorf("WithDefaults() = %+v, want %+v", got, want)
	}
}

func TestSummary(t *testing.T) {
	d := &Data{
		Workflow: Definition{ID: "w", Title: "W"},
		Stages:   []Stage{{ID: "a"}, {ID: "b"}},
	}
	s := d.Summary()
	if s.ID != "w" || s.Title != "W" || s.Stages != 2 {
		t.Errorf("Summary() = %+v", s)
	}
	if d.StageIndex("b") != 1 || d.StageIndex("x") != -1 {
		t.Error("StageIndex mismatch")
	}
}

func asValidation(err error, target **errors.ValidationError) bool {
	v, ok := err.(*errors.ValidationError)
	if ok {
		*target = v
	}
	return ok
}
