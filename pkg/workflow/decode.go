package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/stageflow/pkg/errors"
)

const schemaURL = "https://stageflow.dev/schemas/workflow.json"

// documentSchemaJSON describes the shape every workflow document must have
// before it is handed to the layout core. It is lenient about optional
// fields and unknown keys so hand-written catalogs stay easy to extend.
const documentSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["workflow", "stages", "statusNodes", "entities"],
  "properties": {
    "workflow": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": {"type": "string"},
        "title": {"type": "string"},
        "description": {"type": "string"}
      }
    },
    "stages": {
      "type": "array",
      "items": {"$ref": "#/$defs/element"}
    },
    "statusNodes": {
      "type": "array",
      "items": {
        "allOf": [{"$ref": "#/$defs/element"}],
        "properties": {
          "connectedToStage": {"type": "string"},
          "connectedToEntities": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "entities": {
      "type": "array",
      "items": {"$ref": "#/$defs/element"}
    }
  },
  "$defs": {
    "element": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": {"type": "string"},
        "title": {"type": "string"},
        "label": {"type": "string"},
        "color": {"type": "string"}
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(documentSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal workflow schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("add workflow schema resource: %w", err)
	}
	sch, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile workflow schema: %w", err)
	}
	return sch, nil
})

// Decode reads a JSON workflow document, checks its shape and semantic
// constraints, and returns the decoded data.
//
// A document missing one of the top-level collections, or carrying a
// non-array where a list is expected, is rejected with a ValidationError
// (code INVALID_WORKFLOW) before any decoding into Go types happens.
func Decode(r io.Reader) (*Data, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read workflow document")
	}
	return decodeJSON(raw)
}

// DecodeYAML is Decode for YAML documents. The document is converted to
// JSON first so both formats go through the same schema.
func DecodeYAML(raw []byte) (*Data, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Invalid(errors.ErrCodeInvalidWorkflow, "", "malformed YAML: %v", err)
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Invalid(errors.ErrCodeInvalidWorkflow, "", "YAML is not representable as JSON: %v", err)
	}
	return decodeJSON(js)
}

func decodeJSON(raw []byte) (*Data, error) {
	sch, err := compiledSchema()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "workflow schema")
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Invalid(errors.ErrCodeInvalidWorkflow, "", "malformed JSON: %v", err)
	}
	if err := sch.Validate(inst); err != nil {
		return nil, schemaError(err)
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.Invalid(errors.ErrCodeInvalidWorkflow, "", "%v", err)
	}
	if err := Validate(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// schemaError reduces a jsonschema failure to the first leaf violation.
func schemaError(err error) error {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return errors.Invalid(errors.ErrCodeInvalidWorkflow, "", "%v", err)
	}
	for len(verr.Causes) > 0 {
		verr = verr.Causes[0]
	}
	field := strings.Join(verr.InstanceLocation, ".")
	return errors.Invalid(errors.ErrCodeInvalidWorkflow, field, "%s", leafMessage(verr))
}

var printer = message.NewPrinter(language.English)

func leafMessage(verr *jsonschema.ValidationError) string {
	if verr.ErrorKind == nil {
		return verr.Error()
	}
	return verr.ErrorKind.LocalizedString(printer)
}
