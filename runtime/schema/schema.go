package schema

import (
	_ "embed"
	"encoding/json"

	"github.com/xeipuuv/gojsonschema"
)

// Schema validates Go values against a compiled JSON schema.
type Schema struct {
	schema *gojsonschema.Schema
}

func new(schema *gojsonschema.Schema) *Schema {
	return &Schema{schema: schema}
}

// Validate validates data, which must be a JSON-compatible Go value.
func (s *Schema) Validate(data any) (*gojsonschema.Result, error) {
	return s.schema.Validate(gojsonschema.NewGoLoader(data))
}

//go:embed response.json
var response json.RawMessage
var responseLoader = gojsonschema.NewBytesLoader(response)

// NewResponseSchema returns the schema of the value scripts submit as
// their response.
func NewResponseSchema() (*Schema, error) {
	schema, err := gojsonschema.NewSchema(responseLoader)
	if err != nil {
		return nil, err
	}

	return new(schema), nil
}
