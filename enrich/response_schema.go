package enrich

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const responseEntrySchemaJSON = `{
  "type": "object",
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "base_url": {"type": "string", "minLength": 1}
  },
  "required": ["id", "base_url"]
}`

var (
	responseEntrySchema     *jsonschema.Schema
	responseEntrySchemaOnce sync.Once
	responseEntrySchemaErr  error
)

func compiledResponseEntrySchema() (*jsonschema.Schema, error) {
	responseEntrySchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("enrich-response-entry.json", strings.NewReader(responseEntrySchemaJSON)); err != nil {
			responseEntrySchemaErr = err
			return
		}
		responseEntrySchema, responseEntrySchemaErr = compiler.Compile("enrich-response-entry.json")
	})
	return responseEntrySchema, responseEntrySchemaErr
}

// validateResponseEntry checks a decoded brain response entry against the
// shape the matcher requires: a non-empty string id and base_url. This is
// a validation step layered on top of the original implementation, which
// trusted json.loads structurally; here a schema failure is equivalent to
// "no entry matched" for that item.
func validateResponseEntry(entry map[string]json.RawMessage) error {
	schema, err := compiledResponseEntrySchema()
	if err != nil {
		return fmt.Errorf("compiling response schema: %w", err)
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("re-marshaling entry: %w", err)
	}
	var asAny any
	if err := json.Unmarshal(raw, &asAny); err != nil {
		return fmt.Errorf("decoding entry for validation: %w", err)
	}
	return schema.Validate(asAny)
}
