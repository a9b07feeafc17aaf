package router

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	decisionSchemaOnce sync.Once
	decisionSchema     *jsonschema.Schema
	decisionSchemaErr  error
)

// validateDecision checks a raw decision JSON block against the
// three-way decision shape before it's unmarshaled into a struct,
// grounded on the same sync.Once-compiled-schema idiom used in
// internal/codeagent/schema.go.
func validateDecision(raw []byte) error {
	decisionSchemaOnce.Do(func() {
		decisionSchema, decisionSchemaErr = jsonschema.CompileString("router_decision", decisionJSONSchema)
	})
	if decisionSchemaErr != nil {
		return decisionSchemaErr
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("router: decision block is not valid json: %w", err)
	}
	if err := decisionSchema.Validate(payload); err != nil {
		return fmt.Errorf("router: decision failed schema validation: %w", err)
	}
	return nil
}

const decisionJSONSchema = `{
  "type": "object",
  "required": ["decision"],
  "properties": {
    "decision": { "type": "string", "enum": ["execute_command", "clarify", "chat"] },
    "command": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": { "type": "string", "minLength": 1 },
        "args": { "type": "array", "items": { "type": "string" } }
      },
      "additionalProperties": true
    },
    "question": { "type": "string" },
    "response": { "type": "string" }
  },
  "additionalProperties": true
}`
