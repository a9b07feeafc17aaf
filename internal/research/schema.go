package research

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

// validateDecision schema-validates a raw decision block before it is
// unmarshaled, the same sync.Once-compiled-schema idiom used in
// internal/codeagent/schema.go and internal/router/schema.go.
func validateDecision(raw []byte) error {
	decisionSchemaOnce.Do(func() {
		decisionSchema, decisionSchemaErr = jsonschema.CompileString("research_decision", decisionJSONSchema)
	})
	if decisionSchemaErr != nil {
		return decisionSchemaErr
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("research: decision block is not valid json: %w", err)
	}
	if err := decisionSchema.Validate(payload); err != nil {
		return fmt.Errorf("research: decision failed schema validation: %w", err)
	}
	return nil
}

const decisionJSONSchema = `{
  "type": "object",
  "required": ["decision"],
  "properties": {
    "decision": { "type": "string", "enum": ["execute_action", "summary"] },
    "action": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": { "type": "string", "enum": ["web_search", "web_scrape_url"] },
        "args": { "type": "array", "items": { "type": "string" } }
      },
      "additionalProperties": true
    },
    "reasoning": { "type": "string" },
    "has_next": { "type": "boolean" },
    "response": { "type": "string" }
  },
  "additionalProperties": true
}`
