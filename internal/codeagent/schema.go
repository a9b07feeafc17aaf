package codeagent

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaRegistry lazily compiles the plan and change-envelope schemas,
// grounded on haasonsaas-nexus's ws_schema.go registry-plus-sync.Once
// idiom for validating model-shaped JSON before it's trusted.
type schemaRegistry struct {
	once    sync.Once
	initErr error
	plan    *jsonschema.Schema
	changes *jsonschema.Schema
}

var schemas schemaRegistry

func initSchemas() error {
	schemas.once.Do(func() {
		plan, err := jsonschema.CompileString("plan", planSchema)
		if err != nil {
			schemas.initErr = err
			return
		}
		schemas.plan = plan

		changes, err := jsonschema.CompileString("changes", changesSchema)
		if err != nil {
			schemas.initErr = err
			return
		}
		schemas.changes = changes
	})
	return schemas.initErr
}

// validatePlan checks a parsed plan against the steps schema before
// any step is executed.
func validatePlan(plan Plan) error {
	if err := initSchemas(); err != nil {
		return err
	}
	raw, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	if err := schemas.plan.Validate(payload); err != nil {
		return fmt.Errorf("codeagent: plan failed schema validation: %w", err)
	}
	return nil
}

// validateChangesEnvelope checks a raw `{"changes": [...]}` block
// before it's handed to fileops.Apply.
func validateChangesEnvelope(raw []byte) error {
	if err := initSchemas(); err != nil {
		return err
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("codeagent: changes block is not valid json: %w", err)
	}
	if err := schemas.changes.Validate(payload); err != nil {
		return fmt.Errorf("codeagent: changes failed schema validation: %w", err)
	}
	return nil
}

const planSchema = `{
  "type": "object",
  "required": ["steps"],
  "properties": {
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["operation_type", "filename", "target_location", "description"],
        "properties": {
          "operation_type": { "type": "string", "enum": ["NEW", "DELETE", "ADD", "REPLACE", "RENAME"] },
          "filename": { "type": "string", "minLength": 1 },
          "target_location": { "type": "string" },
          "description": { "type": "string", "minLength": 1 }
        },
        "additionalProperties": true
      }
    }
  },
  "additionalProperties": true
}`

const changesSchema = `{
  "type": "object",
  "required": ["changes"],
  "properties": {
    "changes": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["operation", "filename"],
        "properties": {
          "operation": { "type": "string", "enum": ["NEW", "DELETE", "ADD", "REPLACE", "RENAME"] },
          "filename": { "type": "string", "minLength": 1 }
        },
        "additionalProperties": true
      }
    }
  },
  "additionalProperties": true
}`
