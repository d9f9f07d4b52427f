package policy

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// bundleSchema is the JSON schema every policy bundle must satisfy before
// it is decoded. Catching shape errors here keeps the catalog loader free
// of field-by-field presence checks.
const bundleSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "name", "actions"],
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "name": {"type": "string", "minLength": 1},
    "actions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["platform", "action_type", "base_reward", "quality_range", "impact_range"],
        "properties": {
          "platform": {"type": "string", "minLength": 1},
          "action_type": {"type": "string", "minLength": 1},
          "base_reward": {"type": "string", "pattern": "^[0-9]+$"},
          "min_light_score": {"type": "number", "minimum": 0, "maximum": 100},
          "min_truth": {"type": "integer", "minimum": 0, "maximum": 100},
          "min_integrity": {"type": "number", "minimum": 0, "maximum": 1},
          "quality_range": {
            "type": "array", "minItems": 2, "maxItems": 2,
            "items": {"type": "number", "minimum": 0.5, "maximum": 3.0}
          },
          "impact_range": {
            "type": "array", "minItems": 2, "maxItems": 2,
            "items": {"type": "number", "minimum": 0.5, "maximum": 5.0}
          },
          "anti_farm_rules": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["id", "expression", "action"],
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "expression": {"type": "string", "minLength": 1},
                "action": {"enum": ["BLOCK", "WARN"]}
              }
            }
          }
        }
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("bundle.schema.json", bundleSchema)

// validateSchema checks raw bundle JSON against the schema.
func validateSchema(raw []byte) error {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	return compiledSchema.Validate(doc)
}
