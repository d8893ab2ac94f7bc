package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema is a named JSON Schema definition.
type Schema struct {
	Name       string
	Definition map[string]any
}

// MinOptions is the fewest answer options a generated question may have.
const MinOptions = 2

var quizSchema = &Schema{
	Name: "quiz",
	Definition: map[string]any{
		"type":     "object",
		"required": []any{"questions"},
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"question"},
					"anyOf": []any{
						map[string]any{"required": []any{"answerOptions"}},
						map[string]any{"required": []any{"options"}},
					},
					"properties": map[string]any{
						"question": map[string]any{"type": "string"},
						"hint":     map[string]any{"type": "string"},
						"category": map[string]any{"type": "string"},
						"answerOptions": map[string]any{
							"type":     "array",
							"minItems": MinOptions,
							"items": map[string]any{
								"type":     "object",
								"required": []any{"text"},
								"properties": map[string]any{
									"text":      map[string]any{"type": "string"},
									"rationale": map[string]any{"type": "string"},
									"isCorrect": map[string]any{"type": "boolean"},
								},
							},
						},
						"options": map[string]any{"type": "array", "minItems": MinOptions},
						"correct": map[string]any{"type": "string"},
					},
				},
			},
		},
	},
}

var topicsSchema = &Schema{
	Name: "topics",
	Definition: map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":     "object",
			"required": []any{"topic"},
			"properties": map[string]any{
				"topic":       map[string]any{"type": "string"},
				"description": map[string]any{"type": "string"},
			},
		},
	},
}

// schemaCache caches compiled JSON schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// validateJSON validates raw JSON text against schema.
// Returns *ErrInvalidResponse on failure.
func validateJSON(schema *Schema, raw string) error {
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	compiled, err := compiledSchema(schema)
	if err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("compile schema %q: %w", schema.Name, err)}
	}
	if err := compiled.Validate(parsed); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("schema validation failed: %w", err)}
	}
	return nil
}

func compiledSchema(schema *Schema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants a decoded JSON value, not Go maps with typed slices.
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	def, err := jsonschema.UnmarshalJSON(bytes.NewReader(defBytes))
	if err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}
