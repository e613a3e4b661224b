package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the JSON type a schema property must have.
type Kind string

const (
	KindAny    Kind = ""
	KindString Kind = "string"
	KindArray  Kind = "array"
	KindObject Kind = "object"
)

// Property is one top-level key of an object schema.
type Property struct {
	Name     string
	Kind     Kind
	Required bool
}

// Schema is a flat object contract for a structured reply. It is checked at
// the gateway boundary and, when structured output is enabled, forwarded to
// the backend as a JSON schema.
type Schema struct {
	Name       string
	Properties []Property
}

// Extract recovers the reply object and validates it.
func (s *Schema) Extract(text string) (map[string]interface{}, error) {
	obj, _, err := ExtractObject(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaMismatch, err)
	}
	if err := s.Validate(obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Validate checks required keys and declared kinds. Unknown keys are allowed.
func (s *Schema) Validate(obj map[string]interface{}) error {
	var problems []string
	for _, p := range s.Properties {
		v, ok := obj[p.Name]
		if !ok || v == nil {
			if p.Required {
				problems = append(problems, fmt.Sprintf("missing %q", p.Name))
			}
			continue
		}
		if !kindMatches(p.Kind, v) {
			problems = append(problems, fmt.Sprintf("%q is not %s", p.Name, p.Kind))
			continue
		}
		if p.Required && p.Kind == KindString && strings.TrimSpace(v.(string)) == "" {
			problems = append(problems, fmt.Sprintf("%q is empty", p.Name))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s: %s", ErrSchemaMismatch, s.Name, strings.Join(problems, ", "))
	}
	return nil
}

func kindMatches(kind Kind, v interface{}) bool {
	switch kind {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindArray:
		_, ok := v.([]interface{})
		return ok
	case KindObject:
		_, ok := v.(map[string]interface{})
		return ok
	default:
		return true
	}
}

// MarshalJSON renders the schema as a JSON Schema document.
func (s *Schema) MarshalJSON() ([]byte, error) {
	props := make(map[string]interface{}, len(s.Properties))
	required := make([]string, 0, len(s.Properties))
	for _, p := range s.Properties {
		def := map[string]interface{}{}
		switch p.Kind {
		case KindArray:
			def["type"] = "array"
			def["items"] = map[string]string{"type": "string"}
		case KindString, KindObject:
			def["type"] = string(p.Kind)
		}
		props[p.Name] = def
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return json.Marshal(map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	})
}
