package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Schema is the JSON Schema subset used for tool inputs.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Minimum     *int               `json:"minimum,omitempty"`
}

// Object returns an object schema with the given properties.
func Object(props map[string]*Schema, required ...string) Schema {
	if props == nil {
		props = map[string]*Schema{}
	}
	return Schema{Type: "object", Properties: props, Required: required}
}

// String describes a string property.
func String(desc string) *Schema { return &Schema{Type: "string", Description: desc} }

// Bool describes a boolean property.
func Bool(desc string) *Schema { return &Schema{Type: "boolean", Description: desc} }

// Int describes an integer property with a lower bound.
func Int(desc string, minimum int) *Schema {
	return &Schema{Type: "integer", Description: desc, Minimum: &minimum}
}

// DecodeArgs unmarshals tool arguments into v. Missing or null arguments
// decode as an empty object. Required properties of schema must be present.
func DecodeArgs(args json.RawMessage, schema Schema, v any) error {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}
	var present map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &present); err != nil {
		return fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	for _, name := range schema.Required {
		if raw, ok := present[name]; !ok || bytes.Equal(raw, []byte("null")) {
			return fmt.Errorf("missing required argument %q", name)
		}
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
