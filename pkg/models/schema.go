package models

// JSONSchema represents a JSON Schema for node data validation.
type JSONSchema struct {
	Type        string               `json:"type"                  yaml:"type"`
	Properties  map[string]*Property `json:"properties,omitempty"  yaml:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"    yaml:"required,omitempty"`
	Title       string               `json:"title,omitempty"       yaml:"title,omitempty"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
}

// Property represents a JSON Schema property.
type Property struct {
	Type        string               `json:"type"                  yaml:"type"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Enum        []any                `json:"enum,omitempty"        yaml:"enum,omitempty"`
	Default     any                  `json:"default,omitempty"     yaml:"default,omitempty"`
	MinLength   *int                 `json:"minLength,omitempty"   yaml:"minLength,omitempty"`
	Minimum     *float64             `json:"minimum,omitempty"     yaml:"minimum,omitempty"`
	Items       *Property            `json:"items,omitempty"       yaml:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"  yaml:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"    yaml:"required,omitempty"`
}

// NodeKindInfo describes a registered node kind.
type NodeKindInfo struct {
	Kind        NodeKind    `json:"kind"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Color       string      `json:"color"`
	Schema      *JSONSchema `json:"schema,omitempty"`
}
