// Package schema translates externally supplied argument schemas into
// typed, validating argument binders. Schemas arrive at runtime (for
// example from an MCP tool listing) so validators are compiled from a
// tagged description rather than generated from Go types.
package schema

import (
	"encoding/json"
	"fmt"
)

// Kind classifies the expected shape of a value.
type Kind string

const (
	String  Kind = "string"
	Integer Kind = "integer"
	Number  Kind = "number"
	Boolean Kind = "boolean"
	Object  Kind = "object"
	Array   Kind = "array"

	// Unknown is the kind of a node with no (or an unrecognized) declared
	// type. Unknown validates permissively: any value passes through.
	Unknown Kind = "unknown"
)

// Node is a recursive description of an expected argument shape, in the
// JSON Schema subset that tool descriptors use.
type Node struct {
	Type        string           `json:"type,omitempty"`
	Description string           `json:"description,omitempty"`
	Properties  map[string]*Node `json:"properties,omitempty"`
	Required    []string         `json:"required,omitempty"`
	Items       *Node            `json:"items,omitempty"`
	Default     any              `json:"default,omitempty"`
}

// Kind returns the node's kind, defaulting to Unknown for a nil node or
// an absent/unrecognized type.
func (n *Node) Kind() Kind {
	if n == nil {
		return Unknown
	}
	switch n.Type {
	case "string":
		return String
	case "integer":
		return Integer
	case "number":
		return Number
	case "boolean":
		return Boolean
	case "object":
		return Object
	case "array":
		return Array
	default:
		return Unknown
	}
}

// Parse decodes a JSON Schema-shaped document into a Node.
func Parse(data []byte) (*Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return &n, nil
}

// FromMap converts an already-decoded schema document (for example the
// input schema of a remote tool descriptor) into a Node.
func FromMap(m map[string]any) (*Node, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	return Parse(data)
}
