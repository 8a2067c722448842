package schema

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Compiler turns Nodes into Validators. Compilation is memoized by the
// synthesized name of each nesting path (object base name plus property
// path, "[]" for array items) so structurally shared substructures are
// compiled once.
type Compiler struct {
	mu   sync.Mutex
	memo map[string]*Validator
}

// NewCompiler creates an empty compiler.
func NewCompiler() *Compiler {
	return &Compiler{memo: make(map[string]*Validator)}
}

// Compile builds a validator for node, memoized under name. A nil node,
// or one with no recognized type, compiles to a permissive validator.
func (c *Compiler) Compile(node *Node, name string) *Validator {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compile(node, name)
}

func (c *Compiler) compile(node *Node, name string) *Validator {
	if v, ok := c.memo[name]; ok {
		return v
	}
	v := &Validator{name: name, kind: node.Kind()}
	c.memo[name] = v

	switch v.kind {
	case Object:
		if len(node.Properties) == 0 && len(node.Required) == 0 {
			// Declared object with no declared properties: accept and pass
			// through any mapping unchanged.
			v.permissive = true
			return v
		}
		v.properties = make(map[string]*Validator, len(node.Properties))
		v.required = make(map[string]bool, len(node.Required))
		v.defaults = make(map[string]any)
		for _, prop := range sortedKeys(node.Properties) {
			child := node.Properties[prop]
			v.properties[prop] = c.compile(child, name+"."+prop)
			if child != nil && child.Default != nil {
				v.defaults[prop] = child.Default
			}
		}
		for _, req := range node.Required {
			v.required[req] = true
		}
	case Array:
		var item *Node
		if node != nil {
			item = node.Items
		}
		v.items = c.compile(item, name+"[]")
	case Unknown:
		v.permissive = true
	}
	return v
}

// Validator maps a raw argument mapping to a validated, typed mapping or
// a field-identifying validation failure. Validators are immutable once
// compiled and safe for concurrent use.
type Validator struct {
	name       string
	kind       Kind
	permissive bool
	properties map[string]*Validator
	required   map[string]bool
	defaults   map[string]any
	items      *Validator
}

// Kind returns the kind the validator checks for.
func (v *Validator) Kind() Kind { return v.kind }

// FieldError reports the offending field of a rejected argument mapping.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// Validate checks an argument mapping against the compiled schema and
// returns the typed mapping. Required properties missing from the input
// fail with a field-level error; absent optional properties are filled
// from the schema's declared default or left absent.
func (v *Validator) Validate(args map[string]any) (map[string]any, error) {
	if v.kind != Object || v.permissive {
		return args, nil
	}
	return v.validateObject(args, "")
}

func (v *Validator) validateObject(m map[string]any, path string) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for _, prop := range sortedKeys(v.properties) {
		pv := v.properties[prop]
		fieldPath := joinPath(path, prop)
		raw, ok := m[prop]
		if !ok {
			if v.required[prop] {
				return nil, &FieldError{Field: fieldPath, Reason: "required property missing"}
			}
			if d, has := v.defaults[prop]; has {
				out[prop] = d
			}
			continue
		}
		val, err := pv.convert(raw, fieldPath)
		if err != nil {
			return nil, err
		}
		out[prop] = val
	}
	// Required names without a declared property still have to be present.
	for _, req := range sortedKeys(v.required) {
		if _, declared := v.properties[req]; declared {
			continue
		}
		if _, ok := m[req]; !ok {
			return nil, &FieldError{Field: joinPath(path, req), Reason: "required property missing"}
		}
	}
	// Undeclared keys pass through untouched.
	for k, raw := range m {
		if _, declared := v.properties[k]; !declared {
			out[k] = raw
		}
	}
	return out, nil
}

// convert validates a single value, recursing into objects and arrays.
func (v *Validator) convert(raw any, path string) (any, error) {
	if v.permissive {
		return raw, nil
	}
	switch v.kind {
	case String:
		s, ok := raw.(string)
		if !ok {
			return nil, &FieldError{Field: path, Reason: fmt.Sprintf("expected string, got %T", raw)}
		}
		return s, nil
	case Integer:
		switch n := raw.(type) {
		case float64:
			// JSON numbers decode as float64; accept integral values only.
			if n != math.Trunc(n) {
				return nil, &FieldError{Field: path, Reason: fmt.Sprintf("expected integer, got %v", n)}
			}
			return int64(n), nil
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		default:
			return nil, &FieldError{Field: path, Reason: fmt.Sprintf("expected integer, got %T", raw)}
		}
	case Number:
		switch n := raw.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		default:
			return nil, &FieldError{Field: path, Reason: fmt.Sprintf("expected number, got %T", raw)}
		}
	case Boolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, &FieldError{Field: path, Reason: fmt.Sprintf("expected boolean, got %T", raw)}
		}
		return b, nil
	case Object:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, &FieldError{Field: path, Reason: fmt.Sprintf("expected object, got %T", raw)}
		}
		return v.validateObject(m, path)
	case Array:
		arr, ok := raw.([]any)
		if !ok {
			return nil, &FieldError{Field: path, Reason: fmt.Sprintf("expected array, got %T", raw)}
		}
		out := make([]any, len(arr))
		for i, item := range arr {
			val, err := v.items.convert(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil
	default:
		return raw, nil
	}
}

func joinPath(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
