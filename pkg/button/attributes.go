package button

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Attributes is an insertion-ordered mapping of option names to values.
// Re-setting an existing key replaces its value but keeps its position. Read
// methods are safe on a nil receiver.
type Attributes struct {
	keys   []string
	values map[string]Value
}

// NewAttributes returns an empty mapping.
func NewAttributes() *Attributes {
	return &Attributes{values: make(map[string]Value)}
}

// Set stores value under key.
func (a *Attributes) Set(key string, value Value) {
	if a.values == nil {
		a.values = make(map[string]Value)
	}
	if _, exists := a.values[key]; !exists {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

// Get returns the value stored under key.
func (a *Attributes) Get(key string) (Value, bool) {
	if a == nil {
		return Value{}, false
	}
	value, ok := a.values[key]
	if !ok {
		return Value{}, false
	}
	return value.clone(), true
}

// Has reports whether key is present.
func (a *Attributes) Has(key string) bool {
	if a == nil {
		return false
	}
	_, ok := a.values[key]
	return ok
}

// Delete removes key, preserving the order of the remaining entries.
func (a *Attributes) Delete(key string) {
	if a == nil {
		return
	}
	if _, ok := a.values[key]; !ok {
		return
	}
	delete(a.values, key)
	for i, existing := range a.keys {
		if existing == key {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of entries.
func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// Keys returns the keys in insertion order.
func (a *Attributes) Keys() []string {
	if a == nil {
		return nil
	}
	return append([]string(nil), a.keys...)
}

// Range calls fn for each entry in order until fn returns false.
func (a *Attributes) Range(fn func(key string, value Value) bool) {
	if a == nil || fn == nil {
		return
	}
	for _, key := range a.keys {
		if !fn(key, a.values[key].clone()) {
			return
		}
	}
}

// Clone returns a deep copy. Cloning nil yields an empty mapping.
func (a *Attributes) Clone() *Attributes {
	out := &Attributes{values: make(map[string]Value, a.Len())}
	if a == nil {
		return out
	}
	out.keys = append(make([]string, 0, len(a.keys)), a.keys...)
	for key, value := range a.values {
		out.values[key] = value.clone()
	}
	return out
}

// Map converts the attributes into plain nested data. The result is never nil.
func (a *Attributes) Map() map[string]any {
	out := make(map[string]any, a.Len())
	if a == nil {
		return out
	}
	for _, key := range a.keys {
		out[key] = a.values[key].Interface()
	}
	return out
}

// MarshalJSON emits the entries in insertion order.
func (a *Attributes) MarshalJSON() ([]byte, error) {
	if a == nil || len(a.keys) == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range a.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		raw, err := a.values[key].MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("button: marshal %q: %w", key, err)
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML emits an ordered mapping node.
func (a *Attributes) MarshalYAML() (any, error) {
	return a.yamlNode()
}

func (a *Attributes) yamlNode() (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if a == nil {
		return node, nil
	}
	for _, key := range a.keys {
		child, err := a.values[key].yamlNode()
		if err != nil {
			return nil, fmt.Errorf("button: marshal %q: %w", key, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			child,
		)
	}
	return node, nil
}
