package button

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"
)

// Kind tags the shape held by a Value.
type Kind uint8

const (
	// KindScalar holds a string, bool, number or nil.
	KindScalar Kind = iota
	// KindList holds an ordered sequence of values.
	KindList
	// KindMap holds a nested ordered mapping, typically a realized child button.
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a plain-data attribute value. The zero Value is a nil scalar.
type Value struct {
	kind   Kind
	scalar any
	list   []Value
	attrs  *Attributes
}

// Scalar wraps a primitive value. Callers are expected to pass strings,
// booleans, numbers or nil; use Normalize for arbitrary input.
func Scalar(v any) Value {
	return Value{kind: KindScalar, scalar: v}
}

// List wraps an ordered sequence of values.
func List(items ...Value) Value {
	out := make([]Value, len(items))
	for i, item := range items {
		out[i] = item.clone()
	}
	return Value{kind: KindList, list: out}
}

// Mapping wraps a nested mapping. A nil mapping is stored as an empty one.
func Mapping(attrs *Attributes) Value {
	if attrs == nil {
		return Value{kind: KindMap, attrs: NewAttributes()}
	}
	return Value{kind: KindMap, attrs: attrs.Clone()}
}

// Kind reports the shape of the value.
func (v Value) Kind() Kind { return v.kind }

// Scalar returns the primitive payload for KindScalar values.
func (v Value) Scalar() any {
	if v.kind != KindScalar {
		return nil
	}
	return v.scalar
}

// List returns a copy of the items for KindList values.
func (v Value) List() []Value {
	if v.kind != KindList {
		return nil
	}
	out := make([]Value, len(v.list))
	for i, item := range v.list {
		out[i] = item.clone()
	}
	return out
}

// Attributes returns a copy of the nested mapping for KindMap values.
func (v Value) Attributes() *Attributes {
	if v.kind != KindMap {
		return nil
	}
	return v.attrs.Clone()
}

// Interface converts the value into plain Go data: scalars as-is, lists as
// []any and mappings as map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		return v.attrs.Map()
	default:
		return v.scalar
	}
}

// MarshalJSON preserves the key order of nested mappings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			raw, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(raw)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindMap:
		return v.attrs.MarshalJSON()
	default:
		return marshalScalar(v.scalar)
	}
}

// marshalScalar leaves HTML unescaped since button text routinely carries
// icon markup.
func marshalScalar(scalar any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(scalar); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (v Value) yamlNode() (*yaml.Node, error) {
	switch v.kind {
	case KindList:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.list {
			child, err := item.yamlNode()
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	case KindMap:
		return v.attrs.yamlNode()
	default:
		node := &yaml.Node{}
		if err := node.Encode(v.scalar); err != nil {
			return nil, fmt.Errorf("button: encode yaml scalar: %w", err)
		}
		return node, nil
	}
}

func (v Value) clone() Value {
	switch v.kind {
	case KindList:
		out := make([]Value, len(v.list))
		for i, item := range v.list {
			out[i] = item.clone()
		}
		return Value{kind: KindList, list: out}
	case KindMap:
		return Value{kind: KindMap, attrs: v.attrs.Clone()}
	default:
		return v
	}
}

// Normalize converts arbitrary caller input into a Value.
//
// Buttons and other Realizers are realized immediately, so the returned value
// never references a live descriptor. Maps are emitted with sorted keys,
// structs and json.Marshaler implementations go through encoding/json, and
// funcs, channels and complex numbers are rejected. A Realizer that reports
// an error through an Err method is rejected with that error. Nesting deeper
// than MaxDepth, including self-referencing maps and slices, is an error.
func Normalize(input any) (Value, error) {
	return normalize(input, 0)
}

// MaxDepth bounds how deeply Normalize descends into nested input.
const MaxDepth = 64

// ErrTooDeep is returned by Normalize when input nests deeper than MaxDepth.
var ErrTooDeep = errors.New("button: value nested too deeply")

type errReporter interface {
	Err() error
}

func normalize(input any, depth int) (Value, error) {
	if depth > MaxDepth {
		return Value{}, ErrTooDeep
	}
	switch typed := input.(type) {
	case nil:
		return Scalar(nil), nil
	case Value:
		return typed.clone(), nil
	case *Attributes:
		return Mapping(typed), nil
	case Result:
		return resultValue(typed), nil
	case Realizer:
		if reporter, ok := typed.(errReporter); ok {
			if err := reporter.Err(); err != nil {
				return Value{}, err
			}
		}
		return resultValue(typed.Realize()), nil
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return Scalar(typed), nil
	case []byte:
		return Scalar(string(typed)), nil
	case json.Marshaler:
		return normalizeJSON(typed, depth)
	}
	return normalizeReflect(reflect.ValueOf(input), depth)
}

func normalizeReflect(rv reflect.Value, depth int) (Value, error) {
	switch rv.Kind() {
	case reflect.Invalid:
		return Scalar(nil), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Scalar(nil), nil
		}
		return normalize(rv.Elem().Interface(), depth+1)
	case reflect.String:
		return Scalar(rv.String()), nil
	case reflect.Bool:
		return Scalar(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Scalar(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Scalar(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return Scalar(rv.Float()), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return List(), nil
		}
		items := make([]Value, rv.Len())
		for i := range items {
			item, err := normalize(rv.Index(i).Interface(), depth+1)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = item
		}
		return Value{kind: KindList, list: items}, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("button: unsupported map key type %s", rv.Type().Key())
		}
		keys := make([]string, 0, rv.Len())
		for _, key := range rv.MapKeys() {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		attrs := NewAttributes()
		for _, key := range keys {
			item, err := normalize(rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key())).Interface(), depth+1)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", key, err)
			}
			attrs.Set(key, item)
		}
		return Value{kind: KindMap, attrs: attrs}, nil
	case reflect.Struct:
		return normalizeJSON(rv.Interface(), depth)
	default:
		return Value{}, fmt.Errorf("button: unsupported value type %s", rv.Type())
	}
}

func normalizeJSON(input any, depth int) (Value, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return Value{}, fmt.Errorf("button: convert %T: %w", input, err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Value{}, fmt.Errorf("button: convert %T: %w", input, err)
	}
	return normalize(decoded, depth)
}

func resultValue(result Result) Value {
	if result.attrs == nil {
		return Value{kind: KindMap, attrs: NewAttributes()}
	}
	return Value{kind: KindMap, attrs: result.attrs.Clone()}
}
