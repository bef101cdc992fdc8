package button

// Realizer is implemented by anything that can be flattened into a Result.
// Buttons and nested setters realize Realizers at the time they are stored.
type Realizer interface {
	Realize() Result
}

// Result is the outcome of realizing a button: either its content or the
// empty result produced by an unauthorized button.
type Result struct {
	attrs *Attributes
}

// Content wraps attrs as a content result. The mapping is copied.
func Content(attrs *Attributes) Result {
	return Result{attrs: attrs.Clone()}
}

// EmptyResult returns the suppressed variant.
func EmptyResult() Result {
	return Result{}
}

// IsEmpty reports whether the result is the suppressed variant. An authorized
// button without attributes yields content with zero entries, not an empty
// result, although both serialize to {}.
func (r Result) IsEmpty() bool {
	return r.attrs == nil
}

// Attributes returns a copy of the content. ok is false for empty results.
func (r Result) Attributes() (attrs *Attributes, ok bool) {
	if r.attrs == nil {
		return nil, false
	}
	return r.attrs.Clone(), true
}

// Map returns the content as plain nested data, or an empty map.
func (r Result) Map() map[string]any {
	return r.attrs.Map()
}

// MarshalJSON emits the content in insertion order, or {}.
func (r Result) MarshalJSON() ([]byte, error) {
	return r.attrs.MarshalJSON()
}

// MarshalYAML emits the content as an ordered mapping, or {}.
func (r Result) MarshalYAML() (any, error) {
	return r.attrs.yamlNode()
}
