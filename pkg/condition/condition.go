package condition

import (
	"strings"
)

// Evaluator decides whether a guarded button should be authorized based on a
// rule string and the values available at build time.
type Evaluator interface {
	Eval(rule string, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Values usually come from the
// caller (feature flags, table state) while Actor carries the attributes of
// the current actor, reachable through the `actor.` prefix.
type Context struct {
	Values map[string]any
	Actor  map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(rule string, ctx Context) (bool, error) {
	return fn(rule, ctx)
}

// Lookup resolves a dotted path against ctx the same way rules do.
func (ctx Context) Lookup(path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, false
	}
	if strings.HasPrefix(strings.ToLower(path), "actor.") {
		return lookupPath(ctx.Actor, strings.TrimSpace(path[len("actor."):]))
	}
	return lookupPath(ctx.Values, path)
}

func lookupPath(values map[string]any, path string) (any, bool) {
	if len(values) == 0 || path == "" {
		return nil, false
	}
	if v, ok := values[path]; ok {
		return v, true
	}

	var current any = values
	for _, part := range strings.Split(path, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, false
		}
		switch typed := current.(type) {
		case map[string]any:
			next, ok := typed[part]
			if !ok {
				return nil, false
			}
			current = next
		case map[string]string:
			next, ok := typed[part]
			if !ok {
				return nil, false
			}
			current = next
		default:
			return nil, false
		}
	}
	return current, true
}
