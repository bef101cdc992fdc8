package button

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-tablebuttons/pkg/authz"
)

// Attribute keys understood by the client side table runtime.
const (
	KeyExtend        = "extend"
	KeyEditor        = "editor"
	KeyClassName     = "className"
	KeyAction        = "action"
	KeyText          = "text"
	KeyColumns       = "columns"
	KeyExportOptions = "exportOptions"
	KeyButtons       = "buttons"
	KeyFormButtons   = "formButtons"
)

// ErrNoAuthorizer is returned by MakeIfCan when no Authorizer is supplied.
var ErrNoAuthorizer = errors.New("button: authorizer is required")

// Authorizer answers whether actor holds permission. A nil actor asks the
// implementation to resolve the current actor itself. authz.Gate satisfies
// this interface.
type Authorizer interface {
	Allows(ctx context.Context, permission string, actor authz.Actor) (bool, error)
}

// Button accumulates toolbar button options through chained setters and
// realizes them as plain data. A Button is not safe for concurrent mutation.
type Button struct {
	attrs      *Attributes
	authorized bool
	err        error
}

var (
	_ Realizer       = (*Button)(nil)
	_ yaml.Marshaler = (*Button)(nil)
)

// Make returns an authorized button seeded from options. A string is
// shorthand for {"extend": options}; maps, *Attributes and nil are accepted.
func Make(options any) *Button {
	return newButton(KeyExtend, options)
}

// Raw behaves like Make but a string is shorthand for {"text": options}, for
// buttons that do not extend a predefined type.
func Raw(options any) *Button {
	return newButton(KeyText, options)
}

// MakeIf returns Make(options) when ok is true and an empty unauthorized
// button otherwise.
func MakeIf(ok bool, options any) *Button {
	if ok {
		return Make(options)
	}
	return Make(nil).Authorized(false)
}

// MakeIfFunc evaluates pred and delegates to MakeIf. A nil predicate counts as
// false.
func MakeIfFunc(pred func() bool, options any) *Button {
	return MakeIf(pred != nil && pred(), options)
}

// MakeIfCan returns Make(options) when the actor holds permission and an empty
// unauthorized button otherwise. A nil actor is resolved by the Authorizer.
// Errors from the Authorizer are returned unmodified.
func MakeIfCan(ctx context.Context, auth Authorizer, permission string, options any, actor authz.Actor) (*Button, error) {
	if auth == nil {
		return nil, ErrNoAuthorizer
	}
	allowed, err := auth.Allows(ctx, permission, actor)
	if err != nil {
		return nil, err
	}
	return MakeIf(allowed, options), nil
}

func newButton(shorthand string, options any) *Button {
	b := &Button{attrs: NewAttributes(), authorized: true}
	switch typed := options.(type) {
	case nil:
	case string:
		b.attrs.Set(shorthand, Scalar(typed))
	default:
		value, err := Normalize(options)
		if err != nil {
			b.fail(fmt.Errorf("button: options: %w", err))
			return b
		}
		if value.Kind() != KindMap {
			b.fail(fmt.Errorf("button: options must be a string or mapping, got %T", options))
			return b
		}
		b.attrs = value.attrs
	}
	return b
}

// Set stores value under key after normalizing it. Values that cannot be
// represented as plain data are dropped and recorded in Err.
func (b *Button) Set(key string, value any) *Button {
	normalized, err := Normalize(value)
	if err != nil {
		b.fail(fmt.Errorf("button: %s: %w", key, err))
		return b
	}
	b.attrs.Set(key, normalized)
	return b
}

// Extend sets the predefined button type this button builds on.
func (b *Button) Extend(value string) *Button { return b.Set(KeyExtend, value) }

// Editor binds the button to an editor instance name.
func (b *Button) Editor(value string) *Button { return b.Set(KeyEditor, value) }

// ClassName sets the CSS class list.
func (b *Button) ClassName(value string) *Button { return b.Set(KeyClassName, value) }

// Action sets the client side action handler source.
func (b *Button) Action(value string) *Button { return b.Set(KeyAction, value) }

// Text sets the display text.
func (b *Button) Text(value string) *Button { return b.Set(KeyText, value) }

// Columns sets the column selector, e.g. ":visible" or a list of indexes.
func (b *Button) Columns(value any) *Button { return b.Set(KeyColumns, value) }

// ExportOptions sets export configuration for export buttons.
func (b *Button) ExportOptions(value any) *Button { return b.Set(KeyExportOptions, value) }

// Buttons stores child items under "buttons". Child buttons are realized now;
// changing them afterwards does not affect this button.
func (b *Button) Buttons(items ...any) *Button {
	return b.nest(KeyButtons, items)
}

// FormButtons stores child items under "formButtons" with the same eager
// realization as Buttons.
func (b *Button) FormButtons(items ...any) *Button {
	return b.nest(KeyFormButtons, items)
}

func (b *Button) nest(key string, items []any) *Button {
	values := make([]Value, 0, len(items))
	for i, item := range items {
		value, err := Normalize(item)
		if err != nil {
			b.fail(fmt.Errorf("button: %s[%d]: %w", key, i, err))
			return b
		}
		values = append(values, value)
	}
	b.attrs.Set(key, Value{kind: KindList, list: values})
	return b
}

// Authorized sets the authorization flag read at realization time.
func (b *Button) Authorized(ok bool) *Button {
	b.authorized = ok
	return b
}

// AuthorizedFunc evaluates pred and sets the flag. A nil predicate counts as
// false.
func (b *Button) AuthorizedFunc(pred func() bool) *Button {
	return b.Authorized(pred != nil && pred())
}

// IsAuthorized reports the current authorization flag.
func (b *Button) IsAuthorized() bool {
	return b != nil && b.authorized
}

// Attributes returns a copy of the accumulated attributes regardless of the
// authorization flag.
func (b *Button) Attributes() *Attributes {
	if b == nil {
		return NewAttributes()
	}
	return b.attrs.Clone()
}

// Err returns the first error recorded by a setter, if any.
func (b *Button) Err() error {
	if b == nil {
		return nil
	}
	return b.err
}

// Realize returns the content of an authorized button or the empty result.
// It has no side effects and can be called repeatedly.
func (b *Button) Realize() Result {
	if b == nil || !b.authorized {
		return EmptyResult()
	}
	return Content(b.attrs)
}

// ToMap realizes the button as plain nested data. Unauthorized buttons yield
// an empty, non-nil map.
func (b *Button) ToMap() map[string]any {
	return b.Realize().Map()
}

// MarshalJSON realizes the button. A recorded setter error is returned.
func (b *Button) MarshalJSON() ([]byte, error) {
	if err := b.Err(); err != nil {
		return nil, err
	}
	return b.Realize().MarshalJSON()
}

// MarshalYAML realizes the button as an ordered mapping.
func (b *Button) MarshalYAML() (any, error) {
	if err := b.Err(); err != nil {
		return nil, err
	}
	return b.Realize().MarshalYAML()
}

func (b *Button) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}
