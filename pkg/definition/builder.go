package definition

import (
	"context"
	"fmt"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-tablebuttons/pkg/authz"
	"github.com/goliatone/go-tablebuttons/pkg/button"
	"github.com/goliatone/go-tablebuttons/pkg/condition"
)

// Env carries the per-request inputs used while building a toolbar.
type Env struct {
	// Actor is checked against `can` entries. When nil the Authorizer resolves
	// the current actor itself.
	Actor authz.Actor
	// Values feed `if` rules and text templates.
	Values map[string]any
	// Locale selects translations for `textKey` entries.
	Locale string
}

// Option configures a Builder.
type Option func(*Builder)

// WithAuthorizer sets the permission seam used for `can` entries.
func WithAuthorizer(auth button.Authorizer) Option {
	return func(b *Builder) {
		b.authorizer = auth
	}
}

// WithEvaluator overrides the rule evaluator used for `if` entries.
func WithEvaluator(eval condition.Evaluator) Option {
	return func(b *Builder) {
		if eval != nil {
			b.evaluator = eval
		}
	}
}

// WithTranslator sets the translator used for `textKey` entries.
func WithTranslator(t Translator) Option {
	return func(b *Builder) {
		b.translator = t
	}
}

// WithTemplates toggles pongo2 rendering of text containing template tags.
// Enabled by default.
func WithTemplates(enabled bool) Option {
	return func(b *Builder) {
		b.templates = enabled
	}
}

// WithSanitizer replaces the text policy. A nil policy disables sanitizing.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(b *Builder) {
		b.sanitizer = policy
	}
}

// WithPruneEmpty drops unauthorized buttons instead of emitting {} for them,
// at the top level and inside nested groups.
func WithPruneEmpty() Option {
	return func(b *Builder) {
		b.prune = true
	}
}

// Builder turns definition entries into buttons.
type Builder struct {
	authorizer button.Authorizer
	evaluator  condition.Evaluator
	translator Translator
	sanitizer  *bluemonday.Policy
	templates  bool
	prune      bool
}

// NewBuilder returns a Builder with the default rule evaluator, templates
// enabled and TextPolicy sanitizing.
func NewBuilder(options ...Option) *Builder {
	b := &Builder{
		evaluator: condition.New(),
		sanitizer: TextPolicy(),
		templates: true,
	}
	for _, opt := range options {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Toolbar builds every entry of the named toolbar.
func (b *Builder) Toolbar(ctx context.Context, catalog *Catalog, name string, env Env) ([]*button.Button, error) {
	tb, ok := catalog.Toolbar(name)
	if !ok {
		return nil, fmt.Errorf("definition: toolbar %q not found", name)
	}
	buttons, err := b.buildAll(ctx, tb.Entries, env)
	if err != nil {
		return nil, fmt.Errorf("definition: toolbar %q: %w", name, err)
	}
	return buttons, nil
}

// Realize builds the named toolbar and returns its plain data.
func (b *Builder) Realize(ctx context.Context, catalog *Catalog, name string, env Env) ([]map[string]any, error) {
	buttons, err := b.Toolbar(ctx, catalog, name, env)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(buttons))
	for _, btn := range buttons {
		out = append(out, btn.ToMap())
	}
	return out, nil
}

func (b *Builder) buildAll(ctx context.Context, entries []Entry, env Env) ([]*button.Button, error) {
	out := make([]*button.Button, 0, len(entries))
	for idx, entry := range entries {
		btn, err := b.Build(ctx, entry, env)
		if err != nil {
			return nil, fmt.Errorf("button %d: %w", idx, err)
		}
		if b.prune && !btn.IsAuthorized() {
			continue
		}
		out = append(out, btn)
	}
	return out, nil
}

// Build turns a single entry into a button. Entries guarded by `can` or `if`
// come back unauthorized when the guard fails; nested entries are built and
// realized into the parent before it is returned.
func (b *Builder) Build(ctx context.Context, entry Entry, env Env) (*button.Button, error) {
	var btn *button.Button
	switch {
	case entry.Can != "":
		if b.authorizer == nil {
			return nil, fmt.Errorf("definition: permission %q requires an authorizer", entry.Can)
		}
		var err error
		btn, err = button.MakeIfCan(ctx, b.authorizer, entry.Can, entry.options(), env.Actor)
		if err != nil {
			return nil, fmt.Errorf("definition: permission %q: %w", entry.Can, err)
		}
	case entry.Raw:
		btn = button.Raw(entry.options())
	default:
		btn = button.Make(entry.options())
	}
	if !btn.IsAuthorized() {
		return btn, nil
	}

	actor := actorAttributes(envActor(ctx, env))
	if entry.If != "" {
		ok, err := b.evaluator.Eval(entry.If, condition.Context{Values: env.Values, Actor: actor})
		if err != nil {
			return nil, fmt.Errorf("definition: if %q: %w", entry.If, err)
		}
		if !ok {
			return btn.Authorized(false), nil
		}
	}

	if err := b.applyText(btn, entry, env, actor); err != nil {
		return nil, err
	}

	if len(entry.Buttons) > 0 {
		children, err := b.buildAll(ctx, entry.Buttons, env)
		if err != nil {
			return nil, fmt.Errorf("buttons: %w", err)
		}
		btn.Buttons(asItems(children)...)
	}
	if len(entry.FormButtons) > 0 {
		children, err := b.buildAll(ctx, entry.FormButtons, env)
		if err != nil {
			return nil, fmt.Errorf("formButtons: %w", err)
		}
		btn.FormButtons(asItems(children)...)
	}

	if err := btn.Err(); err != nil {
		return nil, err
	}
	return btn, nil
}

func (b *Builder) applyText(btn *button.Button, entry Entry, env Env, actor map[string]any) error {
	text, isString := currentText(btn)
	if entry.TextKey == "" && !isString {
		return nil
	}
	if entry.TextKey != "" {
		text = translate(b.translator, env.Locale, entry.TextKey, text)
	}
	if b.templates && hasTemplate(text) {
		rendered, err := renderText(text, env.Values, actor)
		if err != nil {
			return err
		}
		text = rendered
	}
	btn.Text(sanitizeText(b.sanitizer, text))
	return nil
}

func currentText(btn *button.Button) (string, bool) {
	value, ok := btn.Attributes().Get(button.KeyText)
	if !ok || value.Kind() != button.KindScalar {
		return "", false
	}
	text, ok := value.Scalar().(string)
	return text, ok
}

func asItems(buttons []*button.Button) []any {
	items := make([]any, len(buttons))
	for i, btn := range buttons {
		items[i] = btn
	}
	return items
}

func envActor(ctx context.Context, env Env) authz.Actor {
	if env.Actor != nil {
		return env.Actor
	}
	actor, _ := authz.ActorFromContext(ctx)
	return actor
}

// actorAttributes exposes an actor to rules and templates as plain data.
func actorAttributes(actor authz.Actor) map[string]any {
	if actor == nil {
		return nil
	}
	out := map[string]any{}
	if subject, ok := actor.(*authz.Subject); ok {
		if subject == nil {
			return nil
		}
		for key, value := range subject.Attributes {
			out[key] = value
		}
		out["roles"] = toAnySlice(subject.Roles)
		out["permissions"] = toAnySlice(subject.Permissions)
	}
	out["id"] = actor.ActorID()
	return out
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, value := range values {
		out[i] = value
	}
	return out
}
