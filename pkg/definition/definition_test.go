package definition_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-tablebuttons/pkg/authz"
	"github.com/goliatone/go-tablebuttons/pkg/button"
	"github.com/goliatone/go-tablebuttons/pkg/definition"
	"github.com/goliatone/go-tablebuttons/pkg/testsupport"
)

func loadCatalog(t *testing.T) *definition.Catalog {
	t.Helper()
	return testsupport.LoadCatalog(t, "testdata/toolbars")
}

func loadMessages(t *testing.T) definition.Messages {
	t.Helper()
	return testsupport.LoadMessages(t, "testdata/messages.yaml")
}

func newGate(t *testing.T) authz.Gate {
	t.Helper()
	policy := authz.NewPolicy()
	if err := policy.Grant("editor", "export-data", "edit-rows"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	return authz.NewGate(policy, nil)
}

func newBuilder(t *testing.T, extra ...definition.Option) *definition.Builder {
	t.Helper()
	options := []definition.Option{
		definition.WithAuthorizer(newGate(t)),
		definition.WithTranslator(loadMessages(t)),
	}
	return definition.NewBuilder(append(options, extra...)...)
}

var usersEnv = definition.Env{
	Values: map[string]any{
		"features": map[string]any{"reload": true},
		"table":    "users",
	},
	Locale: "en-US",
}

func TestLoadFS(t *testing.T) {
	catalog := loadCatalog(t)

	if diff := cmp.Diff([]string{"orders", "users"}, catalog.Names()); diff != "" {
		t.Fatalf("toolbar names mismatch (-want +got):\n%s", diff)
	}

	users, ok := catalog.Toolbar("users")
	if !ok {
		t.Fatalf("users toolbar missing")
	}
	if got := len(users.Entries); got != 4 {
		t.Fatalf("expected 4 entries, got %d", got)
	}
	if users.Entries[1].Shorthand != "print" {
		t.Fatalf("expected shorthand entry, got %#v", users.Entries[1])
	}
	collection := users.Entries[0]
	if got := len(collection.Buttons); got != 3 {
		t.Fatalf("expected 3 nested buttons, got %d", got)
	}
	if collection.Buttons[1].Can != "export-data" {
		t.Fatalf("nested can not parsed: %#v", collection.Buttons[1])
	}
	if diff := cmp.Diff([]string{"extend", "text", "className"}, collection.Attributes.Keys()); diff != "" {
		t.Fatalf("attribute order mismatch (-want +got):\n%s", diff)
	}
	reload := users.Entries[2]
	if !reload.Raw || reload.If != "features.reload" {
		t.Fatalf("control keys not parsed: %#v", reload)
	}

	orders, ok := catalog.Toolbar("orders")
	if !ok {
		t.Fatalf("orders toolbar missing")
	}
	if orders.Source != "orders.json" {
		t.Fatalf("unexpected source %q", orders.Source)
	}
	if orders.Entries[1].If != `"admin" in actor.roles` {
		t.Fatalf("json if not parsed: %q", orders.Entries[1].If)
	}
}

func TestLoadFS_Errors(t *testing.T) {
	cases := []struct {
		name  string
		files fstest.MapFS
		want  string
	}{
		{
			name: "duplicate toolbar across files",
			files: fstest.MapFS{
				"a.yaml": {Data: []byte("toolbars:\n  main: [copy]\n")},
				"b.yaml": {Data: []byte("toolbars:\n  main: [csv]\n")},
			},
			want: `duplicate toolbar "main"`,
		},
		{
			name:  "empty file",
			files: fstest.MapFS{"a.yaml": {Data: []byte("   ")}},
			want:  "is empty",
		},
		{
			name:  "no toolbars",
			files: fstest.MapFS{"a.yaml": {Data: []byte("other: true\n")}},
			want:  "defines no toolbars",
		},
		{
			name:  "toolbar not a list",
			files: fstest.MapFS{"a.yaml": {Data: []byte("toolbars:\n  main: copy\n")}},
			want:  "expected a list of buttons",
		},
		{
			name:  "button not a mapping",
			files: fstest.MapFS{"a.yaml": {Data: []byte("toolbars:\n  main:\n    - [copy]\n")}},
			want:  "must be a name or a mapping",
		},
		{
			name:  "can not a string",
			files: fstest.MapFS{"a.yaml": {Data: []byte("toolbars:\n  main:\n    - extend: csv\n      can: [a, b]\n")}},
			want:  "expected a string",
		},
		{
			name:  "merge of a scalar",
			files: fstest.MapFS{"a.yaml": {Data: []byte("toolbars:\n  main:\n    - extend: csv\n      <<: plain\n")}},
			want:  "merge key expects a mapping",
		},
		{
			name:  "invalid yaml",
			files: fstest.MapFS{"a.yaml": {Data: []byte("toolbars: [\n")}},
			want:  "invalid JSON or YAML",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := definition.LoadFS(tc.files)
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

const mergeDocument = `
defaults:
  export: &export
    className: btn-export
    exportOptions: &columns
      columns: ":visible"
toolbars:
  main:
    - extend: csv
      <<: *export
    - extend: excel
      className: btn-excel
      <<: [*export]
      exportOptions:
        <<: *columns
        orthogonal: export
`

func TestParse_ExpandsMergeKeys(t *testing.T) {
	toolbars, err := definition.Parse([]byte(mergeDocument), "merge.yaml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(toolbars) != 1 || len(toolbars[0].Entries) != 2 {
		t.Fatalf("unexpected toolbars %#v", toolbars)
	}

	want := []string{
		`{"extend":"csv","className":"btn-export","exportOptions":{"columns":":visible"}}`,
		`{"extend":"excel","className":"btn-excel","exportOptions":{"columns":":visible","orthogonal":"export"}}`,
	}
	for i, entry := range toolbars[0].Entries {
		btn, err := definition.NewBuilder().Build(context.Background(), entry, definition.Env{})
		if err != nil {
			t.Fatalf("build %d: %v", i, err)
		}
		raw, err := json.Marshal(btn)
		if err != nil {
			t.Fatalf("marshal %d: %v", i, err)
		}
		if string(raw) != want[i] {
			t.Fatalf("entry %d mismatch:\nwant %s\ngot  %s", i, want[i], raw)
		}
		if entry.Attributes.Has("<<") {
			t.Fatalf("entry %d kept a literal merge key", i)
		}
	}
}

func TestTextPolicy_RestrictsUseReferences(t *testing.T) {
	policy := definition.TextPolicy()

	kept := policy.Sanitize(`<svg class="icon"><use href="#icon-edit"></use></svg> Edit`)
	if !strings.Contains(kept, `href="#icon-edit"`) {
		t.Fatalf("fragment reference should be kept, got %q", kept)
	}

	for _, input := range []string{
		`<svg><use href="javascript:alert(1)"></use></svg> Edit`,
		`<svg><use href="https://evil.example/sprite.svg#x"></use></svg> Edit`,
		`<svg><use xlink:href="data:image/svg+xml;base64,AAAA"></use></svg> Edit`,
	} {
		got := policy.Sanitize(input)
		if strings.Contains(got, "href") {
			t.Fatalf("external reference should be stripped from %q, got %q", input, got)
		}
	}
}

func TestLoadFS_NilAndIgnoredFiles(t *testing.T) {
	catalog, err := definition.LoadFS(nil)
	if err != nil || !catalog.Empty() {
		t.Fatalf("expected empty catalog, got %v (err=%v)", catalog.Names(), err)
	}

	catalog, err = definition.LoadFS(fstest.MapFS{"notes.txt": {Data: []byte("toolbars: nope")}})
	if err != nil || !catalog.Empty() {
		t.Fatalf("non definition files should be skipped, got %v (err=%v)", catalog.Names(), err)
	}
}

func TestBuilder_Editor(t *testing.T) {
	catalog := loadCatalog(t)
	builder := newBuilder(t)
	env := usersEnv
	env.Actor = &authz.Subject{ID: "ed", Roles: []string{"editor"}}

	got, err := builder.Realize(context.Background(), catalog, "users", env)
	if err != nil {
		t.Fatalf("realize: %v", err)
	}

	want := []map[string]any{
		{
			"extend":    "collection",
			"text":      "Export",
			"className": "btn-export",
			"buttons": []any{
				map[string]any{"extend": "csv"},
				map[string]any{
					"extend":        "excel",
					"exportOptions": map[string]any{"orthogonal": "export", "columns": ":visible"},
				},
				map[string]any{},
			},
		},
		{"extend": "print"},
		{
			"text":   `<i class="fa fa-refresh"></i> Reload users`,
			"action": "function(e, dt){ dt.ajax.reload(); }",
		},
		{
			"extend": "create",
			"editor": "editor",
			"text":   "New user",
			"formButtons": []any{
				map[string]any{"text": "Save", "action": "function(){ this.submit(); }"},
				map[string]any{"action": "function(){ this.close(); }", "text": "Cancel"},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("toolbar mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilder_ViewerFromContext(t *testing.T) {
	catalog := loadCatalog(t)
	builder := newBuilder(t)
	ctx := authz.WithActor(context.Background(), &authz.Subject{ID: "viewer"})
	env := usersEnv
	env.Values = map[string]any{"features": map[string]any{"reload": false}}

	got, err := builder.Realize(ctx, catalog, "users", env)
	if err != nil {
		t.Fatalf("realize: %v", err)
	}

	want := []map[string]any{
		{
			"extend":    "collection",
			"text":      "Export",
			"className": "btn-export",
			"buttons": []any{
				map[string]any{"extend": "csv"},
				map[string]any{},
				map[string]any{},
			},
		},
		{"extend": "print"},
		{},
		{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("toolbar mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilder_PruneEmpty(t *testing.T) {
	catalog := loadCatalog(t)
	builder := newBuilder(t, definition.WithPruneEmpty())
	env := usersEnv
	env.Actor = &authz.Subject{ID: "viewer"}
	env.Values = nil

	got, err := builder.Realize(context.Background(), catalog, "users", env)
	if err != nil {
		t.Fatalf("realize: %v", err)
	}
	want := []map[string]any{
		{
			"extend":    "collection",
			"text":      "Export",
			"className": "btn-export",
			"buttons":   []any{map[string]any{"extend": "csv"}},
		},
		{"extend": "print"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("pruned toolbar mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilder_ConditionOnActor(t *testing.T) {
	catalog := loadCatalog(t)
	builder := newBuilder(t)

	admin := definition.Env{Actor: &authz.Subject{ID: "root", Roles: []string{"admin"}}}
	got, err := builder.Realize(context.Background(), catalog, "orders", admin)
	if err != nil {
		t.Fatalf("realize: %v", err)
	}
	want := []map[string]any{
		{"extend": "copy", "text": "Copy"},
		{"extend": "colvis", "columns": []any{1, 2, 3}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("admin toolbar mismatch (-want +got):\n%s", diff)
	}

	got, err = builder.Realize(context.Background(), catalog, "orders", definition.Env{})
	if err != nil {
		t.Fatalf("realize without actor: %v", err)
	}
	if len(got[1]) != 0 {
		t.Fatalf("expected colvis to be suppressed without an actor, got %#v", got[1])
	}
}

func TestBuilder_PreservesOrderInJSON(t *testing.T) {
	catalog := loadCatalog(t)
	builder := newBuilder(t)
	env := usersEnv
	env.Actor = &authz.Subject{ID: "ed", Roles: []string{"editor"}}

	buttons, err := builder.Toolbar(context.Background(), catalog, "users", env)
	if err != nil {
		t.Fatalf("toolbar: %v", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(buttons[0]); err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"extend":"collection","text":"Export","className":"btn-export","buttons":[{"extend":"csv"},{"extend":"excel","exportOptions":{"orthogonal":"export","columns":":visible"}},{}]}` + "\n"
	if buf.String() != want {
		t.Fatalf("json mismatch:\nwant %s\ngot  %s", want, buf.String())
	}
}

func TestBuilder_Translations(t *testing.T) {
	catalog := loadCatalog(t)
	builder := newBuilder(t)
	env := definition.Env{
		Actor:  &authz.Subject{ID: "ed", Roles: []string{"editor"}},
		Locale: "es",
	}

	got, err := builder.Realize(context.Background(), catalog, "users", env)
	if err != nil {
		t.Fatalf("realize: %v", err)
	}
	create := got[3]
	if create["text"] != "Nuevo usuario" {
		t.Fatalf("expected spanish text, got %v", create["text"])
	}
	cancel := create["formButtons"].([]any)[1].(map[string]any)
	if cancel["text"] != "buttons.cancel" {
		t.Fatalf("missing translation should fall back to the key, got %v", cancel["text"])
	}
}

func TestBuilder_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("session store down")

	entry := definition.Entry{Shorthand: "excel", Can: "export-data"}
	if _, err := definition.NewBuilder().Build(ctx, entry, definition.Env{}); err == nil {
		t.Fatalf("expected error without an authorizer")
	}

	failing := authz.Gate{
		Resolver: authz.ResolverFunc(func(context.Context) (authz.Actor, error) { return nil, boom }),
		Oracle:   authz.NewPolicy(),
	}
	_, err := definition.NewBuilder(definition.WithAuthorizer(failing)).Build(ctx, entry, definition.Env{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected resolver error to propagate, got %v", err)
	}

	bad := definition.Entry{Shorthand: "csv", If: "a = b"}
	if _, err := definition.NewBuilder().Build(ctx, bad, definition.Env{}); err == nil {
		t.Fatalf("expected rule parse error")
	}

	if _, err := definition.NewBuilder().Toolbar(ctx, loadCatalog(t), "missing", definition.Env{}); err == nil {
		t.Fatalf("expected unknown toolbar error")
	}
}

func TestBuilder_TextOptions(t *testing.T) {
	ctx := context.Background()
	attrs := button.NewAttributes()
	attrs.Set(button.KeyText, button.Scalar(`<b>{{ count }}</b> rows <script>x()</script>`))
	entry := definition.Entry{Raw: true, Attributes: attrs}
	env := definition.Env{Values: map[string]any{"count": 3}}

	btn, err := definition.NewBuilder().Build(ctx, entry, env)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := btn.ToMap()["text"]; got != "<b>3</b> rows" {
		t.Fatalf("unexpected sanitized text %q", got)
	}

	btn, err = definition.NewBuilder(definition.WithTemplates(false), definition.WithSanitizer(nil)).Build(ctx, entry, env)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := btn.ToMap()["text"]; got != `<b>{{ count }}</b> rows <script>x()</script>` {
		t.Fatalf("text should be untouched, got %q", got)
	}
}

func TestMessages_Translate(t *testing.T) {
	messages := definition.Messages{
		"en": {"hello": "Hello"},
	}
	if got, err := messages.Translate("en-GB", "hello"); err != nil || got != "Hello" {
		t.Fatalf("expected base locale fallback, got %q (err=%v)", got, err)
	}
	if _, err := messages.Translate("fr", "hello"); !errors.Is(err, definition.ErrMissingTranslation) {
		t.Fatalf("expected ErrMissingTranslation, got %v", err)
	}
}
