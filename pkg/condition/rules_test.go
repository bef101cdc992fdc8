package condition

import (
	"errors"
	"testing"
)

func TestRulesEval(t *testing.T) {
	t.Parallel()

	ctx := Context{
		Values: map[string]any{
			"features": map[string]any{"export": true, "reload": false},
			"rows":     12,
			"count":    "3",
			"mode":     "edit",
			"formats":  []string{"csv", "pdf"},
			"empty":    []any{},
			"table.id": "users",
		},
		Actor: map[string]any{
			"id":         "alice",
			"roles":      []any{"editor", "exporter"},
			"department": "finance",
			"suspended":  false,
		},
	}

	cases := []struct {
		rule string
		want bool
	}{
		{rule: "", want: true},
		{rule: "features.export", want: true},
		{rule: "features.reload", want: false},
		{rule: "!features.reload", want: true},
		{rule: "not features.reload", want: true},
		{rule: "features.missing", want: false},
		{rule: "features.export == true", want: true},
		{rule: "features.missing == false", want: true},
		{rule: "rows == 12", want: true},
		{rule: "rows != 0", want: true},
		{rule: "count == 3", want: true},
		{rule: "3 == count", want: true},
		{rule: `mode == "edit"`, want: true},
		{rule: `mode == 'view'`, want: false},
		{rule: "mode == null", want: false},
		{rule: "missing == null", want: true},
		{rule: `"csv" in formats`, want: true},
		{rule: `"xls" in formats`, want: false},
		{rule: "empty", want: false},
		{rule: `"editor" in actor.roles`, want: true},
		{rule: `"admin" in actor.roles`, want: false},
		{rule: `actor.department == "finance" && !actor.suspended`, want: true},
		{rule: `actor.department == "sales" || "exporter" in actor.roles`, want: true},
		{rule: `("admin" in actor.roles || rows == 12) and mode != "view"`, want: true},
		{rule: `table.id == "users"`, want: true},
		{rule: `"fin" in actor.department`, want: true},
	}

	rules := New()
	for _, tc := range cases {
		tc := tc
		t.Run(tc.rule, func(t *testing.T) {
			t.Parallel()
			got, err := rules.Eval(tc.rule, ctx)
			if err != nil {
				t.Fatalf("Eval returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Eval(%q) = %v, want %v", tc.rule, got, tc.want)
			}
		})
	}
}

func TestRulesParseErrors(t *testing.T) {
	t.Parallel()

	for _, rule := range []string{
		"a = b",
		"a & b",
		"a | b",
		`"unterminated`,
		"(a && b",
		"a &&",
		"a b",
		`a in "literal"`,
		")",
	} {
		if _, err := Parse(rule); err == nil {
			t.Fatalf("expected parse error for %q", rule)
		}
	}
}

func TestExprReuse(t *testing.T) {
	t.Parallel()

	expr, err := Parse(`"admin" in actor.roles`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	admin, _ := expr.Eval(Context{Actor: map[string]any{"roles": []string{"admin"}}})
	viewer, _ := expr.Eval(Context{Actor: map[string]any{"roles": []string{"viewer"}}})
	if !admin || viewer {
		t.Fatalf("unexpected results admin=%v viewer=%v", admin, viewer)
	}
}

func TestEvaluatorFunc(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var eval Evaluator = EvaluatorFunc(func(rule string, _ Context) (bool, error) {
		if rule == "fail" {
			return false, boom
		}
		return true, nil
	})
	if _, err := eval.Eval("fail", Context{}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
