package definition

import (
	"fmt"
	"strings"

	"github.com/flosch/pongo2/v6"
)

func hasTemplate(text string) bool {
	return strings.Contains(text, "{{") || strings.Contains(text, "{%")
}

// renderText executes text as a pongo2 template. Values are exposed at the
// top level and the actor under `actor`; output is autoescaped.
func renderText(text string, values map[string]any, actor map[string]any) (string, error) {
	tpl, err := pongo2.FromString(text)
	if err != nil {
		return "", fmt.Errorf("definition: parse text template: %w", err)
	}
	data := make(pongo2.Context, len(values)+1)
	for key, value := range values {
		data[key] = value
	}
	data["actor"] = actor
	out, err := tpl.Execute(data)
	if err != nil {
		return "", fmt.Errorf("definition: execute text template: %w", err)
	}
	return out, nil
}
