package definition

import (
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy

	// fragmentRef limits <use> to sprites defined in the same document.
	fragmentRef = regexp.MustCompile(`^#[A-Za-z][\w.:-]*$`)
)

// TextPolicy returns the default policy applied to button text. It keeps the
// inline markup commonly used for icons and emphasis and strips everything
// else, including scripts and event handler attributes.
func TextPolicy() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("i", "span", "b", "strong", "em", "small", "br")
		policy.AllowAttrs("class", "aria-hidden", "title").OnElements("i", "span")

		policy.AllowElements("svg", "path", "use")
		policy.AllowAttrs(
			"xmlns", "viewBox", "width", "height", "fill", "stroke",
			"aria-hidden", "role", "focusable", "class",
		).OnElements("svg")
		policy.AllowAttrs("d", "fill", "stroke", "class").OnElements("path")
		policy.AllowAttrs("href", "xlink:href").Matching(fragmentRef).OnElements("use")

		textPolicy = policy
	})
	return textPolicy
}

func sanitizeText(policy *bluemonday.Policy, raw string) string {
	if policy == nil {
		return raw
	}
	return strings.TrimSpace(policy.Sanitize(raw))
}
