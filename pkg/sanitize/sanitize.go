// Package sanitize cleans markup that ends up inside rendered forms.
package sanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	blockPolicyOnce  sync.Once
	blockPolicy      *bluemonday.Policy
	inlinePolicyOnce sync.Once
	inlinePolicy     *bluemonday.Policy
)

// HTML keeps user-generated-content markup plus class/id attributes and
// inline SVG icons. Used for the content of html fields.
func HTML(raw string) string {
	return clean(blockSanitizer(), raw)
}

// Inline keeps phrasing elements only. Used for labels and button labels.
func Inline(raw string) string {
	return clean(inlineSanitizer(), raw)
}

func clean(policy *bluemonday.Policy, raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(policy.Sanitize(trimmed))
}

func blockSanitizer() *bluemonday.Policy {
	blockPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowAttrs("class", "id").Globally()
		policy.AllowAttrs("role", "aria-hidden", "aria-label").Globally()
		allowIcons(policy)
		blockPolicy = policy
	})
	return blockPolicy
}

func inlineSanitizer() *bluemonday.Policy {
	inlinePolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("span", "strong", "em", "b", "i", "small", "abbr", "sup", "sub", "br")
		policy.AllowAttrs("class", "id", "title").OnElements("span", "abbr", "small")
		policy.AllowAttrs("href").OnElements("a")
		policy.AllowElements("a")
		policy.AllowStandardURLs()
		policy.RequireNoFollowOnLinks(true)
		allowIcons(policy)
		inlinePolicy = policy
	})
	return inlinePolicy
}

func allowIcons(policy *bluemonday.Policy) {
	policy.AllowElements("svg", "g", "path", "circle", "rect", "line", "polyline", "polygon", "title", "use")
	policy.AllowAttrs(
		"xmlns", "viewBox", "width", "height", "fill", "stroke",
		"stroke-width", "aria-hidden", "focusable", "class",
	).OnElements("svg")
	policy.AllowAttrs("href").OnElements("use")
	for _, el := range []string{"path", "circle", "rect", "line", "polyline", "polygon"} {
		policy.AllowAttrs(
			"d", "cx", "cy", "r", "x", "y", "x1", "y1", "x2", "y2",
			"points", "rx", "ry", "fill", "stroke", "stroke-width",
		).OnElements(el)
	}
}
