package summarizer

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer cleans model output before it is embedded in an email.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer allows the UGC element set plus inline styles.
func NewSanitizer() *Sanitizer {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("style").Globally()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return &Sanitizer{policy: p}
}

// Clean strips code fences and unsafe markup.
func (s *Sanitizer) Clean(content string) string {
	content = stripFences(content)
	return strings.TrimSpace(s.policy.Sanitize(content))
}

func stripFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```html")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
