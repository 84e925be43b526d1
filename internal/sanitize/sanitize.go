// Package sanitize strips script injection vectors from user text before it is stored.
//
// Diary content is Markdown, not HTML, so a full HTML sanitizer cannot be applied on input:
// it would entity-escape quotes (">"), ampersands and inline HTML the editor relies on.
// Rendered output is sanitized separately by the markdown package.
package sanitize

import "regexp"

var (
	scriptBlock = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	scriptTag   = regexp.MustCompile(`(?i)</?script\b[^>]*>`)
	eventAttr   = regexp.MustCompile(`(?i)\bon[a-z]+\s*=\s*(?:"[^"]*"|'[^']*')`)
	jsScheme    = regexp.MustCompile(`(?i)javascript\s*:`)
)

// Text removes <script> elements, quoted on* event handler attributes and javascript: schemes.
// Everything else, including Markdown syntax and harmless inline HTML, is left untouched.
func Text(s string) string {
	if s == "" {
		return s
	}
	s = scriptBlock.ReplaceAllString(s, "")
	s = scriptTag.ReplaceAllString(s, "")
	s = eventAttr.ReplaceAllString(s, "")
	return jsScheme.ReplaceAllString(s, "")
}
