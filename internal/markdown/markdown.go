// Package markdown renders diary Markdown to safe HTML and converts pasted HTML back to Markdown.
package markdown

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// EmptyExcerpt is returned by Excerpt for content without any text.
const EmptyExcerpt = "(empty)"

// Renderer converts between Markdown and HTML.
// Thread-safe for concurrent use.
type Renderer struct {
	md     goldmark.Markdown
	ugc    *bluemonday.Policy
	strict *bluemonday.Policy
	h2m    *md.Converter
}

// NewRenderer builds a GFM renderer whose HTML output passes through a UGC sanitizer policy.
func NewRenderer() *Renderer {
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())

	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			// Raw HTML is let through here and filtered by the UGC policy instead.
			goldmark.WithRendererOptions(gmhtml.WithHardWraps(), gmhtml.WithUnsafe()),
		),
		ugc:    bluemonday.UGCPolicy(),
		strict: bluemonday.StrictPolicy(),
		h2m:    conv,
	}
}

// ToHTML renders src and strips scripts, event handlers and unsafe URLs from the result.
func (r *Renderer) ToHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return r.ugc.Sanitize(buf.String()), nil
}

// FromHTML sanitizes input and converts it to Markdown.
func (r *Renderer) FromHTML(input string) (string, error) {
	out, err := r.h2m.ConvertString(r.ugc.Sanitize(input))
	if err != nil {
		return "", fmt.Errorf("convert html to markdown: %w", err)
	}
	return out, nil
}

// Excerpt returns the plain text of src with whitespace collapsed, cut to max runes with "..." appended.
// A max of zero or less disables truncation.
func (r *Renderer) Excerpt(src string, max int) string {
	rendered, err := r.ToHTML(src)
	if err != nil {
		rendered = src
	}
	text := strings.Join(strings.Fields(html.UnescapeString(r.strict.Sanitize(rendered))), " ")
	if text == "" {
		return EmptyExcerpt
	}
	if runes := []rune(text); max > 0 && len(runes) > max {
		return strings.TrimSpace(string(runes[:max])) + "..."
	}
	return text
}
