package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_ToHTML(t *testing.T) {
	r := NewRenderer()

	t.Run("headings and emphasis", func(t *testing.T) {
		out, err := r.ToHTML("# Hi\n\nSome **bold** text")
		require.NoError(t, err)
		assert.Contains(t, out, "<h1>Hi</h1>")
		assert.Contains(t, out, "<strong>bold</strong>")
	})

	t.Run("gfm table", func(t *testing.T) {
		out, err := r.ToHTML("| a | b |\n|---|---|\n| 1 | 2 |")
		require.NoError(t, err)
		assert.Contains(t, out, "<table>")
	})

	t.Run("ordered list", func(t *testing.T) {
		out, err := r.ToHTML("1. one\n2. two\n3. three")
		require.NoError(t, err)
		assert.Contains(t, out, "<ol>")
		assert.Equal(t, 3, countOf(out, "<li>"))
	})

	t.Run("scripts removed", func(t *testing.T) {
		out, err := r.ToHTML("<script>alert(1)</script>\n\n<img src=\"/uploads/a.png\" onerror=\"alert(1)\">")
		require.NoError(t, err)
		assert.NotContains(t, out, "<script")
		assert.NotContains(t, out, "onerror")
		assert.Contains(t, out, `src="/uploads/a.png"`)
	})
}

func TestRenderer_FromHTML(t *testing.T) {
	r := NewRenderer()

	out, err := r.FromHTML("<h1>Title</h1><p>Hello <strong>world</strong></p><script>bad()</script>")
	require.NoError(t, err)
	assert.Contains(t, out, "# Title")
	assert.Contains(t, out, "**world**")
	assert.NotContains(t, out, "bad()")
}

func TestRenderer_Excerpt(t *testing.T) {
	r := NewRenderer()

	assert.Equal(t, "Title Some bold & text", r.Excerpt("# Title\n\nSome **bold** &amp; text", 0))
	assert.Equal(t, "abc...", r.Excerpt("abcdef", 3))
	assert.Equal(t, "short", r.Excerpt("short", 10))
	assert.Equal(t, EmptyExcerpt, r.Excerpt("", 10))
	assert.Equal(t, EmptyExcerpt, r.Excerpt("<script>x()</script>", 10))
}

func countOf(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}
