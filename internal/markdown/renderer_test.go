package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_TitleTOCAndExcerpt(t *testing.T) {
	r := NewRenderer(Options{})
	body := "# Getting Started\n\nInstall the tool and run it.\n\n## Install\n\nText.\n\n### From source\n\n## Usage\n"

	out, err := r.Render([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, "Getting Started", out.Title)
	assert.Equal(t, "Install the tool and run it.", out.Excerpt)
	require.Len(t, out.TOC, 3)
	assert.Equal(t, 2, out.TOC[0].Level)
	assert.Equal(t, "install", out.TOC[0].ID)
	assert.Equal(t, "Install", out.TOC[0].Text)
	assert.Equal(t, 3, out.TOC[1].Level)
	assert.Equal(t, "from-source", out.TOC[1].ID)
	assert.Equal(t, "usage", out.TOC[2].ID)
	assert.Contains(t, out.HTML, `<h2 id="install">`)
}

func TestRender_SanitizesScripts(t *testing.T) {
	for _, unsafe := range []bool{false, true} {
		r := NewRenderer(Options{UnsafeHTML: unsafe})
		out, err := r.Render([]byte("Hello\n\n<script>alert(1)</script>\n\n<a href=\"javascript:alert(1)\">x</a>\n"))
		require.NoError(t, err)
		assert.NotContains(t, out.HTML, "<script")
		assert.NotContains(t, out.HTML, "javascript:")
	}
}

func TestRender_HighlightsCode(t *testing.T) {
	r := NewRenderer(Options{HighlightStyle: "monokai"})
	out, err := r.Render([]byte("```go\nfunc main() {}\n```\n"))
	require.NoError(t, err)

	assert.Contains(t, out.HTML, "<pre")
	assert.Contains(t, out.HTML, "style=")
	assert.Contains(t, out.HTML, "main")
	assert.Empty(t, out.Excerpt, "code blocks do not produce an excerpt")
}

func TestRender_GFMFeatures(t *testing.T) {
	r := NewRenderer(Options{})
	body := "| a | b |\n|---|---|\n| 1 | 2 |\n\n- [x] done\n- [ ] todo\n\n~~gone~~\n"
	out, err := r.Render([]byte(body))
	require.NoError(t, err)

	assert.Contains(t, out.HTML, "<table>")
	assert.Contains(t, out.HTML, `type="checkbox"`)
	assert.Contains(t, out.HTML, "<del>gone</del>")
}

func TestRender_Footnotes(t *testing.T) {
	r := NewRenderer(Options{})
	out, err := r.Render([]byte("Claim[^1].\n\n[^1]: Source.\n"))
	require.NoError(t, err)

	assert.Contains(t, out.HTML, `id="fn:1"`)
	assert.Contains(t, out.HTML, `href="#fn:1"`)
}

func TestTruncate(t *testing.T) {
	short := "short text"
	assert.Equal(t, short, truncate(short, 20))

	long := strings.Repeat("word ", 60)
	got := truncate(long, 50)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, len([]rune(got)), 51)
	assert.False(t, strings.HasSuffix(strings.TrimSuffix(got, "…"), " "))
}

// The word-boundary threshold counts runes, not bytes.
func TestTruncate_MultibyteBoundary(t *testing.T) {
	s := strings.Repeat("é", 8) + " " + strings.Repeat("é", 30)
	assert.Equal(t, strings.Repeat("é", 8)+" "+strings.Repeat("é", 11)+"…", truncate(s, 20))

	s = strings.Repeat("é", 14) + " " + strings.Repeat("é", 30)
	assert.Equal(t, strings.Repeat("é", 14)+"…", truncate(s, 20))
}
