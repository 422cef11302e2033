// Package markdown converts Markdown bodies into sanitized, highlighted HTML
// and extracts the table of contents, title and excerpt from the result.
package markdown

import (
	"bytes"
	"fmt"
	"regexp"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"git.home.luguber.info/inful/docbundle/internal/manifest"
)

// Options configures a Renderer.
type Options struct {
	HighlightStyle string
	LineNumbers    bool
	UnsafeHTML     bool // let raw HTML through goldmark; it is still sanitized
}

// Rendered is the result of converting one Markdown body.
type Rendered struct {
	HTML    string
	TOC     []manifest.Heading
	Title   string // text of the first h1, if any
	Excerpt string // plain text of the first paragraph
}

// Renderer converts Markdown to HTML. It is safe for concurrent use.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewRenderer builds a goldmark pipeline and sanitization policy from opts.
func NewRenderer(opts Options) *Renderer {
	style := opts.HighlightStyle
	if style == "" {
		style = "github"
	}

	rendererOpts := []goldmark.Option{
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.DefinitionList,
			extension.Typographer,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(
					chromahtml.WithLineNumbers(opts.LineNumbers),
					chromahtml.WithClasses(false),
				),
			),
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	}
	if opts.UnsafeHTML {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(gmhtml.WithUnsafe()))
	}

	return &Renderer{
		md:     goldmark.New(rendererOpts...),
		policy: newPolicy(),
	}
}

// Render converts body (frontmatter already removed) to sanitized HTML.
func (r *Renderer) Render(body []byte) (Rendered, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(body, &buf); err != nil {
		return Rendered{}, fmt.Errorf("convert markdown: %w", err)
	}

	safe := r.policy.SanitizeBytes(buf.Bytes())
	out := Rendered{HTML: string(safe)}
	if err := analyze(safe, &out); err != nil {
		return Rendered{}, fmt.Errorf("analyze html: %w", err)
	}
	return out, nil
}

var (
	languageClass = regexp.MustCompile(`^language-[\w+#.-]+$`)
	footnoteClass = regexp.MustCompile(`^footnote(s|-ref|-backref)?$`)
	checkboxType  = regexp.MustCompile(`^checkbox$`)
)

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6", "li", "sup", "div", "section")
	p.AllowAttrs("class").Matching(languageClass).OnElements("code")
	p.AllowAttrs("class").Matching(footnoteClass).OnElements("a", "div", "section")
	p.AllowAttrs("role").OnElements("a", "div", "section", "hr")

	p.AllowAttrs("type").Matching(checkboxType).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")

	p.AllowStyles("color", "background-color", "font-weight", "font-style", "text-decoration",
		"display", "padding", "margin", "white-space", "width", "border", "overflow-x",
		"user-select").OnElements("pre", "code", "span", "div", "table", "td")
	p.AllowStyles("text-align").OnElements("th", "td")
	return p
}
