// Package markdown renders model answers to HTML and pulls out their heading
// outline.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// OutlineItem is one heading of the answer.
type OutlineItem struct {
	Level int    `json:"level"`
	Title string `json:"title"`
	ID    string `json:"id"`
}

// Rendered is an answer converted for display. The source text is not altered.
type Rendered struct {
	HTML    string        `json:"html"`
	Outline []OutlineItem `json:"outline"`
}

// Renderer converts markdown answers with GitHub-flavored extensions. Raw HTML
// in the answer is escaped, never passed through.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer creates a renderer configured with goldmark.
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)
	return &Renderer{md: md}
}

// Render parses answer once and produces both the HTML and the outline.
func (r *Renderer) Render(answer string) (*Rendered, error) {
	source := []byte(answer)
	doc := r.md.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(3),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, source, doc); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	outline := []OutlineItem{}
	flatten(tree.Items, 1, &outline)

	return &Rendered{HTML: buf.String(), Outline: outline}, nil
}

// flatten walks TOC items depth-first. With Compact, a level may be skipped,
// so depth counts nesting rather than the literal heading level.
func flatten(items toc.Items, depth int, out *[]OutlineItem) {
	for _, item := range items {
		if len(item.Title) > 0 {
			*out = append(*out, OutlineItem{
				Level: depth,
				Title: string(item.Title),
				ID:    string(item.ID),
			})
		}
		if len(item.Items) > 0 {
			flatten(item.Items, depth+1, out)
		}
	}
}
