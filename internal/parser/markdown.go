package parser

import (
	"bytes"
	"context"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// MarkdownConverter passes markdown through, rewriting setext headings
// ("Title\n=====") as ATX headings so the sectionizer sees them.
type MarkdownConverter struct{}

func (p *MarkdownConverter) ToMarkdown(_ context.Context, data []byte, filename string) (string, error) {
	src := bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	return strings.TrimSpace(normalizeHeadings(src)), nil
}

type headingRewrite struct {
	level int
	title string
	last  int // index of the last title line; the underline follows it
}

func normalizeHeadings(src []byte) string {
	lines := strings.Split(string(src), "\n")
	starts := make([]int, len(lines))
	off := 0
	for i, l := range lines {
		starts[i] = off
		off += len(l) + 1
	}
	lineOf := func(pos int) int {
		return sort.Search(len(starts), func(i int) bool { return starts[i] > pos }) - 1
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	rewrites := make(map[int]headingRewrite)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		first := lineOf(h.Lines().At(0).Start)
		if first < 0 || strings.HasPrefix(strings.TrimLeft(lines[first], " "), "#") {
			continue
		}
		var parts []string
		for i := 0; i < h.Lines().Len(); i++ {
			seg := h.Lines().At(i)
			parts = append(parts, strings.TrimSpace(string(seg.Value(src))))
		}
		last := lineOf(h.Lines().At(h.Lines().Len() - 1).Start)
		rewrites[first] = headingRewrite{level: h.Level, title: strings.Join(parts, " "), last: last}
	}
	if len(rewrites) == 0 {
		return string(src)
	}

	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		rw, ok := rewrites[i]
		if !ok {
			out = append(out, lines[i])
			continue
		}
		out = append(out, heading(rw.level, rw.title))
		i = rw.last + 1 // skip the underline
	}
	return strings.Join(out, "\n")
}

var htmlRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(
		renderer.WithNodeRenderers(util.Prioritized(escapedHTML{}, 100)),
	),
)

// RenderHTML converts markdown to HTML. Raw HTML in the source is shown
// as escaped text and unsafe link targets are dropped.
func RenderHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := htmlRenderer.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// escapedHTML renders inline and block raw HTML as literal text.
type escapedHTML struct{}

func (escapedHTML) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindRawHTML, renderRawHTML)
	reg.Register(ast.KindHTMLBlock, renderHTMLBlock)
}

func renderRawHTML(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	n := node.(*ast.RawHTML)
	for i := 0; i < n.Segments.Len(); i++ {
		seg := n.Segments.At(i)
		_, _ = w.Write(util.EscapeHTML(seg.Value(source)))
	}
	return ast.WalkSkipChildren, nil
}

func renderHTMLBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.HTMLBlock)
	if entering {
		_, _ = w.WriteString("<p>")
		for i := 0; i < n.Lines().Len(); i++ {
			line := n.Lines().At(i)
			_, _ = w.Write(util.EscapeHTML(line.Value(source)))
		}
		return ast.WalkContinue, nil
	}
	if n.HasClosure() {
		_, _ = w.Write(util.EscapeHTML(n.ClosureLine.Value(source)))
	}
	_, _ = w.WriteString("</p>\n")
	return ast.WalkContinue, nil
}
