package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor handles Markdown files using goldmark. Headings,
// paragraphs, lists and GFM tables are typeset with their usual visual
// weight so the rule pipeline can recover the structure from geometry.
type MarkdownExtractor struct{}

func (p *MarkdownExtractor) Extract(r io.Reader, filename string) (*Extraction, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(src))

	w := &mdWriter{src: src, l: newLayout()}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		w.node(n, bodyStyle, "")
	}

	return fromLayout(w.title, w.l), nil
}

type mdWriter struct {
	src   []byte
	l     *layout
	title string
}

// node typesets a block. prefix is prepended to the first text block, which
// is how list markers reach the item's first line.
func (w *mdWriter) node(n ast.Node, st style, prefix string) string {
	switch node := n.(type) {
	case *ast.Heading:
		t := inlineText(node, w.src)
		if node.Level == 1 && w.title == "" {
			w.title = t
		}
		w.l.block(t, headingStyle(node.Level))
	case *ast.Paragraph, *ast.TextBlock:
		w.l.block(prefix+inlineText(node, w.src), st)
		return ""
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		w.l.block(prefix+linesText(node, w.src), st)
		return ""
	case *ast.Blockquote:
		inner := st
		inner.indent += listIndent
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			prefix = w.node(c, inner, prefix)
		}
	case *ast.List:
		w.list(node, st)
	case *east.Table:
		for row := node.FirstChild(); row != nil; row = row.NextSibling() {
			var cells []string
			for c := row.FirstChild(); c != nil; c = c.NextSibling() {
				cells = append(cells, inlineText(c, w.src))
			}
			w.l.row(cells, st)
		}
		w.l.gap(st)
	}
	return prefix
}

func (w *mdWriter) list(list *ast.List, parent style) {
	depth := int(parent.indent/listIndent) + 1
	st := listStyle(depth)
	i := 0
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "• "
		if list.IsOrdered() {
			marker = fmt.Sprintf("%d. ", list.Start+i)
		}
		i++
		prefix := marker
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, nested := c.(*ast.List); nested {
				w.list(sub, st)
				continue
			}
			prefix = w.node(c, st, prefix)
		}
	}
}

// inlineText collects the text of a node's inline descendants.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				buf.Write(t.Segment.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					buf.WriteByte(' ')
				}
			case *ast.String:
				buf.Write(t.Value)
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}

func linesText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return buf.String()
}
