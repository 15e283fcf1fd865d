package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLExtractor handles HTML files. Headings, paragraphs, list items and
// table rows are typeset; navigation chrome and scripts are skipped.
type HTMLExtractor struct{}

func (p *HTMLExtractor) Extract(r io.Reader, filename string) (*Extraction, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := findTitle(doc)

	w := &htmlWriter{l: newLayout()}
	if body := findBody(doc); body != nil {
		w.walk(body, 0)
	} else {
		w.walk(doc, 0)
	}
	return fromLayout(title, w.l), nil
}

type htmlWriter struct {
	l *layout
	// ordinal counters for open <ol> elements, innermost last.
	counters []int
}

func (w *htmlWriter) walk(n *html.Node, depth int) {
	if n.Type == html.TextNode {
		w.l.block(n.Data, bodyStyle)
		return
	}
	if n.Type == html.ElementNode {
		if level := headingLevel(n.Data); level > 0 {
			w.l.block(textContent(n), headingStyle(level))
			return
		}
		switch n.Data {
		case "script", "style", "nav", "footer", "header", "noscript", "template":
			return
		case "p", "blockquote", "pre", "dd", "dt", "figcaption":
			st := bodyStyle
			st.indent = float64(depth) * listIndent
			w.l.block(textContent(n), st)
			return
		case "ul", "ol":
			if n.Data == "ol" {
				w.counters = append(w.counters, 0)
			} else {
				w.counters = append(w.counters, -1)
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				w.walk(c, depth+1)
			}
			w.counters = w.counters[:len(w.counters)-1]
			return
		case "li":
			w.item(n, depth)
			return
		case "table":
			w.table(n)
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, depth)
	}
}

func (w *htmlWriter) item(n *html.Node, depth int) {
	marker := "• "
	if k := len(w.counters); k > 0 && w.counters[k-1] >= 0 {
		w.counters[k-1]++
		marker = fmt.Sprintf("%d. ", w.counters[k-1])
	}

	var own strings.Builder
	var nested []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
			nested = append(nested, c)
			continue
		}
		own.WriteString(textContent(c))
		own.WriteByte(' ')
	}
	w.l.block(marker+own.String(), listStyle(max(depth, 1)))
	for _, c := range nested {
		w.walk(c, depth)
	}
}

func (w *htmlWriter) table(n *html.Node) {
	var rows []*html.Node
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "tr":
				rows = append(rows, c)
			case "thead", "tbody", "tfoot":
				collect(c)
			}
		}
	}
	collect(n)

	for _, tr := range rows {
		var cells []string
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
				cells = append(cells, textContent(c))
			}
		}
		w.l.row(cells, bodyStyle)
	}
	w.l.gap(bodyStyle)
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
