// Package graph turns a leveled element sequence into the document tree and
// renders its views.
package graph

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docgraph/internal/element"
	"github.com/dgallion1/docgraph/internal/rules"
)

// PageSpan is the first and last page a node covers. Zero means no pages.
type PageSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (p PageSpan) union(o PageSpan) PageSpan {
	if p == (PageSpan{}) {
		return o
	}
	if o == (PageSpan{}) {
		return p
	}
	return PageSpan{Start: min(p.Start, o.Start), End: max(p.End, o.End)}
}

// Style carries the font data of the node's first fragment.
type Style struct {
	FontName string  `json:"font_name,omitempty"`
	FontSize float64 `json:"font_size"`
	Bold     bool    `json:"bold"`
	Tier     string  `json:"tier,omitempty"`
}

// Node is one vertex of the document graph. A node owns its children.
type Node struct {
	ID       string       `json:"id"`
	Type     element.Type `json:"type"`
	Level    int          `json:"level"`
	Box      element.BBox `json:"bounding_box"`
	Pages    PageSpan     `json:"page_span"`
	Text     string       `json:"text"`
	Path     string       `json:"path"`
	Style    *Style       `json:"style,omitempty"`
	Children []*Node      `json:"children"`
}

func newNode(t element.Type, level int) *Node {
	return &Node{Type: t, Level: level, Children: []*Node{}}
}

// Key is the node's reading-order key.
func (n *Node) Key() element.Key {
	return element.Key{Page: n.Pages.Start, Top: n.Box.Top, Left: n.Box.Left}
}

const maxTitleRunes = 60

// Title is the label used for the node in breadcrumbs.
func (n *Node) Title(docTitle string) string {
	switch n.Type {
	case element.TypeDocument:
		return docTitle
	case element.TypeSection:
		return n.Text
	case element.TypeList, element.TypeTable, element.TypeTableRow:
		return string(n.Type)
	}
	r := []rune(n.Text)
	if len(r) <= maxTitleRunes {
		return n.Text
	}
	return strings.TrimSpace(string(r[:maxTitleRunes])) + "..."
}

// Walk visits n and its descendants in pre-order. Returning false skips the
// node's children.
func (n *Node) Walk(fn func(n *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Info describes the document as a whole.
type Info struct {
	Title     string `json:"title"`
	PageCount int    `json:"page_count"`
}

// Document is the assembled graph.
type Document struct {
	SchemaVersion string     `json:"schema_version"`
	Info          Info       `json:"document_info"`
	Root          *Node      `json:"root"`
	Analytics     *Analytics `json:"analytics,omitempty"`

	// Validation describes the element sequence the graph was built from.
	// It is reported through Analytics.
	Validation *rules.Report `json:"-"`
}

// DefectError reports input that the earlier stages should never produce.
type DefectError struct {
	Index  int
	Reason string
}

func (e *DefectError) Error() string {
	return fmt.Sprintf("assembly defect at element %d: %s", e.Index, e.Reason)
}
