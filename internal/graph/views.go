package graph

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docgraph/internal/element"
)

// Breadcrumb names one ancestor of a node.
type Breadcrumb struct {
	Title string `json:"title"`
	Level int    `json:"level"`
}

// Entry is a node without its children, as listed by the sequential and
// flat views.
type Entry struct {
	ID          string       `json:"id"`
	ParentID    string       `json:"parent_id,omitempty"`
	Type        element.Type `json:"type"`
	Level       int          `json:"level"`
	Box         element.BBox `json:"bounding_box"`
	Pages       PageSpan     `json:"page_span"`
	Text        string       `json:"text"`
	Path        string       `json:"path"`
	Style       *Style       `json:"style,omitempty"`
	Breadcrumbs []Breadcrumb `json:"breadcrumbs,omitempty"`
}

// NodeList is a pre-order listing of every node below the root.
type NodeList struct {
	SchemaVersion string  `json:"schema_version"`
	Info          Info    `json:"document_info"`
	DocumentID    string  `json:"document_id"`
	Nodes         []Entry `json:"nodes"`
}

// Sequential lists nodes with the titles of their ancestors, starting at the
// document root.
func (d *Document) Sequential() *NodeList {
	return d.list(true)
}

// Flat lists nodes with their parent id.
func (d *Document) Flat() *NodeList {
	return d.list(false)
}

func (d *Document) list(breadcrumbs bool) *NodeList {
	out := &NodeList{
		SchemaVersion: d.SchemaVersion,
		Info:          d.Info,
		DocumentID:    d.Root.ID,
		Nodes:         []Entry{},
	}
	var visit func(n *Node, trail []*Node)
	visit = func(n *Node, trail []*Node) {
		for _, c := range n.Children {
			e := Entry{
				ID:    c.ID,
				Type:  c.Type,
				Level: c.Level,
				Box:   c.Box,
				Pages: c.Pages,
				Text:  c.Text,
				Path:  c.Path,
				Style: c.Style,
			}
			next := append(trail[:len(trail):len(trail)], n)
			if breadcrumbs {
				e.Breadcrumbs = make([]Breadcrumb, len(next))
				for i, a := range next {
					e.Breadcrumbs[i] = Breadcrumb{Title: a.Title(d.Info.Title), Level: a.Level}
				}
			} else {
				e.ParentID = n.ID
			}
			out.Nodes = append(out.Nodes, e)
			visit(c, next)
		}
	}
	visit(d.Root, nil)
	return out
}

// Rebuild reconstructs the graph from a sequential or flat listing. Nodes
// are placed by path; listed breadcrumbs must name exactly the ancestors
// that placement gives.
func Rebuild(l *NodeList) (*Document, error) {
	root := newNode(element.TypeDocument, 0)
	root.ID = l.DocumentID
	byPath := map[string]*Node{"": root}
	trails := map[string][]*Node{"": nil}
	for i, e := range l.Nodes {
		parentPath := ""
		if dot := strings.LastIndexByte(e.Path, '.'); dot >= 0 {
			parentPath = e.Path[:dot]
		}
		parent, ok := byPath[parentPath]
		if !ok {
			return nil, fmt.Errorf("node %d (%s): parent %q not listed before it", i, e.Path, parentPath)
		}
		n := &Node{
			ID:       e.ID,
			Type:     e.Type,
			Level:    e.Level,
			Box:      e.Box,
			Pages:    e.Pages,
			Text:     e.Text,
			Path:     e.Path,
			Style:    e.Style,
			Children: []*Node{},
		}
		trail := append(trails[parentPath][:len(trails[parentPath]):len(trails[parentPath])], parent)
		if e.Breadcrumbs != nil {
			if err := checkBreadcrumbs(e.Breadcrumbs, trail, l.Info.Title); err != nil {
				return nil, fmt.Errorf("node %d (%s): %w", i, e.Path, err)
			}
		}
		parent.Children = append(parent.Children, n)
		byPath[e.Path] = n
		trails[e.Path] = trail
	}
	for _, c := range root.Children {
		root.Box = root.Box.Union(c.Box)
		root.Pages = root.Pages.union(c.Pages)
	}
	return &Document{SchemaVersion: l.SchemaVersion, Info: l.Info, Root: root}, nil
}

func checkBreadcrumbs(got []Breadcrumb, ancestors []*Node, docTitle string) error {
	if len(got) != len(ancestors) {
		return fmt.Errorf("%d breadcrumbs for %d ancestors", len(got), len(ancestors))
	}
	for i, a := range ancestors {
		want := Breadcrumb{Title: a.Title(docTitle), Level: a.Level}
		if got[i] != want {
			return fmt.Errorf("breadcrumb %d is %+v, ancestor is %+v", i, got[i], want)
		}
	}
	return nil
}
