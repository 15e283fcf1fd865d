package graph

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/dgallion1/docgraph/internal/config"
	"github.com/dgallion1/docgraph/internal/element"
)

var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/dgallion1/docgraph/node"))

// Options tune assembly output.
type Options struct {
	IncludeStyle bool
	// Title is the document's metadata title. It is used when no section
	// heading names the document.
	Title string
}

// Assemble builds the document graph from the final element sequence.
func Assemble(els []element.ParsedElement, cfg config.Parsing, opts Options) (*Document, error) {
	root, err := Build(els, opts.IncludeStyle)
	if err != nil {
		return nil, err
	}

	g := grouper{cfg: cfg}
	g.group(root)

	info := Info{Title: title(els, cfg, opts.Title)}
	for _, e := range els {
		_, hi := e.Pages()
		info.PageCount = max(info.PageCount, hi)
	}

	finalize(root, "", Fingerprint(els))
	return &Document{SchemaVersion: config.SchemaVersion, Info: info, Root: root}, nil
}

// Fingerprint hashes every fragment of the document.
func Fingerprint(els []element.ParsedElement) string {
	d := xxhash.New()
	for _, e := range els {
		for _, c := range e.Constituents {
			fmt.Fprintf(d, "%d|%g|%g|%g|%g|%g|%s\x00",
				c.Page, c.Box.Left, c.Box.Top, c.Box.Right, c.Box.Bottom, c.FontSize, c.Text)
		}
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

func nodeID(seed, path string) string {
	return uuid.NewSHA1(namespace, []byte(seed+":"+path)).String()
}

func title(els []element.ParsedElement, cfg config.Parsing, meta string) string {
	for _, e := range els {
		if e.Type == element.TypeSection && e.Tier == element.TierLarge {
			return e.Text
		}
	}
	for _, e := range els {
		if e.Type == element.TypeSection {
			return e.Text
		}
	}
	if meta != "" {
		return meta
	}
	return cfg.Assembly.TitlePlaceholder
}

// finalize assigns paths and ids and widens boxes and page spans to cover
// descendants.
func finalize(n *Node, path, seed string) {
	n.Path = path
	n.ID = nodeID(seed, path)
	for i, c := range n.Children {
		cp := strconv.Itoa(i + 1)
		if path != "" {
			cp = path + "." + cp
		}
		finalize(c, cp, seed)
		n.Box = n.Box.Union(c.Box)
		n.Pages = n.Pages.union(c.Pages)
	}
}

type grouper struct {
	cfg config.Parsing
}

func (g grouper) group(n *Node) {
	for _, c := range n.Children {
		g.group(c)
	}
	n.Children = g.tables(n.Children)
	n.Children = g.lists(n.Children)
}

func (g grouper) fits(level int) bool {
	return !g.cfg.Depth.EnforceMaxDepth || level <= g.cfg.Depth.MaxDepth
}

func (g grouper) tables(ch []*Node) []*Node {
	out := make([]*Node, 0, len(ch))
	for i := 0; i < len(ch); {
		rows, next := g.tableAt(ch, i)
		if rows == nil {
			out = append(out, ch[i])
			i++
			continue
		}
		out = append(out, makeTable(rows))
		i = next
	}
	return out
}

// tableAt collects consecutive aligned rows starting at ch[i].
func (g grouper) tableAt(ch []*Node, i int) ([][]*Node, int) {
	var rows [][]*Node
	j := i
	for j < len(ch) {
		row := rowAt(ch, j)
		if len(row) < 2 {
			break
		}
		if len(rows) > 0 && !g.aligned(rows[0], row) {
			break
		}
		rows = append(rows, row)
		j += len(row)
	}
	if len(rows) < 2 || !g.fits(ch[i].Level+2) {
		return nil, i
	}
	return rows, j
}

func cellCandidate(n *Node) bool {
	return (n.Type == element.TypeParagraph || n.Type == element.TypeTableCell) && len(n.Children) == 0
}

// rowAt returns the run of cells that share a line with ch[j].
func rowAt(ch []*Node, j int) []*Node {
	if !cellCandidate(ch[j]) {
		return nil
	}
	first := ch[j]
	k := j + 1
	for k < len(ch) {
		c := ch[k]
		if !cellCandidate(c) || c.Level != first.Level || c.Pages.Start != first.Pages.Start {
			break
		}
		if c.Box.VerticalOverlap(first.Box) <= 0 || c.Box.Left < ch[k-1].Box.Right {
			break
		}
		k++
	}
	return ch[j:k]
}

func (g grouper) aligned(a, b []*Node) bool {
	if len(a) != len(b) {
		return false
	}
	for c := range a {
		if abs(a[c].Box.Left-b[c].Box.Left) > g.cfg.Assembly.ColumnTolerance {
			return false
		}
	}
	return true
}

func makeTable(rows [][]*Node) *Node {
	level := rows[0][0].Level
	t := newNode(element.TypeTable, level)
	for _, cells := range rows {
		r := newNode(element.TypeTableRow, level+1)
		for _, c := range cells {
			c.Type = element.TypeTableCell
			c.Level = level + 2
			r.Children = append(r.Children, c)
		}
		t.Children = append(t.Children, r)
	}
	return t
}

func itemStyle(n *Node) element.MarkerStyle {
	if n.Type != element.TypeListItem && n.Type != element.TypeParagraph {
		return element.MarkerNone
	}
	return element.Marker(n.Text)
}

func (g grouper) lists(ch []*Node) []*Node {
	out := make([]*Node, 0, len(ch))
	for i := 0; i < len(ch); {
		style := itemStyle(ch[i])
		if style == element.MarkerNone {
			out = append(out, ch[i])
			i++
			continue
		}
		first := ch[i]
		j := i + 1
		for j < len(ch) && ch[j].Level == first.Level && itemStyle(ch[j]) == style &&
			abs(ch[j].Box.Left-first.Box.Left) <= g.cfg.Assembly.ListIndentTolerance {
			j++
		}
		run := ch[i:j]
		if len(run) < 2 || !g.fits(deepest(run)+1) {
			out = append(out, run...)
			i = j
			continue
		}

		list := newNode(element.TypeList, first.Level)
		list.Children = slices.Clone(run)
		for _, item := range list.Children {
			item.Type = element.TypeListItem
			shift(item, 1)
		}
		out = append(out, list)
		i = j
	}
	return out
}

func deepest(ns []*Node) int {
	d := 0
	for _, n := range ns {
		n.Walk(func(n *Node, _ int) bool {
			d = max(d, n.Level)
			return true
		})
	}
	return d
}

func shift(n *Node, by int) {
	n.Walk(func(n *Node, _ int) bool {
		n.Level += by
		return true
	})
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
