package graph

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docgraph/internal/config"
	"github.com/dgallion1/docgraph/internal/element"
)

func el(typ element.Type, level int, text string, page int, top, left float64) element.ParsedElement {
	f := element.TextElement{
		Text:     text,
		Page:     page,
		Box:      element.BBox{Left: left, Top: top, Right: left + 6*float64(len(text)), Bottom: top + 10},
		FontName: "Times-Roman",
		FontSize: 10,
	}
	e := element.FromText(f, level)
	e.Type = typ
	if typ == element.TypeSection {
		e.Header = true
	}
	return e
}

func assemble(t *testing.T, cfg config.Parsing, els ...element.ParsedElement) *Document {
	t.Helper()
	d, err := Assemble(els, cfg, Options{})
	require.NoError(t, err)
	return d
}

func sampleDoc() []element.ParsedElement {
	return []element.ParsedElement{
		el(element.TypeSection, 1, "Introduction", 1, 50, 72),
		el(element.TypeParagraph, 2, "Opening words.", 1, 80, 72),
		el(element.TypeSection, 2, "Scope", 1, 110, 72),
		el(element.TypeParagraph, 3, "What is covered.", 1, 140, 72),
		el(element.TypeListItem, 3, "• first", 1, 170, 80),
		el(element.TypeListItem, 3, "• second", 1, 185, 80),
		el(element.TypeSection, 1, "Results", 2, 50, 72),
		el(element.TypeParagraph, 2, "Name", 2, 80, 72),
		el(element.TypeParagraph, 2, "Score", 2, 80, 250),
		el(element.TypeParagraph, 2, "Alpha", 2, 95, 72),
		el(element.TypeParagraph, 2, "12", 2, 95, 250),
		el(element.TypeParagraph, 2, "Closing remarks.", 2, 130, 72),
	}
}

func TestBuildNestsByLevel(t *testing.T) {
	t.Parallel()

	root, err := Build([]element.ParsedElement{
		el(element.TypeSection, 1, "A", 1, 0, 0),
		el(element.TypeParagraph, 2, "a text", 1, 10, 0),
		el(element.TypeSection, 2, "A.1", 1, 20, 0),
		el(element.TypeParagraph, 3, "a1 text", 1, 30, 0),
		el(element.TypeSection, 1, "B", 1, 40, 0),
	}, false)
	require.NoError(t, err)

	require.Len(t, root.Children, 2)
	a := root.Children[0]
	assert.Equal(t, "A", a.Text)
	require.Len(t, a.Children, 2)
	assert.Equal(t, "A.1", a.Children[1].Text)
	assert.Equal(t, "a1 text", a.Children[1].Children[0].Text)
	assert.Equal(t, "B", root.Children[1].Text)
	assert.NotNil(t, root.Children[1].Children)
}

func TestBuildRejectsDefects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		el   element.ParsedElement
	}{
		{"unknown type", el("Footnote", 1, "x", 1, 0, 0)},
		{"synthesized type", el(element.TypeTable, 1, "x", 1, 0, 0)},
		{"level zero", el(element.TypeParagraph, 0, "x", 1, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Assemble([]element.ParsedElement{el(element.TypeSection, 1, "ok", 1, 0, 0), tt.el},
				config.MustResolve(config.Generic), Options{})
			var de *DefectError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, 1, de.Index)
		})
	}
}

func TestAssembleEmptyDocument(t *testing.T) {
	t.Parallel()

	d := assemble(t, config.MustResolve(config.Generic))
	assert.Equal(t, element.TypeDocument, d.Root.Type)
	assert.Empty(t, d.Root.Children)
	assert.NotNil(t, d.Root.Children)
	assert.Equal(t, 0, d.Info.PageCount)
	assert.Equal(t, "Untitled Document", d.Info.Title)
	assert.Equal(t, config.SchemaVersion, d.SchemaVersion)
	assert.NotEmpty(t, d.Root.ID)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, d, FormatGraph))
	assert.Contains(t, buf.String(), `"children": []`)
}

func TestAssembleGroupsListsAndTables(t *testing.T) {
	t.Parallel()

	d := assemble(t, config.MustResolve(config.Generic), sampleDoc()...)
	require.Len(t, d.Root.Children, 2)

	scope := d.Root.Children[0].Children[1]
	require.Equal(t, "Scope", scope.Text)
	require.Len(t, scope.Children, 2)
	list := scope.Children[1]
	assert.Equal(t, element.TypeList, list.Type)
	assert.Equal(t, 3, list.Level)
	require.Len(t, list.Children, 2)
	for _, item := range list.Children {
		assert.Equal(t, element.TypeListItem, item.Type)
		assert.Equal(t, 4, item.Level)
	}

	results := d.Root.Children[1]
	require.Len(t, results.Children, 2)
	table := results.Children[0]
	assert.Equal(t, element.TypeTable, table.Type)
	assert.Equal(t, 2, table.Level)
	require.Len(t, table.Children, 2)
	for _, row := range table.Children {
		assert.Equal(t, element.TypeTableRow, row.Type)
		assert.Equal(t, 3, row.Level)
		require.Len(t, row.Children, 2)
		for _, cell := range row.Children {
			assert.Equal(t, element.TypeTableCell, cell.Type)
			assert.Equal(t, 4, cell.Level)
		}
	}
	assert.Equal(t, "Alpha", table.Children[1].Children[0].Text)
	assert.Equal(t, element.TypeParagraph, results.Children[1].Type)
}

func TestAssembleSkipsGroupingBeyondMaxDepth(t *testing.T) {
	t.Parallel()

	cfg := config.MustResolve(config.Generic)
	cfg.Depth.MaxDepth = 3
	d := assemble(t, cfg, sampleDoc()...)

	scope := d.Root.Children[0].Children[1]
	assert.Len(t, scope.Children, 3, "list would reach level 4")

	results := d.Root.Children[1]
	assert.Len(t, results.Children, 5, "table cells would reach level 4")
}

func TestAssembleSingleItemIsNotAList(t *testing.T) {
	t.Parallel()

	d := assemble(t, config.MustResolve(config.Generic),
		el(element.TypeListItem, 1, "• lonely", 1, 0, 72),
		el(element.TypeListItem, 1, "1. numbered", 1, 20, 72),
	)
	for _, c := range d.Root.Children {
		assert.Equal(t, element.TypeListItem, c.Type)
	}
}

func TestGraphProperties(t *testing.T) {
	t.Parallel()

	d := assemble(t, config.MustResolve(config.Generic), sampleDoc()...)
	seen := map[string]bool{}
	d.Root.Walk(func(n *Node, _ int) bool {
		assert.False(t, seen[n.ID], "duplicate id %s", n.ID)
		seen[n.ID] = true
		for i, c := range n.Children {
			assert.Greater(t, c.Level, n.Level, "levels increase along %s", c.Path)
			assert.True(t, n.Box.Contains(c.Box), "box of %q contains %q", n.Path, c.Path)
			assert.LessOrEqual(t, n.Pages.Start, c.Pages.Start)
			assert.GreaterOrEqual(t, n.Pages.End, c.Pages.End)
			if i > 0 {
				assert.False(t, c.Key().Less(n.Children[i-1].Key()), "sibling order at %s", c.Path)
			}
		}
		return true
	})
	assert.Equal(t, PageSpan{Start: 1, End: 2}, d.Root.Pages)
	assert.Equal(t, 2, d.Info.PageCount)
}

func TestAssembleIsDeterministic(t *testing.T) {
	t.Parallel()

	cfg := config.MustResolve(config.Generic)
	render := func() []byte {
		var buf bytes.Buffer
		d := assemble(t, cfg, sampleDoc()...)
		d.Analytics = Profile(d.Root)
		require.NoError(t, Write(&buf, d, FormatGraph))
		require.NoError(t, Write(&buf, d, FormatSequential))
		return buf.Bytes()
	}
	assert.Equal(t, render(), render())

	other := sampleDoc()
	other[1] = el(element.TypeParagraph, 2, "Different words.", 1, 80, 72)
	d1 := assemble(t, cfg, sampleDoc()...)
	d2 := assemble(t, cfg, other...)
	assert.NotEqual(t, d1.Root.ID, d2.Root.ID)
}

func TestTitleSelection(t *testing.T) {
	t.Parallel()

	cfg := config.MustResolve(config.Generic)
	large := el(element.TypeSection, 1, "Big Title", 1, 100, 72)
	large.Tier = element.TierLarge

	d := assemble(t, cfg, el(element.TypeSection, 1, "Preface", 1, 50, 72), large)
	assert.Equal(t, "Big Title", d.Info.Title)

	d = assemble(t, cfg, el(element.TypeParagraph, 1, "intro", 1, 10, 72), el(element.TypeSection, 1, "Preface", 1, 50, 72))
	assert.Equal(t, "Preface", d.Info.Title)

	body := []element.ParsedElement{el(element.TypeParagraph, 1, "intro", 1, 10, 72)}
	d, err := Assemble(body, cfg, Options{Title: "Annual Report"})
	require.NoError(t, err)
	assert.Equal(t, "Annual Report", d.Info.Title)

	d, err = Assemble(append(body, el(element.TypeSection, 1, "Preface", 1, 50, 72)), cfg, Options{Title: "Annual Report"})
	require.NoError(t, err)
	assert.Equal(t, "Preface", d.Info.Title, "headings win over metadata")

	d = assemble(t, cfg, body...)
	assert.Equal(t, "Untitled Document", d.Info.Title)
}

func TestSequentialBreadcrumbsAndRebuild(t *testing.T) {
	t.Parallel()

	d := assemble(t, config.MustResolve(config.Generic), sampleDoc()...)
	seq := d.Sequential()
	assert.Equal(t, d.Root.ID, seq.DocumentID)

	var first *Entry
	for i := range seq.Nodes {
		if seq.Nodes[i].Text == "• first" {
			first = &seq.Nodes[i]
		}
	}
	require.NotNil(t, first)
	assert.Equal(t, []Breadcrumb{
		{Title: "Introduction", Level: 0},
		{Title: "Introduction", Level: 1},
		{Title: "Scope", Level: 2},
		{Title: "List", Level: 3},
	}, first.Breadcrumbs)

	rebuilt, err := Rebuild(seq)
	require.NoError(t, err)
	assert.Equal(t, d, rebuilt)

	fromFlat, err := Rebuild(d.Flat())
	require.NoError(t, err)
	assert.Equal(t, d, fromFlat)
}

func TestSequentialBreadcrumbsMatchGraph(t *testing.T) {
	t.Parallel()

	d := assemble(t, config.MustResolve(config.Generic), sampleDoc()...)
	nodes := map[string]*Node{}
	depths := map[string]int{}
	d.Root.Walk(func(n *Node, depth int) bool {
		nodes[n.Path] = n
		depths[n.Path] = depth
		return true
	})

	seq := d.Sequential()
	require.Len(t, seq.Nodes, len(nodes)-1)
	for _, e := range seq.Nodes {
		require.Len(t, e.Breadcrumbs, depths[e.Path], e.Path)

		// Walk the graph down the same trail the breadcrumbs describe.
		cur := d.Root
		for i, bc := range e.Breadcrumbs {
			assert.Equal(t, Breadcrumb{Title: cur.Title(d.Info.Title), Level: cur.Level}, bc, "%s crumb %d", e.Path, i)
			if i+1 < len(e.Breadcrumbs) {
				cur = nodes[ancestorPath(e.Path, i+1)]
				require.NotNil(t, cur)
			}
		}
		assert.Contains(t, cur.Children, nodes[e.Path], "last crumb of %s is its parent", e.Path)
	}
}

// ancestorPath returns the first n segments of a dotted path.
func ancestorPath(path string, n int) string {
	parts := strings.Split(path, ".")
	return strings.Join(parts[:n], ".")
}

func TestRebuildRejectsWrongBreadcrumbs(t *testing.T) {
	t.Parallel()

	d := assemble(t, config.MustResolve(config.Generic), sampleDoc()...)
	tests := []struct {
		name   string
		mutate func(e *Entry)
	}{
		{"wrong title", func(e *Entry) { e.Breadcrumbs[len(e.Breadcrumbs)-1].Title = "Elsewhere" }},
		{"wrong level", func(e *Entry) { e.Breadcrumbs[0].Level = 7 }},
		{"missing ancestor", func(e *Entry) { e.Breadcrumbs = e.Breadcrumbs[1:] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := d.Sequential()
			deepest := &seq.Nodes[0]
			for i := range seq.Nodes {
				if len(seq.Nodes[i].Breadcrumbs) > len(deepest.Breadcrumbs) {
					deepest = &seq.Nodes[i]
				}
			}
			require.Greater(t, len(deepest.Breadcrumbs), 1)
			tt.mutate(deepest)

			_, err := Rebuild(seq)
			require.Error(t, err)
			assert.Contains(t, err.Error(), deepest.Path)
		})
	}
}

func TestFlatListsParents(t *testing.T) {
	t.Parallel()

	d := assemble(t, config.MustResolve(config.Generic), sampleDoc()...)
	flat := d.Flat()
	require.NotEmpty(t, flat.Nodes)
	assert.Equal(t, d.Root.ID, flat.Nodes[0].ParentID)
	assert.Equal(t, d.Root.Children[0].ID, flat.Nodes[1].ParentID)
	for _, e := range flat.Nodes {
		assert.Nil(t, e.Breadcrumbs)
	}
}

func TestRebuildRejectsOrphans(t *testing.T) {
	t.Parallel()

	_, err := Rebuild(&NodeList{Nodes: []Entry{{Path: "2.1"}}})
	require.Error(t, err)
}

func TestProfile(t *testing.T) {
	t.Parallel()

	d := assemble(t, config.MustResolve(config.Generic), sampleDoc()...)
	a := Profile(d.Root)

	// 12 elements plus List, Table and two TableRows.
	assert.Equal(t, 16, a.NodeCount)
	assert.Equal(t, 3, a.Types[element.TypeSection])
	assert.Equal(t, 4, a.Types[element.TypeTableCell])
	assert.Equal(t, 1, a.Types[element.TypeList])
	assert.Equal(t, 4, a.MaxDepth)
	assert.Equal(t, 12, a.Tokens.Count)
	assert.Equal(t, 3, a.TokensByType[element.TypeSection].Count)
}

func TestPercentile(t *testing.T) {
	t.Parallel()

	v := []int{100, 200, 300, 400, 500}
	assert.InDelta(t, 300.0, percentile(v, 50), 1e-9)
	assert.InDelta(t, 480.0, percentile(v, 95), 1e-9)
	assert.InDelta(t, 100.0, percentile(v, 0), 1e-9)
	assert.InDelta(t, 0.0, percentile(nil, 50), 1e-9)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Format{"": FormatGraph, "graph": FormatGraph, "sequential": FormatSequential, "flat": FormatFlat} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	require.Error(t, err)
}
