package graph

import (
	"fmt"

	"github.com/dgallion1/docgraph/internal/element"
)

var buildable = map[element.Type]bool{
	element.TypeSection:   true,
	element.TypeParagraph: true,
	element.TypeListItem:  true,
	element.TypeTableCell: true,
}

// Build nests elements under a Document root by level. Each element becomes
// a child of the closest preceding element with a lower level.
func Build(els []element.ParsedElement, includeStyle bool) (*Node, error) {
	root := newNode(element.TypeDocument, 0)
	stack := []*Node{root}
	for i, e := range els {
		if !buildable[e.Type] {
			return nil, &DefectError{Index: i, Reason: fmt.Sprintf("unknown element type %q", e.Type)}
		}
		if e.Level < 1 {
			return nil, &DefectError{Index: i, Reason: fmt.Sprintf("level %d below 1", e.Level)}
		}

		n := fromElement(e, includeStyle)
		for stack[len(stack)-1].Level >= n.Level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		parent.Children = append(parent.Children, n)
		stack = append(stack, n)
	}
	return root, nil
}

func fromElement(e element.ParsedElement, includeStyle bool) *Node {
	n := newNode(e.Type, e.Level)
	n.Box = e.Box
	n.Text = e.Text
	lo, hi := e.Pages()
	n.Pages = PageSpan{Start: lo, End: hi}
	if includeStyle && e.HasFont() {
		f := e.First()
		n.Style = &Style{FontName: f.FontName, FontSize: f.FontSize, Bold: f.Bold}
		if e.Tier != element.TierNone {
			n.Style.Tier = e.Tier.String()
		}
	}
	return n
}
