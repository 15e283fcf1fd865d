package rules

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docgraph/internal/config"
	"github.com/dgallion1/docgraph/internal/element"
)

// frag builds a fragment whose box height equals its font size and whose
// width grows with the text.
func frag(text string, page int, top, left, size float64) element.TextElement {
	h := size
	if h == 0 {
		h = 10
	}
	return element.TextElement{
		Text:     text,
		Page:     page,
		Box:      element.BBox{Left: left, Top: top, Right: left + 5*float64(len(text)), Bottom: top + h},
		FontName: "Helvetica",
		FontSize: size,
	}
}

func bold(t element.TextElement) element.TextElement {
	t.Bold = true
	t.FontName = "Helvetica-Bold"
	return t
}

func parsed(fs ...element.TextElement) []element.ParsedElement {
	out := make([]element.ParsedElement, 0, len(fs))
	for _, f := range element.SortTextElements(fs) {
		out = append(out, element.FromText(f, 1))
	}
	return out
}

func resolve(t *testing.T, overrides string) config.Parsing {
	t.Helper()
	f, err := config.ParseFile(strings.NewReader(overrides))
	require.NoError(t, err)
	p, err := config.Resolve(config.Generic, f)
	require.NoError(t, err)
	return p
}

func run(t *testing.T, cfg config.Parsing, fs ...element.TextElement) []element.ParsedElement {
	t.Helper()
	rs, err := Build(cfg)
	require.NoError(t, err)
	els := parsed(fs...)
	for _, r := range rs {
		els, err = r.Apply(context.Background(), els)
		require.NoError(t, err, r.Name())
	}
	return els
}

type shape struct {
	Type  element.Type
	Level int
	Text  string
}

func shapes(els []element.ParsedElement) []shape {
	out := make([]shape, len(els))
	for i, e := range els {
		out[i] = shape{e.Type, e.Level, e.Text}
	}
	return out
}
