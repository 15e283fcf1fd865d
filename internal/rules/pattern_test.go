package rules

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docgraph/internal/config"
	"github.com/dgallion1/docgraph/internal/element"
)

func TestPatternDetectionFirstMatchWins(t *testing.T) {
	t.Parallel()

	r := NewPatternDetection(config.MustResolve(config.Generic))
	assert.Equal(t, 0, r.Match("SUMMARY"))
	assert.Equal(t, 1, r.Match("2. Methods and tools"))
	assert.Equal(t, 2, r.Match("Chapter 4"))
	assert.Equal(t, 3, r.Match("Key Terms:"))
	assert.Equal(t, -1, r.Match("an ordinary sentence."))
}

func TestPatternPromotionKeepsFontLevel(t *testing.T) {
	t.Parallel()

	cfg := config.MustResolve(config.Generic)
	body := strings.Repeat("running text ", 20)
	in := parsed(
		frag("Overview", 1, 10, 72, 18),
		frag("Chapter 1", 1, 40, 72, 10),
		frag(body, 1, 70, 72, 10),
	)

	out, err := NewSectionDetection(cfg).Apply(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, element.TypeParagraph, out[1].Type)
	require.Equal(t, 2, out[1].Level)

	out, err = NewPatternDetection(cfg).Apply(context.Background(), out)
	require.NoError(t, err)

	assert.Equal(t, shape{element.TypeSection, 2, "Chapter 1"}, shapes(out)[1])
	assert.True(t, out[1].Header)
	assert.Equal(t, 3, out[2].Level, "content is recomputed under the promoted section")
}

func TestPatternPromotionWithoutFontData(t *testing.T) {
	t.Parallel()

	cfg := resolve(t, "pattern_detection:\n  respect_font_constraints: false\n")

	t.Run("inherits preceding section level", func(t *testing.T) {
		in := []element.ParsedElement{
			{Type: element.TypeSection, Level: 1, Text: "Overview", Header: true,
				Constituents: []element.TextElement{frag("Overview", 1, 10, 72, 18)}},
			element.FromText(frag("Chapter 1", 1, 40, 72, 0), 2),
			element.FromText(frag("some body", 1, 70, 72, 0), 2),
		}
		out, err := NewPatternDetection(cfg).Apply(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, shape{element.TypeSection, 1, "Chapter 1"}, shapes(out)[1])
		assert.Equal(t, 2, out[2].Level)
	})

	t.Run("falls back to starting level", func(t *testing.T) {
		in := []element.ParsedElement{
			element.FromText(frag("Chapter 1", 1, 40, 72, 0), 3),
		}
		out, err := NewPatternDetection(cfg).Apply(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, shape{element.TypeSection, 1, "Chapter 1"}, shapes(out)[0])
	})
}

func TestPatternRespectsFontConstraints(t *testing.T) {
	t.Parallel()

	in := parsed(frag("Chapter 1", 1, 10, 72, 7), frag("body", 1, 40, 72, 0))

	strict, err := NewPatternDetection(config.MustResolve(config.Generic)).Apply(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, element.TypeParagraph, strict[0].Type)

	relaxed := resolve(t, "pattern_detection:\n  respect_font_constraints: false\n")
	out, err := NewPatternDetection(relaxed).Apply(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, element.TypeSection, out[0].Type)
}

func TestChapterAtSmallFontIsPromotedWhenFontIsIgnored(t *testing.T) {
	t.Parallel()

	body := frag("The opening chapter describes the setting in some detail.", 1, 60, 72, 10)
	heading := frag("Chapter 1", 1, 20, 72, 7)

	cfg := resolve(t, "pattern_detection:\n  respect_font_constraints: false\n")
	out := run(t, cfg, heading, body)
	assert.Equal(t, []shape{
		{element.TypeSection, 1, "Chapter 1"},
		{element.TypeParagraph, 2, body.Text},
	}, shapes(out))

	out = run(t, config.MustResolve(config.Generic), heading, body)
	for _, e := range out {
		assert.NotEqual(t, element.TypeSection, e.Type)
	}
}
