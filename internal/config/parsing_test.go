package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePresetsAreValid(t *testing.T) {
	t.Parallel()

	for _, dt := range DocumentTypes() {
		t.Run(string(dt), func(t *testing.T) {
			t.Parallel()
			p, err := Resolve(dt, nil)
			require.NoError(t, err)
			assert.Equal(t, dt, p.DocumentType)
			assert.Len(t, p.CompiledPatterns(), len(p.Patterns.Patterns))
		})
	}
}

func TestResolveGenericDefaults(t *testing.T) {
	t.Parallel()

	p, err := Resolve("", nil)
	require.NoError(t, err)

	assert.Equal(t, Generic, p.DocumentType)
	assert.InDelta(t, 0.7, p.Headers.LargeThreshold, 1e-9)
	assert.InDelta(t, 8.5, p.Headers.MinHeaderSize, 1e-9)
	assert.Equal(t, 5, p.Depth.MaxDepth)
	assert.Equal(t, Bounds{Min: 20, Max: 300}, p.Spatial.Sections)
	assert.Equal(t, Bounds{Min: 100, Max: 8000}, p.Spatial.Paragraphs)
	assert.Equal(t, []string{
		RuleSectionDetection,
		RulePatternSectionDetection,
		RuleSpatialClustering,
		RuleValidation,
	}, p.EnabledRules())
}

func TestResolveUnknownDocumentType(t *testing.T) {
	t.Parallel()

	_, err := Resolve("cookbook", nil)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Parsing)
		field  string
	}{
		{"unknown rule", func(p *Parsing) { p.Pipeline = append(p.Pipeline, RuleSpec{Name: "Magic", Enabled: true}) }, "pipeline[5]"},
		{"duplicate rule", func(p *Parsing) { p.Pipeline = append(p.Pipeline, RuleSpec{Name: RuleValidation}) }, "pipeline[5]"},
		{"bad pattern", func(p *Parsing) { p.Patterns.Patterns = []string{`(unclosed`} }, "patterns[0]"},
		{"negative threshold", func(p *Parsing) { p.Headers.SmallThreshold = -1 }, "small_header_threshold"},
		{"tiers out of order", func(p *Parsing) { p.Headers.MediumThreshold = 0.9 }, "header_thresholds"},
		{"zero depth", func(p *Parsing) { p.Depth.MaxDepth = 0 }, "max_depth"},
		{"min above max", func(p *Parsing) { p.Spatial.Paragraphs = Bounds{Min: 500, Max: 100} }, "paragraphs"},
		{"line grouping above one", func(p *Parsing) { p.Spatial.LineGroupingTolerance = 1.5 }, "line_grouping_tolerance"},
		{"empty pipeline", func(p *Parsing) { p.Pipeline = nil }, "pipeline"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := Preset(Generic)
			require.NoError(t, err)
			tt.mutate(&p)

			err = p.Validate()
			require.Error(t, err)
			assert.True(t, IsConfigError(err))
			assert.Contains(t, err.Error(), "config "+tt.field+":")
		})
	}
}

func TestParseFileOverrides(t *testing.T) {
	t.Parallel()

	doc := `
document_type: academic_paper
section_and_hierarchy:
  min_header_size: 11
  bold_size_strict: false
spatial_clustering:
  paragraphs:
    max_segment_size: 300
pattern_detection:
  patterns: ['^Chapter\s+\d+']
  respect_font_constraints: false
pipeline:
  - {name: PatternBasedSectionDetection, enabled: true}
  - {name: Validation, enabled: true}
`
	f, err := ParseFile(strings.NewReader(doc))
	require.NoError(t, err)

	p, err := Resolve("", f)
	require.NoError(t, err)

	assert.Equal(t, AcademicPaper, p.DocumentType)
	assert.InDelta(t, 11.0, p.Headers.MinHeaderSize, 1e-9)
	assert.False(t, p.Headers.BoldSizeStrict)
	assert.InDelta(t, 0.8, p.Headers.LargeThreshold, 1e-9, "untouched preset values survive")
	assert.Equal(t, Bounds{Min: 200, Max: 300}, p.Spatial.Paragraphs)
	assert.Equal(t, []string{`^Chapter\s+\d+`}, p.Patterns.Patterns)
	assert.False(t, p.Patterns.RespectFontConstraints)
	assert.Equal(t, []string{RulePatternSectionDetection, RuleValidation}, p.EnabledRules())
}

func TestParseFileRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := ParseFile(strings.NewReader("section_and_hierarchy:\n  huge_threshold: 2\n"))
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestParseFileEmpty(t *testing.T) {
	t.Parallel()

	f, err := ParseFile(strings.NewReader(""))
	require.NoError(t, err)
	p, err := Resolve(LegalContract, f)
	require.NoError(t, err)
	assert.Equal(t, LegalContract, p.DocumentType)
}

func TestResolveInvalidOverrideFails(t *testing.T) {
	t.Parallel()

	f, err := ParseFile(strings.NewReader("pipeline:\n  - {name: Clustering, enabled: true}\n"))
	require.NoError(t, err)

	_, err = Resolve(Generic, f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown rule "Clustering"`)
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	a := MustResolve(Generic)
	b := MustResolve(Generic)
	c := MustResolve(LegalContract)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), a.MinimalOnly().Fingerprint())
	assert.Len(t, a.Fingerprint(), 16)
}

func TestClampLevel(t *testing.T) {
	t.Parallel()

	p := MustResolve(Generic)
	assert.Equal(t, 5, p.ClampLevel(9))
	assert.Equal(t, 3, p.ClampLevel(3))

	p.Depth.EnforceMaxDepth = false
	assert.Equal(t, 9, p.ClampLevel(9))
}
