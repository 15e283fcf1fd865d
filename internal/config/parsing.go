package config

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// DocumentType selects a parameter preset.
type DocumentType string

const (
	Generic         DocumentType = "generic"
	AcademicPaper   DocumentType = "academic_paper"
	LegalContract   DocumentType = "legal_contract"
	TechnicalManual DocumentType = "technical_manual"
	BusinessReport  DocumentType = "business_report"
)

// Rule names accepted in a pipeline definition.
const (
	RuleSectionDetection        = "SectionDetection"
	RulePatternSectionDetection = "PatternBasedSectionDetection"
	RuleSpatialClustering       = "SpatialClustering"
	RuleMinimalParse            = "MinimalParse"
	RuleValidation              = "Validation"
)

// KnownRules lists every rule name the executor can build.
var KnownRules = []string{
	RuleSectionDetection,
	RulePatternSectionDetection,
	RuleSpatialClustering,
	RuleMinimalParse,
	RuleValidation,
}

// SchemaVersion is stamped on every graph.
const SchemaVersion = "0.2.0"

type Headers struct {
	LargeThreshold   float64 `json:"large_header_threshold" yaml:"large_header_threshold"`
	MediumThreshold  float64 `json:"medium_header_threshold" yaml:"medium_header_threshold"`
	SmallThreshold   float64 `json:"small_header_threshold" yaml:"small_header_threshold"`
	MinHeaderSize    float64 `json:"min_header_size" yaml:"min_header_size"`
	UseBoldIndicator bool    `json:"use_bold_indicator" yaml:"use_bold_indicator"`
	BoldSizeStrict   bool    `json:"bold_size_strict" yaml:"bold_size_strict"`
}

type Depth struct {
	MaxDepth             int     `json:"max_depth" yaml:"max_depth"`
	FontSizeTolerance    float64 `json:"font_size_tolerance" yaml:"font_size_tolerance"`
	EnforceMaxDepth      bool    `json:"enforce_max_depth" yaml:"enforce_max_depth"`
	StartingSectionLevel int     `json:"starting_section_level" yaml:"starting_section_level"`
}

type Patterns struct {
	Patterns               []string `json:"patterns" yaml:"patterns"`
	RespectFontConstraints bool     `json:"respect_font_constraints" yaml:"respect_font_constraints"`
}

// Bounds are character limits for one class of cluster.
type Bounds struct {
	Min int `json:"min_segment_size" yaml:"min_segment_size"`
	Max int `json:"max_segment_size" yaml:"max_segment_size"`
}

type Spatial struct {
	MinLineHeight                  float64 `json:"min_line_height" yaml:"min_line_height"`
	VerticalGapThresholdMultiplier float64 `json:"vertical_gap_threshold_multiplier" yaml:"vertical_gap_threshold_multiplier"`
	HorizontalAlignmentTolerance   float64 `json:"horizontal_alignment_tolerance" yaml:"horizontal_alignment_tolerance"`
	LineGroupingTolerance          float64 `json:"line_grouping_tolerance" yaml:"line_grouping_tolerance"`
	Sections                       Bounds  `json:"sections" yaml:"sections"`
	Paragraphs                     Bounds  `json:"paragraphs" yaml:"paragraphs"`
}

type Validation struct {
	MinTextLength int `json:"min_text_length" yaml:"min_text_length"`
}

type Assembly struct {
	ListIndentTolerance float64 `json:"list_indent_tolerance" yaml:"list_indent_tolerance"`
	ColumnTolerance     float64 `json:"column_tolerance" yaml:"column_tolerance"`
	TitlePlaceholder    string  `json:"title_placeholder" yaml:"title_placeholder"`
}

// RuleSpec is one pipeline entry.
type RuleSpec struct {
	Name    string `json:"name" yaml:"name"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// Parsing is the fully resolved parameter set for one run. Obtain it from
// Resolve; rules never see a partially filled value.
type Parsing struct {
	DocumentType DocumentType `json:"document_type"`
	Headers      Headers      `json:"section_and_hierarchy"`
	Depth        Depth        `json:"depth"`
	Patterns     Patterns     `json:"pattern_detection"`
	Spatial      Spatial      `json:"spatial_clustering"`
	Validation   Validation   `json:"validation"`
	Assembly     Assembly     `json:"assembly"`
	Pipeline     []RuleSpec   `json:"pipeline"`

	compiled []*regexp.Regexp
}

var defaultPatterns = []string{
	`^[A-Z][A-Z\s]{2,}$`,
	`^\d+\.\s+[A-Z][a-z]{3,}`,
	`^(Chapter|Section|Part|Article)\s+\d+`,
	`^[A-Z][a-z]{2,}(?:\s+[A-Z][a-z]{2,})*:$`,
}

func defaultPipeline() []RuleSpec {
	return []RuleSpec{
		{Name: RuleSectionDetection, Enabled: true},
		{Name: RulePatternSectionDetection, Enabled: true},
		{Name: RuleSpatialClustering, Enabled: true},
		{Name: RuleMinimalParse, Enabled: false},
		{Name: RuleValidation, Enabled: true},
	}
}

func generic() Parsing {
	return Parsing{
		DocumentType: Generic,
		Headers: Headers{
			LargeThreshold:   0.7,
			MediumThreshold:  0.3,
			SmallThreshold:   0.1,
			MinHeaderSize:    8.5,
			UseBoldIndicator: true,
			BoldSizeStrict:   true,
		},
		Depth: Depth{
			MaxDepth:             5,
			FontSizeTolerance:    0.1,
			EnforceMaxDepth:      true,
			StartingSectionLevel: 1,
		},
		Patterns: Patterns{
			Patterns:               slices.Clone(defaultPatterns),
			RespectFontConstraints: true,
		},
		Spatial: Spatial{
			MinLineHeight:                  8.0,
			VerticalGapThresholdMultiplier: 0.8,
			HorizontalAlignmentTolerance:   10.0,
			LineGroupingTolerance:          0.3,
			Sections:                       Bounds{Min: 20, Max: 300},
			Paragraphs:                     Bounds{Min: 100, Max: 8000},
		},
		Validation: Validation{MinTextLength: 2},
		Assembly: Assembly{
			ListIndentTolerance: 15.0,
			ColumnTolerance:     12.0,
			TitlePlaceholder:    "Untitled Document",
		},
		Pipeline: defaultPipeline(),
	}
}

var presets = map[DocumentType]func() Parsing{
	Generic: generic,
	AcademicPaper: func() Parsing {
		p := generic()
		p.DocumentType = AcademicPaper
		p.Headers.LargeThreshold, p.Headers.MediumThreshold, p.Headers.SmallThreshold = 0.8, 0.4, 0.15
		p.Headers.MinHeaderSize = 10.0
		p.Depth.MaxDepth = 4
		p.Patterns.Patterns = append(p.Patterns.Patterns,
			`^(Abstract|Introduction|Related Work|Methods?|Results|Discussion|Conclusions?|References)$`)
		p.Spatial = Spatial{
			MinLineHeight:                  9.0,
			VerticalGapThresholdMultiplier: 1.2,
			HorizontalAlignmentTolerance:   8.0,
			LineGroupingTolerance:          0.25,
			Sections:                       Bounds{Min: 50, Max: 500},
			Paragraphs:                     Bounds{Min: 200, Max: 12000},
		}
		return p
	},
	LegalContract: func() Parsing {
		p := generic()
		p.DocumentType = LegalContract
		p.Headers.LargeThreshold, p.Headers.MediumThreshold, p.Headers.SmallThreshold = 0.6, 0.3, 0.1
		p.Headers.MinHeaderSize = 9.0
		p.Patterns.Patterns = append(p.Patterns.Patterns,
			`^(WHEREAS|NOW, THEREFORE|IN WITNESS WHEREOF)\b`,
			`^§\s*\d+`)
		p.Spatial = Spatial{
			MinLineHeight:                  8.5,
			VerticalGapThresholdMultiplier: 0.6,
			HorizontalAlignmentTolerance:   12.0,
			LineGroupingTolerance:          0.2,
			Sections:                       Bounds{Min: 30, Max: 200},
			Paragraphs:                     Bounds{Min: 50, Max: 5000},
		}
		return p
	},
	TechnicalManual: func() Parsing {
		p := generic()
		p.DocumentType = TechnicalManual
		p.Headers.LargeThreshold, p.Headers.MediumThreshold, p.Headers.SmallThreshold = 0.6, 0.25, 0.1
		p.Headers.MinHeaderSize = 8.0
		p.Depth.MaxDepth = 6
		p.Patterns.Patterns = append([]string{`^\d+(\.\d+)+\s+\S`}, p.Patterns.Patterns...)
		p.Patterns.Patterns = append(p.Patterns.Patterns, `^(Appendix|Troubleshooting|Specifications)\b`)
		p.Spatial.VerticalGapThresholdMultiplier = 0.9
		p.Spatial.Paragraphs = Bounds{Min: 60, Max: 6000}
		return p
	},
	BusinessReport: func() Parsing {
		p := generic()
		p.DocumentType = BusinessReport
		p.Headers.LargeThreshold, p.Headers.MediumThreshold, p.Headers.SmallThreshold = 0.7, 0.35, 0.12
		p.Headers.MinHeaderSize = 9.0
		p.Depth.MaxDepth = 4
		p.Patterns.Patterns = append(p.Patterns.Patterns,
			`^(Executive Summary|Key Findings|Recommendations|Outlook)$`,
			`^Q[1-4]\s+\d{4}\b`)
		p.Spatial.Paragraphs = Bounds{Min: 80, Max: 6000}
		return p
	},
}

// DocumentTypes returns the known preset names in sorted order.
func DocumentTypes() []DocumentType {
	out := make([]DocumentType, 0, len(presets))
	for t := range presets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Preset returns the unvalidated preset for a document type.
func Preset(t DocumentType) (Parsing, error) {
	fn, ok := presets[t]
	if !ok {
		return Parsing{}, &Error{Field: "document_type", Reason: fmt.Sprintf("unknown document type %q", t)}
	}
	return fn(), nil
}

// Resolve builds the validated parameter set for a document type with
// optional file overrides applied on top of the preset.
func Resolve(t DocumentType, f *File) (Parsing, error) {
	if f != nil && f.DocumentType != "" && t == "" {
		t = f.DocumentType
	}
	if t == "" {
		t = Generic
	}
	p, err := Preset(t)
	if err != nil {
		return Parsing{}, err
	}
	if f != nil {
		f.apply(&p)
	}
	if err := p.Validate(); err != nil {
		return Parsing{}, err
	}
	p.compiled = make([]*regexp.Regexp, len(p.Patterns.Patterns))
	for i, src := range p.Patterns.Patterns {
		p.compiled[i] = regexp.MustCompile(src) // checked by Validate
	}
	return p, nil
}

// MustResolve is Resolve for presets that are known to be valid.
func MustResolve(t DocumentType) Parsing {
	p, err := Resolve(t, nil)
	if err != nil {
		panic(err)
	}
	return p
}

// CompiledPatterns returns the section patterns in priority order.
func (p Parsing) CompiledPatterns() []*regexp.Regexp {
	return slices.Clone(p.compiled)
}

// EnabledRules returns the names of enabled pipeline entries in order.
func (p Parsing) EnabledRules() []string {
	var out []string
	for _, r := range p.Pipeline {
		if r.Enabled {
			out = append(out, r.Name)
		}
	}
	return out
}

// ClampLevel applies depth enforcement to a level.
func (p Parsing) ClampLevel(level int) int {
	if p.Depth.EnforceMaxDepth && level > p.Depth.MaxDepth {
		return p.Depth.MaxDepth
	}
	return level
}

// WithPipeline returns a copy using the given rule sequence, validated.
func (p Parsing) WithPipeline(specs []RuleSpec) (Parsing, error) {
	p.Pipeline = slices.Clone(specs)
	if err := p.Validate(); err != nil {
		return Parsing{}, err
	}
	return p, nil
}

// MinimalOnly returns a copy whose pipeline is the identity rule.
func (p Parsing) MinimalOnly() Parsing {
	p.Pipeline = []RuleSpec{{Name: RuleMinimalParse, Enabled: true}}
	return p
}

// Fingerprint identifies the parameter set; equal values give equal
// fingerprints.
func (p Parsing) Fingerprint() string {
	data, err := json.Marshal(p)
	if err != nil {
		// Parsing holds only plain values.
		panic(err)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
