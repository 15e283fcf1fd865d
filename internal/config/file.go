package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is a YAML override document. Unset fields keep the preset value.
type File struct {
	DocumentType DocumentType `yaml:"document_type"`

	Headers struct {
		LargeThreshold   *float64 `yaml:"large_header_threshold"`
		MediumThreshold  *float64 `yaml:"medium_header_threshold"`
		SmallThreshold   *float64 `yaml:"small_header_threshold"`
		MinHeaderSize    *float64 `yaml:"min_header_size"`
		UseBoldIndicator *bool    `yaml:"use_bold_indicator"`
		BoldSizeStrict   *bool    `yaml:"bold_size_strict"`
	} `yaml:"section_and_hierarchy"`

	Depth struct {
		MaxDepth             *int     `yaml:"max_depth"`
		FontSizeTolerance    *float64 `yaml:"font_size_tolerance"`
		EnforceMaxDepth      *bool    `yaml:"enforce_max_depth"`
		StartingSectionLevel *int     `yaml:"starting_section_level"`
	} `yaml:"depth"`

	Patterns struct {
		Patterns               []string `yaml:"patterns"`
		RespectFontConstraints *bool    `yaml:"respect_font_constraints"`
	} `yaml:"pattern_detection"`

	Spatial struct {
		MinLineHeight                  *float64    `yaml:"min_line_height"`
		VerticalGapThresholdMultiplier *float64    `yaml:"vertical_gap_threshold_multiplier"`
		HorizontalAlignmentTolerance   *float64    `yaml:"horizontal_alignment_tolerance"`
		LineGroupingTolerance          *float64    `yaml:"line_grouping_tolerance"`
		Sections                       *fileBounds `yaml:"sections"`
		Paragraphs                     *fileBounds `yaml:"paragraphs"`
	} `yaml:"spatial_clustering"`

	Validation struct {
		MinTextLength *int `yaml:"min_text_length"`
	} `yaml:"validation"`

	Assembly struct {
		ListIndentTolerance *float64 `yaml:"list_indent_tolerance"`
		ColumnTolerance     *float64 `yaml:"column_tolerance"`
		TitlePlaceholder    *string  `yaml:"title_placeholder"`
	} `yaml:"assembly"`

	Pipeline []RuleSpec `yaml:"pipeline"`
}

type fileBounds struct {
	Min *int `yaml:"min_segment_size"`
	Max *int `yaml:"max_segment_size"`
}

// ParseFile decodes an override document. Unknown keys are errors.
func ParseFile(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, &Error{Field: "file", Reason: err.Error()}
	}
	if f.DocumentType != "" {
		if _, ok := presets[f.DocumentType]; !ok {
			return nil, &Error{Field: "document_type", Reason: fmt.Sprintf("unknown document type %q", f.DocumentType)}
		}
	}
	return &f, nil
}

// LoadFile reads an override document from disk.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parsing config: %w", err)
	}
	return ParseFile(bytes.NewReader(data))
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (f *File) apply(p *Parsing) {
	set(&p.Headers.LargeThreshold, f.Headers.LargeThreshold)
	set(&p.Headers.MediumThreshold, f.Headers.MediumThreshold)
	set(&p.Headers.SmallThreshold, f.Headers.SmallThreshold)
	set(&p.Headers.MinHeaderSize, f.Headers.MinHeaderSize)
	set(&p.Headers.UseBoldIndicator, f.Headers.UseBoldIndicator)
	set(&p.Headers.BoldSizeStrict, f.Headers.BoldSizeStrict)

	set(&p.Depth.MaxDepth, f.Depth.MaxDepth)
	set(&p.Depth.FontSizeTolerance, f.Depth.FontSizeTolerance)
	set(&p.Depth.EnforceMaxDepth, f.Depth.EnforceMaxDepth)
	set(&p.Depth.StartingSectionLevel, f.Depth.StartingSectionLevel)

	if f.Patterns.Patterns != nil {
		p.Patterns.Patterns = append([]string(nil), f.Patterns.Patterns...)
	}
	set(&p.Patterns.RespectFontConstraints, f.Patterns.RespectFontConstraints)

	set(&p.Spatial.MinLineHeight, f.Spatial.MinLineHeight)
	set(&p.Spatial.VerticalGapThresholdMultiplier, f.Spatial.VerticalGapThresholdMultiplier)
	set(&p.Spatial.HorizontalAlignmentTolerance, f.Spatial.HorizontalAlignmentTolerance)
	set(&p.Spatial.LineGroupingTolerance, f.Spatial.LineGroupingTolerance)
	if b := f.Spatial.Sections; b != nil {
		set(&p.Spatial.Sections.Min, b.Min)
		set(&p.Spatial.Sections.Max, b.Max)
	}
	if b := f.Spatial.Paragraphs; b != nil {
		set(&p.Spatial.Paragraphs.Min, b.Min)
		set(&p.Spatial.Paragraphs.Max, b.Max)
	}

	set(&p.Validation.MinTextLength, f.Validation.MinTextLength)

	set(&p.Assembly.ListIndentTolerance, f.Assembly.ListIndentTolerance)
	set(&p.Assembly.ColumnTolerance, f.Assembly.ColumnTolerance)
	set(&p.Assembly.TitlePlaceholder, f.Assembly.TitlePlaceholder)

	if f.Pipeline != nil {
		p.Pipeline = append([]RuleSpec(nil), f.Pipeline...)
	}
}
