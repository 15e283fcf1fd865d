package config

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

// Error is a configuration problem. It is reported before any document is
// processed.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// IsConfigError reports whether err contains a configuration error.
func IsConfigError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// Validate checks every parameter and returns all problems joined.
func (p Parsing) Validate() error {
	var errs []error
	bad := func(field, format string, args ...any) {
		errs = append(errs, &Error{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	h := p.Headers
	for _, th := range []struct {
		name string
		v    float64
	}{
		{"large_header_threshold", h.LargeThreshold},
		{"medium_header_threshold", h.MediumThreshold},
		{"small_header_threshold", h.SmallThreshold},
	} {
		if th.v <= 0 || th.v > 10 {
			bad(th.name, "must be in (0, 10], got %g", th.v)
		}
	}
	if h.SmallThreshold > h.MediumThreshold || h.MediumThreshold > h.LargeThreshold {
		bad("header_thresholds", "must satisfy small <= medium <= large, got %g/%g/%g",
			h.SmallThreshold, h.MediumThreshold, h.LargeThreshold)
	}
	if h.MinHeaderSize < 0 || h.MinHeaderSize > 200 {
		bad("min_header_size", "must be in [0, 200], got %g", h.MinHeaderSize)
	}

	d := p.Depth
	if d.MaxDepth < 1 || d.MaxDepth > 20 {
		bad("max_depth", "must be in [1, 20], got %d", d.MaxDepth)
	}
	if d.StartingSectionLevel < 1 || d.StartingSectionLevel > d.MaxDepth {
		bad("starting_section_level", "must be in [1, max_depth], got %d", d.StartingSectionLevel)
	}
	if d.FontSizeTolerance < 0 || d.FontSizeTolerance >= 10 {
		bad("font_size_tolerance", "must be in [0, 10), got %g", d.FontSizeTolerance)
	}

	for i, src := range p.Patterns.Patterns {
		if src == "" {
			bad(fmt.Sprintf("patterns[%d]", i), "empty pattern")
			continue
		}
		if _, err := regexp.Compile(src); err != nil {
			bad(fmt.Sprintf("patterns[%d]", i), "does not compile: %v", err)
		}
	}

	s := p.Spatial
	if s.MinLineHeight <= 0 || s.MinLineHeight > 100 {
		bad("min_line_height", "must be in (0, 100], got %g", s.MinLineHeight)
	}
	if s.VerticalGapThresholdMultiplier <= 0 || s.VerticalGapThresholdMultiplier > 10 {
		bad("vertical_gap_threshold_multiplier", "must be in (0, 10], got %g", s.VerticalGapThresholdMultiplier)
	}
	if s.HorizontalAlignmentTolerance < 0 || s.HorizontalAlignmentTolerance > 500 {
		bad("horizontal_alignment_tolerance", "must be in [0, 500], got %g", s.HorizontalAlignmentTolerance)
	}
	if s.LineGroupingTolerance < 0 || s.LineGroupingTolerance > 1 {
		bad("line_grouping_tolerance", "must be in [0, 1], got %g", s.LineGroupingTolerance)
	}
	for _, b := range []struct {
		name string
		v    Bounds
	}{{"sections", s.Sections}, {"paragraphs", s.Paragraphs}} {
		if b.v.Min < 0 {
			bad(b.name+".min_segment_size", "must not be negative, got %d", b.v.Min)
		}
		if b.v.Max <= 0 {
			bad(b.name+".max_segment_size", "must be positive, got %d", b.v.Max)
		}
		if b.v.Max > 0 && b.v.Min > b.v.Max {
			bad(b.name, "min_segment_size %d exceeds max_segment_size %d", b.v.Min, b.v.Max)
		}
	}

	if p.Validation.MinTextLength < 0 {
		bad("min_text_length", "must not be negative, got %d", p.Validation.MinTextLength)
	}

	a := p.Assembly
	if a.ListIndentTolerance < 0 {
		bad("list_indent_tolerance", "must not be negative, got %g", a.ListIndentTolerance)
	}
	if a.ColumnTolerance < 0 {
		bad("column_tolerance", "must not be negative, got %g", a.ColumnTolerance)
	}
	if a.TitlePlaceholder == "" {
		bad("title_placeholder", "must not be empty")
	}

	if len(p.Pipeline) == 0 {
		bad("pipeline", "must list at least one rule")
	}
	seen := map[string]bool{}
	for i, r := range p.Pipeline {
		if !slices.Contains(KnownRules, r.Name) {
			bad(fmt.Sprintf("pipeline[%d]", i), "unknown rule %q", r.Name)
			continue
		}
		if seen[r.Name] {
			bad(fmt.Sprintf("pipeline[%d]", i), "duplicate rule %q", r.Name)
		}
		seen[r.Name] = true
	}

	return errors.Join(errs...)
}
