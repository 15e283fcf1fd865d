package rules

import (
	"context"
	"regexp"

	"github.com/dgallion1/docgraph/internal/config"
	"github.com/dgallion1/docgraph/internal/element"
)

// PatternDetection promotes paragraphs whose text matches one of the
// configured section patterns. Patterns are tried in order and the first
// match wins.
//
// A promoted element keeps the level it already has, which after
// SectionDetection is the font-derived one. Without font data it takes the
// level of the nearest preceding section instead.
type PatternDetection struct {
	cfg      config.Parsing
	patterns []*regexp.Regexp
}

func NewPatternDetection(cfg config.Parsing) *PatternDetection {
	return &PatternDetection{cfg: cfg, patterns: cfg.CompiledPatterns()}
}

func (r *PatternDetection) Name() string { return config.RulePatternSectionDetection }

// Match returns the index of the first pattern matching text, or -1.
func (r *PatternDetection) Match(text string) int {
	for i, re := range r.patterns {
		if re.MatchString(text) {
			return i
		}
	}
	return -1
}

func (r *PatternDetection) Apply(ctx context.Context, in []element.ParsedElement) ([]element.ParsedElement, error) {
	promote := make([]bool, len(in))
	err := forEachBlock(ctx, len(in), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			promote[i] = r.eligible(in[i])
		}
	})
	if err != nil {
		return nil, err
	}

	out := make([]element.ParsedElement, len(in))
	lastSection := 0
	for i, e := range in {
		if e.Type == element.TypeSection {
			lastSection = e.Level
			out[i] = e
			continue
		}
		if !promote[i] {
			out[i] = e
			continue
		}
		level := e.Level
		if !e.HasFont() {
			level = r.cfg.Depth.StartingSectionLevel
			if lastSection > 0 {
				level = lastSection
			}
		}
		level = r.cfg.ClampLevel(level)
		s := e.With(element.TypeSection, level)
		s.Header = true
		out[i] = s
		lastSection = level
	}
	return assignContentLevels(out, r.cfg), nil
}

func (r *PatternDetection) eligible(e element.ParsedElement) bool {
	if e.Type != element.TypeParagraph {
		return false
	}
	if r.Match(e.Text) < 0 {
		return false
	}
	if !r.cfg.Patterns.RespectFontConstraints {
		return true
	}
	return e.HasFont() && e.FontSize() >= r.cfg.Headers.MinHeaderSize
}
