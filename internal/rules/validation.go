package rules

import (
	"context"
	"slices"
	"strings"

	"github.com/dgallion1/docgraph/internal/config"
	"github.com/dgallion1/docgraph/internal/element"
)

// Validation cleans up the sequence before assembly: empty elements are
// dropped, levels are made contiguous, very short fragments are folded into
// a neighbour and reading order is checked. Running it twice changes
// nothing.
type Validation struct {
	cfg config.Parsing
}

func NewValidation(cfg config.Parsing) *Validation {
	return &Validation{cfg: cfg}
}

func (r *Validation) Name() string { return config.RuleValidation }

func (r *Validation) Apply(ctx context.Context, in []element.ParsedElement) ([]element.ParsedElement, error) {
	out := make([]element.ParsedElement, 0, len(in))
	for _, e := range in {
		if strings.TrimSpace(e.Text) != "" {
			out = append(out, e)
		}
	}
	out = r.renumber(out)
	out = r.mergeShort(out)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Merging can remove the only element at a level.
	out = r.renumber(out)

	for i := 1; i < len(out); i++ {
		prev, cur := out[i-1].Key(), out[i].Key()
		if cur.Less(prev) {
			return nil, &OrderingError{Index: i, Prev: prev, Key: cur}
		}
	}
	return out, nil
}

// renumber maps the distinct levels present onto consecutive levels from
// the starting level, keeping their relative order.
func (r *Validation) renumber(in []element.ParsedElement) []element.ParsedElement {
	var levels []int
	for _, e := range in {
		levels = append(levels, e.Level)
	}
	slices.Sort(levels)
	levels = slices.Compact(levels)

	rank := make(map[int]int, len(levels))
	for i, l := range levels {
		rank[l] = r.cfg.ClampLevel(r.cfg.Depth.StartingSectionLevel + i)
	}
	out := make([]element.ParsedElement, len(in))
	for i, e := range in {
		out[i] = e.With(e.Type, rank[e.Level])
	}
	return out
}

func (r *Validation) mergeShort(in []element.ParsedElement) []element.ParsedElement {
	out := slices.Clone(in)
	minLen := r.cfg.Validation.MinTextLength
	for changed := true; changed; {
		changed = false
		for i := range out {
			if out[i].Len() >= minLen {
				continue
			}
			if i > 0 && mergeable(out[i-1], out[i]) {
				out[i-1] = element.Merge(out[i-1], out[i])
				out = slices.Delete(out, i, i+1)
				changed = true
				break
			}
			if i+1 < len(out) && mergeable(out[i], out[i+1]) {
				out[i] = element.Merge(out[i], out[i+1])
				out = slices.Delete(out, i+1, i+2)
				changed = true
				break
			}
		}
	}
	return out
}

func mergeable(a, b element.ParsedElement) bool {
	if a.Level != b.Level || a.Type != b.Type {
		return false
	}
	if a.Type != element.TypeParagraph && a.Type != element.TypeSection {
		return false
	}
	return !sideBySide(a, b, a.Box, b.Box)
}
