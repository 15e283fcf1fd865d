package rules

import (
	"context"
	"sort"

	"github.com/dgallion1/docgraph/internal/config"
	"github.com/dgallion1/docgraph/internal/element"
)

// SectionDetection promotes elements whose font is noticeably larger (or
// bold) than the document's body text, and assigns levels from the order in
// which distinct header sizes appear.
type SectionDetection struct {
	cfg config.Parsing
}

func NewSectionDetection(cfg config.Parsing) *SectionDetection {
	return &SectionDetection{cfg: cfg}
}

func (r *SectionDetection) Name() string { return config.RuleSectionDetection }

type headerClass struct {
	header bool
	tier   element.Tier
}

func (r *SectionDetection) Apply(ctx context.Context, in []element.ParsedElement) ([]element.ParsedElement, error) {
	median := MedianFontSize(in)

	classes := make([]headerClass, len(in))
	err := forEachBlock(ctx, len(in), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			classes[i] = r.classify(in[i], median)
		}
	})
	if err != nil {
		return nil, err
	}

	tol := r.cfg.Depth.FontSizeTolerance
	var tiers []float64
	out := make([]element.ParsedElement, len(in))
	for i, e := range in {
		c := classes[i]
		if !c.header {
			out[i] = e
			continue
		}
		size := e.FontSize()
		larger, known := 0, false
		for _, s := range tiers {
			switch {
			case abs(s-size) <= tol:
				known = true
			case s > size:
				larger++
			}
		}
		if !known {
			tiers = append(tiers, size)
		}
		level := r.cfg.ClampLevel(r.cfg.Depth.StartingSectionLevel + larger)
		h := e.With(element.TypeSection, level)
		h.Header = true
		h.Tier = c.tier
		out[i] = h
	}
	return assignContentLevels(out, r.cfg), nil
}

func (r *SectionDetection) classify(e element.ParsedElement, median float64) headerClass {
	if !e.HasFont() || median <= 0 {
		return headerClass{}
	}
	h := r.cfg.Headers
	size := e.FontSize()
	if size < h.MinHeaderSize {
		return headerClass{}
	}

	ratio := (size - median) / median
	tier := element.TierNone
	switch {
	case ratio >= h.LargeThreshold:
		tier = element.TierLarge
	case ratio >= h.MediumThreshold:
		tier = element.TierMedium
	case ratio >= h.SmallThreshold:
		tier = element.TierSmall
	}

	bold := false
	if h.UseBoldIndicator && e.Bold() {
		if h.BoldSizeStrict {
			bold = size > median
		} else {
			bold = true
		}
	}
	return headerClass{header: tier != element.TierNone || bold, tier: tier}
}

// MedianFontSize is the character-weighted lower median of fragment font
// sizes. Fragments without font data are ignored; 0 means no data.
func MedianFontSize(in []element.ParsedElement) float64 {
	type weighted struct {
		size float64
		n    int
	}
	var ws []weighted
	total := 0
	for _, e := range in {
		for _, c := range e.Constituents {
			if !c.HasFont() {
				continue
			}
			n := max(len([]rune(c.Text)), 1)
			ws = append(ws, weighted{c.FontSize, n})
			total += n
		}
	}
	if total == 0 {
		return 0
	}
	sort.SliceStable(ws, func(i, j int) bool { return ws[i].size < ws[j].size })
	half := (total + 1) / 2
	acc := 0
	for _, w := range ws {
		acc += w.n
		if acc >= half {
			return w.size
		}
	}
	return ws[len(ws)-1].size
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
