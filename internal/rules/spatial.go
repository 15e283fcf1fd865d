package rules

import (
	"context"
	"slices"

	"github.com/dgallion1/docgraph/internal/chunker"
	"github.com/dgallion1/docgraph/internal/config"
	"github.com/dgallion1/docgraph/internal/element"
)

// SpatialClustering joins neighbouring fragments into paragraphs, list items
// and multi-line headers, then enforces the configured segment sizes.
type SpatialClustering struct {
	cfg config.Parsing
}

func NewSpatialClustering(cfg config.Parsing) *SpatialClustering {
	return &SpatialClustering{cfg: cfg}
}

func (r *SpatialClustering) Name() string { return config.RuleSpatialClustering }

type clusterKind int

const (
	kindBody clusterKind = iota
	kindHeader
	kindList
)

type cluster struct {
	members   []element.ParsedElement
	kind      clusterKind
	lineStart element.TextElement
	cell      bool
}

func (c cluster) first() element.ParsedElement { return c.members[0] }
func (c cluster) last() element.ParsedElement  { return c.members[len(c.members)-1] }

func (c cluster) box() element.BBox {
	var b element.BBox
	for _, m := range c.members {
		b = b.Union(m.Box)
	}
	return b
}

// size is the length of the joined text.
func (c cluster) size() int {
	n := 0
	for i, m := range c.members {
		if i > 0 {
			n++
		}
		n += m.Len()
	}
	return n
}

func (c cluster) element() element.ParsedElement {
	e := element.Merge(c.members...)
	switch c.kind {
	case kindHeader:
		e.Type = element.TypeSection
	case kindList:
		e.Type = element.TypeListItem
	}
	return e
}

func kindOf(e element.ParsedElement) clusterKind {
	switch {
	case e.Type == element.TypeSection:
		return kindHeader
	case e.Type == element.TypeListItem, element.Marker(e.Text) != element.MarkerNone:
		return kindList
	}
	return kindBody
}

func (r *SpatialClustering) Apply(ctx context.Context, in []element.ParsedElement) ([]element.ParsedElement, error) {
	clusters := r.cluster(in)
	markCells(clusters)

	merged := chunker.MergeSmall(clusters, r.small, r.join)

	out := make([]element.ParsedElement, 0, len(merged))
	for _, c := range merged {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		limit := r.bounds(c.kind).Max
		for _, part := range chunker.Split(c.members, limit, element.ParsedElement.Len, 1) {
			out = append(out, cluster{members: part, kind: c.kind}.element())
		}
	}
	return out, nil
}

func (r *SpatialClustering) cluster(in []element.ParsedElement) []cluster {
	var out []cluster
	for _, e := range in {
		if n := len(out); n > 0 {
			c := &out[n-1]
			if ok, newLine := r.continues(*c, e); ok {
				c.members = append(c.members, e)
				if newLine {
					c.lineStart = e.First()
				}
				continue
			}
		}
		out = append(out, cluster{
			members:   []element.ParsedElement{e},
			kind:      kindOf(e),
			lineStart: e.First(),
		})
	}
	return out
}

// continues reports whether e extends cluster c, and whether it does so by
// starting a new line.
func (r *SpatialClustering) continues(c cluster, e element.ParsedElement) (ok, newLine bool) {
	p := c.last()
	prev, next := p.Last(), e.First()
	if prev.Page != next.Page {
		return false, false
	}
	if p.Type != e.Type || p.Level != e.Level || p.Header != e.Header {
		return false, false
	}
	if kindOf(e) == kindList {
		return false, false
	}

	s := r.cfg.Spatial
	lh := max(prev.LineHeight(), next.LineHeight(), s.MinLineHeight)
	if next.Box.Top-prev.Box.Bottom >= s.VerticalGapThresholdMultiplier*lh {
		return false, false
	}

	tol := s.HorizontalAlignmentTolerance
	if abs(next.Box.Top-prev.Box.Top) <= s.LineGroupingTolerance*lh && next.Box.Left >= prev.Box.Left {
		return next.Box.Left-prev.Box.Right <= tol, false
	}

	left := next.Box.Left
	firstLeft := c.first().First().Box.Left
	if abs(left-firstLeft) <= tol || abs(left-c.lineStart.Box.Left) <= tol {
		return true, true
	}
	// Hanging indent under a list marker.
	if c.kind == kindList && left >= firstLeft-tol && left <= firstLeft+3*tol {
		return true, true
	}
	return false, false
}

// markCells flags clusters that sit beside a neighbouring cluster on the
// same line.
func markCells(cs []cluster) {
	for i := range cs {
		for _, j := range []int{i - 1, i + 1} {
			if j < 0 || j >= len(cs) {
				continue
			}
			if sideBySide(cs[i].first(), cs[j].first(), cs[i].box(), cs[j].box()) {
				cs[i].cell = true
			}
		}
	}
}

func sideBySide(a, b element.ParsedElement, ab, bb element.BBox) bool {
	if a.First().Page != b.First().Page {
		return false
	}
	if ab.VerticalOverlap(bb) <= 0 {
		return false
	}
	return ab.Right <= bb.Left || bb.Right <= ab.Left
}

func (r *SpatialClustering) bounds(k clusterKind) config.Bounds {
	if k == kindHeader {
		return r.cfg.Spatial.Sections
	}
	return r.cfg.Spatial.Paragraphs
}

func (r *SpatialClustering) small(c cluster) bool {
	return !c.cell && c.size() < r.bounds(c.kind).Min
}

func (r *SpatialClustering) join(a, b cluster) (cluster, bool) {
	if b.cell || a.kind != b.kind || a.kind == kindList {
		return cluster{}, false
	}
	if a.first().Level != b.first().Level {
		return cluster{}, false
	}
	members := slices.Concat(a.members, b.members)
	return cluster{members: members, kind: a.kind, lineStart: b.lineStart}, true
}
