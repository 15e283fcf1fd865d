package graph

import (
	"sort"

	"github.com/dgallion1/docgraph/internal/chunker"
	"github.com/dgallion1/docgraph/internal/element"
	"github.com/dgallion1/docgraph/internal/rules"
)

// TokenStats aggregates estimated token counts over a set of nodes.
type TokenStats struct {
	Count int     `json:"count"`
	Total int     `json:"total"`
	Min   int     `json:"min"`
	Max   int     `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
}

// Analytics profiles the shape of a document graph.
type Analytics struct {
	NodeCount    int                         `json:"node_count"`
	MaxDepth     int                         `json:"max_depth"`
	Types        map[element.Type]int        `json:"node_types"`
	Depths       map[int]int                 `json:"depth_distribution"`
	Tokens       TokenStats                  `json:"tokens"`
	TokensByType map[element.Type]TokenStats `json:"tokens_by_type"`
	Validation   *rules.Report               `json:"validation,omitempty"`
}

// Analyze profiles the document and attaches its validation report.
func (d *Document) Analyze() *Analytics {
	a := Profile(d.Root)
	a.Validation = d.Validation
	return a
}

// Profile walks the graph below the root.
func Profile(root *Node) *Analytics {
	a := &Analytics{
		Types:        map[element.Type]int{},
		Depths:       map[int]int{},
		TokensByType: map[element.Type]TokenStats{},
	}
	var all []int
	byType := map[element.Type][]int{}
	root.Walk(func(n *Node, depth int) bool {
		if n == root {
			return true
		}
		a.NodeCount++
		a.MaxDepth = max(a.MaxDepth, depth)
		a.Types[n.Type]++
		a.Depths[depth]++
		if n.Text != "" {
			tok := chunker.EstimateTokens(n.Text)
			all = append(all, tok)
			byType[n.Type] = append(byType[n.Type], tok)
		}
		return true
	})
	a.Tokens = tokenStats(all)
	for t, v := range byType {
		a.TokensByType[t] = tokenStats(v)
	}
	return a
}

func tokenStats(values []int) TokenStats {
	if len(values) == 0 {
		return TokenStats{}
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	total := 0
	for _, v := range sorted {
		total += v
	}
	return TokenStats{
		Count: len(sorted),
		Total: total,
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Avg:   float64(total) / float64(len(sorted)),
		P50:   percentile(sorted, 50),
		P95:   percentile(sorted, 95),
	}
}

// percentile interpolates linearly between the closest ranks.
func percentile(sortedValues []int, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}
	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + (hi-lo)*weight
}
