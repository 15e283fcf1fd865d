package rules

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docgraph/internal/element"
)

// IssueKind classifies a structural problem found by Validation.
type IssueKind string

const (
	IssueHierarchyJump     IssueKind = "hierarchy_jump"
	IssueOverDepth         IssueKind = "over_depth"
	IssueSuspiciousSection IssueKind = "suspicious_section"
	IssueReadingOrder      IssueKind = "reading_order"
	IssuePage              IssueKind = "page_inconsistency"
	IssueInvalidPosition   IssueKind = "invalid_position"
)

const (
	pageJumpLimit   = 5
	minSectionRunes = 3
	maxSectionRunes = 200
	previewRunes    = 50
)

// Issue is one finding. Position indexes the sequence Validation received.
type Issue struct {
	Kind     IssueKind `json:"kind"`
	Position int       `json:"position"`
	Detail   string    `json:"detail"`
	Text     string    `json:"text,omitempty"`
}

// Report describes the structural quality of the sequence that reached
// Validation, before any repair.
type Report struct {
	TotalElements int     `json:"total_elements"`
	QualityScore  float64 `json:"quality_score"`
	Issues        []Issue `json:"issues"`
}

// Inspector is implemented by rules that can describe their input without
// changing it.
type Inspector interface {
	Inspect(in []element.ParsedElement) *Report
}

// Inspect checks levels, pages, boxes and section text. The score is one
// minus issues per element, floored at zero; an empty sequence scores 1.
func (r *Validation) Inspect(in []element.ParsedElement) *Report {
	rep := &Report{TotalElements: len(in), Issues: []Issue{}}
	add := func(kind IssueKind, i int, text, format string, args ...any) {
		rep.Issues = append(rep.Issues, Issue{Kind: kind, Position: i, Detail: fmt.Sprintf(format, args...), Text: text})
	}

	for i, e := range in {
		first, _ := e.Pages()
		if e.Level > r.cfg.Depth.MaxDepth {
			add(IssueOverDepth, i, preview(e.Text), "level %d exceeds max depth %d", e.Level, r.cfg.Depth.MaxDepth)
		}
		if b := e.Box; b.Left < 0 || b.Top < 0 || b.Width() <= 0 || b.Height() <= 0 {
			add(IssueInvalidPosition, i, "", "box left=%.1f top=%.1f width=%.1f height=%.1f", b.Left, b.Top, b.Width(), b.Height())
		}
		if first < 1 {
			add(IssuePage, i, "", "page %d is before the first page", first)
		}
		if e.Type == element.TypeSection {
			text := strings.TrimSpace(e.Text)
			switch n := len([]rune(text)); {
			case n < minSectionRunes:
				add(IssueSuspiciousSection, i, text, "section text shorter than %d characters", minSectionRunes)
			case n > maxSectionRunes:
				add(IssueSuspiciousSection, i, preview(text), "section text longer than %d characters", maxSectionRunes)
			}
		}

		if i == 0 {
			continue
		}
		prev := in[i-1]
		if e.Level > prev.Level+1 {
			add(IssueHierarchyJump, i, preview(e.Text), "level %d follows level %d", e.Level, prev.Level)
		}
		if _, prevLast := prev.Pages(); first > prevLast+pageJumpLimit {
			add(IssuePage, i, "", "page jumps from %d to %d", prevLast, first)
		}
		if e.Key().Less(prev.Key()) {
			add(IssueReadingOrder, i, preview(e.Text), "starts before the element preceding it")
		}
	}

	rep.QualityScore = 1
	if len(in) > 0 {
		rep.QualityScore = max(0, 1-float64(len(rep.Issues))/float64(len(in)))
	}
	return rep
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewRunes {
		return s
	}
	return string(r[:previewRunes]) + "..."
}
