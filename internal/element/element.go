package element

import (
	"sort"
	"strings"
)

// BBox is an axis-aligned box in document points. Y grows downward.
type BBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Width of the box.
func (b BBox) Width() float64 { return b.Right - b.Left }

// Height of the box.
func (b BBox) Height() float64 { return b.Bottom - b.Top }

// IsZero reports whether the box was never set.
func (b BBox) IsZero() bool { return b == BBox{} }

// Union returns the smallest box containing both. A zero box is the identity.
func (b BBox) Union(o BBox) BBox {
	if b.IsZero() {
		return o
	}
	if o.IsZero() {
		return b
	}
	return BBox{
		Left:   min(b.Left, o.Left),
		Top:    min(b.Top, o.Top),
		Right:  max(b.Right, o.Right),
		Bottom: max(b.Bottom, o.Bottom),
	}
}

// Contains reports whether o lies inside b (inclusive).
func (b BBox) Contains(o BBox) bool {
	if o.IsZero() {
		return true
	}
	return o.Left >= b.Left && o.Top >= b.Top && o.Right <= b.Right && o.Bottom <= b.Bottom
}

// VerticalOverlap returns the height shared by the two boxes (0 if disjoint).
func (b BBox) VerticalOverlap(o BBox) float64 {
	lo := max(b.Top, o.Top)
	hi := min(b.Bottom, o.Bottom)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// Key orders elements by page, then top, then left.
type Key struct {
	Page int     `json:"page"`
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

// Less reports whether k precedes o in reading order.
func (k Key) Less(o Key) bool {
	if k.Page != o.Page {
		return k.Page < o.Page
	}
	if k.Top != o.Top {
		return k.Top < o.Top
	}
	return k.Left < o.Left
}

// TextElement is a positioned fragment from the extraction boundary.
// It is read-only once produced.
type TextElement struct {
	Text     string  `json:"text"`
	Page     int     `json:"page"`
	Box      BBox    `json:"bounding_box"`
	FontName string  `json:"font_name,omitempty"`
	FontSize float64 `json:"font_size"`
	Bold     bool    `json:"bold,omitempty"`
}

// Key returns the reading-order key of the fragment.
func (t TextElement) Key() Key {
	return Key{Page: t.Page, Top: t.Box.Top, Left: t.Box.Left}
}

// HasFont reports whether font data is available for the fragment.
func (t TextElement) HasFont() bool { return t.FontSize > 0 }

// LineHeight is the fragment's own line height.
func (t TextElement) LineHeight() float64 {
	if h := t.Box.Height(); h > 0 {
		return h
	}
	return t.FontSize
}

// SortTextElements returns a copy sorted stably by reading order.
func SortTextElements(in []TextElement) []TextElement {
	out := make([]TextElement, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key().Less(out[j].Key()) })
	return out
}

// Type is the structural role of a parsed element or graph node.
type Type string

const (
	TypeDocument  Type = "Document"
	TypeSection   Type = "Section"
	TypeParagraph Type = "Paragraph"
	TypeList      Type = "List"
	TypeListItem  Type = "ListItem"
	TypeTable     Type = "Table"
	TypeTableRow  Type = "TableRow"
	TypeTableCell Type = "TableCell"
)

// Tier is the font-size bucket of a header.
type Tier int

const (
	TierNone Tier = iota
	TierSmall
	TierMedium
	TierLarge
)

func (t Tier) String() string {
	switch t {
	case TierSmall:
		return "small"
	case TierMedium:
		return "medium"
	case TierLarge:
		return "large"
	}
	return "none"
}

// ParsedElement is one unit of a pipeline stage's output. Stages build new
// values rather than editing their input.
type ParsedElement struct {
	Type         Type          `json:"type"`
	Level        int           `json:"level"`
	Box          BBox          `json:"bounding_box"`
	Constituents []TextElement `json:"constituents"`
	Text         string        `json:"text"`
	Header       bool          `json:"header,omitempty"`
	Tier         Tier          `json:"tier,omitempty"`
}

// FromText wraps a single fragment.
func FromText(t TextElement, level int) ParsedElement {
	return ParsedElement{
		Type:         TypeParagraph,
		Level:        level,
		Box:          t.Box,
		Constituents: []TextElement{t},
		Text:         CollapseSpace(t.Text),
	}
}

// Merge combines elements into one, keeping the first element's type,
// level and header flags. Inputs must be in reading order.
func Merge(parts ...ParsedElement) ParsedElement {
	if len(parts) == 0 {
		return ParsedElement{}
	}
	out := parts[0]
	var cons []TextElement
	var texts []string
	var box BBox
	for _, p := range parts {
		cons = append(cons, p.Constituents...)
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
		box = box.Union(p.Box)
		if p.Header {
			out.Header = true
			out.Tier = max(out.Tier, p.Tier)
		}
	}
	out.Constituents = cons
	out.Text = strings.Join(texts, " ")
	out.Box = box
	return out
}

// Key is the reading-order key of the first constituent.
func (p ParsedElement) Key() Key {
	if len(p.Constituents) == 0 {
		return Key{Top: p.Box.Top, Left: p.Box.Left}
	}
	return p.Constituents[0].Key()
}

// First returns the first constituent.
func (p ParsedElement) First() TextElement {
	if len(p.Constituents) == 0 {
		return TextElement{}
	}
	return p.Constituents[0]
}

// Last returns the last constituent.
func (p ParsedElement) Last() TextElement {
	if len(p.Constituents) == 0 {
		return TextElement{}
	}
	return p.Constituents[len(p.Constituents)-1]
}

// FontSize of the first constituent; 0 when unavailable.
func (p ParsedElement) FontSize() float64 { return p.First().FontSize }

// HasFont reports whether the element carries font data.
func (p ParsedElement) HasFont() bool { return p.First().HasFont() }

// Bold reports whether the first constituent is bold.
func (p ParsedElement) Bold() bool { return p.First().Bold }

// Pages returns the first and last page among constituents.
func (p ParsedElement) Pages() (int, int) {
	if len(p.Constituents) == 0 {
		return 0, 0
	}
	lo, hi := p.Constituents[0].Page, p.Constituents[0].Page
	for _, c := range p.Constituents[1:] {
		lo = min(lo, c.Page)
		hi = max(hi, c.Page)
	}
	return lo, hi
}

// Len is the text length in characters.
func (p ParsedElement) Len() int { return len([]rune(p.Text)) }

// With returns a copy with a new type and level.
func (p ParsedElement) With(t Type, level int) ParsedElement {
	p.Type = t
	p.Level = level
	return p
}

// CollapseSpace trims and folds runs of whitespace into single spaces.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
