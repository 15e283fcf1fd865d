package parser

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/dgallion1/docgraph/internal/element"
)

// Formats without their own geometry are typeset onto US Letter pages so the
// rule pipeline sees the same kind of positioned fragments a PDF produces.
const (
	pageWidth  = 612.0
	pageHeight = 792.0
	margin     = 72.0

	bodySize    = 11.0
	lineSpacing = 1.2
	charWidth   = 0.5 // average glyph advance as a fraction of the font size
	listIndent  = 18.0
	cellPadding = 12.0

	regularFont = "Helvetica"
	boldFont    = "Helvetica-Bold"
)

// headingSizes maps heading levels 1..6 to font sizes.
var headingSizes = [...]float64{24, 18, 15, 13, 11, 11}

type style struct {
	size   float64
	bold   bool
	indent float64
	// hang indents wrapped lines relative to the first.
	hang float64
}

var bodyStyle = style{size: bodySize}

func headingStyle(level int) style {
	level = min(max(level, 1), len(headingSizes))
	return style{size: headingSizes[level-1], bold: true}
}

func listStyle(depth int) style {
	return style{size: bodySize, indent: float64(depth) * listIndent, hang: 12}
}

// layout places text blocks top to bottom, wrapping at the right margin and
// breaking pages when the bottom margin is reached.
type layout struct {
	page  int
	y     float64
	out   []element.TextElement
	dirty bool
}

func newLayout() *layout {
	return &layout{page: 1, y: margin}
}

func (l *layout) elements() []element.TextElement { return l.out }

func (l *layout) advance(h float64) {
	if l.y+h > pageHeight-margin {
		l.page++
		l.y = margin
	}
}

func (l *layout) emit(text string, left, width float64, st style) {
	font := regularFont
	if st.bold {
		font = boldFont
	}
	l.out = append(l.out, element.TextElement{
		Text:     text,
		Page:     l.page,
		Box:      element.BBox{Left: left, Top: l.y, Right: left + width, Bottom: l.y + st.size},
		FontName: font,
		FontSize: st.size,
		Bold:     st.bold,
	})
}

// block typesets one paragraph-like block followed by a blank line.
func (l *layout) block(text string, st style) {
	text = normalize(text)
	if text == "" {
		return
	}
	lh := st.size * lineSpacing
	for i, line := range wrap(text, st) {
		left := margin + st.indent
		if i > 0 {
			left += st.hang
		}
		l.advance(lh)
		l.emit(line, left, textWidth(line, st.size), st)
		l.y += lh
	}
	l.y += st.size
	l.dirty = true
}

// row typesets cells side by side in equal-width columns on one line.
func (l *layout) row(cells []string, st style) {
	if len(cells) == 0 {
		return
	}
	colWidth := (pageWidth - 2*margin) / float64(len(cells))
	lh := st.size * lineSpacing
	l.advance(lh)
	placed := false
	for i, c := range cells {
		c = normalize(c)
		if c == "" {
			continue
		}
		width := min(textWidth(c, st.size), max(colWidth-cellPadding, st.size))
		l.emit(c, margin+float64(i)*colWidth, width, st)
		placed = true
	}
	if placed {
		l.y += lh
		l.dirty = true
	}
}

// gap ends a run of rows.
func (l *layout) gap(st style) {
	if l.dirty {
		l.y += st.size
	}
}

func textWidth(s string, size float64) float64 {
	return float64(utf8.RuneCountInString(s)) * size * charWidth
}

func wrap(text string, st style) []string {
	avail := pageWidth - 2*margin - st.indent - st.hang
	maxRunes := max(int(avail/(st.size*charWidth)), 1)

	var lines []string
	var cur strings.Builder
	n := 0
	for _, w := range strings.Fields(text) {
		wn := utf8.RuneCountInString(w)
		if n > 0 && n+1+wn > maxRunes {
			lines = append(lines, cur.String())
			cur.Reset()
			n = 0
		}
		if n > 0 {
			cur.WriteByte(' ')
			n++
		}
		cur.WriteString(w)
		n += wn
	}
	if n > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// normalize collapses whitespace and applies Unicode NFC.
func normalize(s string) string {
	return norm.NFC.String(element.CollapseSpace(s))
}
