package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"github.com/dgallion1/docgraph/internal/element"
)

// PDFExtractor handles PDF files. It reads glyph positions with the Go
// library first, then falls back to pdftotext's bounding-box output if
// enabled and available.
type PDFExtractor struct {
	FallbackPdftotext bool
}

func (p *PDFExtractor) Extract(r io.Reader, filename string) (*Extraction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	ex, err := extractPDFGlyphs(data)
	if err != nil && p.FallbackPdftotext {
		ex, err = extractPdftotext(data)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	return ex, nil
}

var errNoText = errors.New("pdf has no extractable text")

func extractPDFGlyphs(data []byte) (ex *Extraction, err error) {
	// The library panics on some malformed content streams.
	defer func() {
		if rec := recover(); rec != nil {
			ex, err = nil, fmt.Errorf("read pdf content: %v", rec)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	ex = &Extraction{}
	if info := reader.Trailer().Key("Info"); !info.IsNull() {
		ex.Title = normalize(info.Key("Title").Text())
	}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		height := mediaHeight(page.V)
		for _, run := range glyphRuns(page.Content().Text) {
			ex.Elements = append(ex.Elements, run.element(i, height))
		}
	}
	if len(ex.Elements) == 0 {
		return nil, errNoText
	}
	return ex, nil
}

// mediaHeight returns the page height, following inherited MediaBox entries.
func mediaHeight(v pdflib.Value) float64 {
	for p := v; !p.IsNull(); p = p.Key("Parent") {
		if box := p.Key("MediaBox"); box.Len() == 4 {
			return box.Index(3).Float64() - box.Index(1).Float64()
		}
	}
	return pageHeight
}

// run is a sequence of glyphs on one baseline in one font.
type run struct {
	font  string
	size  float64
	x, y  float64
	right float64
	text  strings.Builder
}

func (r *run) element(page int, height float64) element.TextElement {
	top := height - r.y - 0.75*r.size
	return element.TextElement{
		Text:     normalize(r.text.String()),
		Page:     page,
		Box:      element.BBox{Left: r.x, Top: top, Right: r.right, Bottom: top + r.size},
		FontName: r.font,
		FontSize: r.size,
		Bold:     boldFontName(r.font),
	}
}

// glyphRuns groups positioned glyphs into runs. A run breaks on a font
// change, a baseline change or a horizontal gap wide enough to be a column
// boundary.
func glyphRuns(glyphs []pdflib.Text) []*run {
	var out []*run
	var cur *run
	flush := func() {
		if cur != nil && strings.TrimSpace(cur.text.String()) != "" {
			out = append(out, cur)
		}
		cur = nil
	}
	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		font := fontName(g.Font)
		if cur != nil {
			gap := g.X - cur.right
			same := font == cur.font && abs(g.FontSize-cur.size) < 0.01 &&
				abs(g.Y-cur.y) < 0.3*cur.size && gap > -cur.size && gap < 1.5*cur.size
			if !same {
				flush()
			} else if gap > 0.2*cur.size && !strings.HasSuffix(cur.text.String(), " ") {
				cur.text.WriteByte(' ')
			}
		}
		if cur == nil {
			cur = &run{font: font, size: g.FontSize, x: g.X, y: g.Y}
		}
		cur.text.WriteString(g.S)
		cur.right = max(cur.right, g.X+g.W)
	}
	flush()
	return out
}

// fontName strips the subset tag from an embedded font name.
func fontName(name string) string {
	if i := strings.IndexByte(name, '+'); i == 6 {
		return name[i+1:]
	}
	return name
}

func boldFontName(name string) bool {
	n := strings.ToLower(name)
	for _, w := range []string{"bold", "black", "heavy", "semibold", "demi"} {
		if strings.Contains(n, w) {
			return true
		}
	}
	return false
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// extractPdftotext runs pdftotext -bbox-layout and reads one fragment per
// line. The tool reports no fonts, so the line height stands in for the
// font size.
func extractPdftotext(data []byte) (*Extraction, error) {
	tmp, err := os.CreateTemp("", "docgraph-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	out, err := exec.Command("pdftotext", "-bbox-layout", tmpPath, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return parseBBoxLayout(bytes.NewReader(out))
}

// parseBBoxLayout reads pdftotext's XHTML bounding-box output.
func parseBBoxLayout(r io.Reader) (*Extraction, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse pdftotext output: %w", err)
	}

	ex := &Extraction{}
	page := 0
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				ex.Title = normalize(textContent(n))
				return
			case "page":
				page++
			case "line":
				var words []string
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.ElementNode && c.Data == "word" {
						words = append(words, textContent(c))
					}
				}
				if text := normalize(strings.Join(words, " ")); text != "" {
					box := element.BBox{
						Left:   attrFloat(n, "xmin"),
						Top:    attrFloat(n, "ymin"),
						Right:  attrFloat(n, "xmax"),
						Bottom: attrFloat(n, "ymax"),
					}
					ex.Elements = append(ex.Elements, element.TextElement{
						Text:     text,
						Page:     max(page, 1),
						Box:      box,
						FontSize: box.Height(),
					})
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if len(ex.Elements) == 0 {
		return nil, errNoText
	}
	return ex, nil
}

// attrFloat reads a numeric attribute. The HTML parser lowercases names.
func attrFloat(n *html.Node, key string) float64 {
	for _, a := range n.Attr {
		if a.Key == key {
			f, _ := strconv.ParseFloat(a.Val, 64)
			return f
		}
	}
	return 0
}
