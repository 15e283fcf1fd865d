package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docgraph/internal/element"
)

// ErrUnsupported is returned by ForFile for unknown file extensions.
var ErrUnsupported = errors.New("unsupported file extension")

// Extraction is the positioned text of one document.
type Extraction struct {
	// Title comes from document metadata when the format carries one:
	// the PDF info title, HTML <title>, a DOCX Title paragraph or the
	// first Markdown h1. Empty otherwise.
	Title    string
	Elements []element.TextElement
}

// Extractor converts raw document bytes into positioned text fragments.
type Extractor interface {
	Extract(r io.Reader, filename string) (*Extraction, error)
}

// Options control extraction.
type Options struct {
	// PDFFallback retries failed PDF extraction with pdftotext.
	PDFFallback bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// Kind names the extractor ForFile picks for filename, with the options
// that change its output. Two inputs of the same kind and bytes extract
// identically.
func Kind(filename string, opts Options) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return "text", nil
	case ".md", ".markdown":
		return "markdown", nil
	case ".csv":
		return "csv", nil
	case ".html", ".htm":
		return "html", nil
	case ".pdf":
		if opts.PDFFallback {
			return "pdf+pdftotext", nil
		}
		return "pdf", nil
	case ".docx":
		return "docx", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

// ForFile returns the appropriate extractor for a filename.
func ForFile(filename string, opts Options) (Extractor, error) {
	kind, err := Kind(filename, opts)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "text":
		return &TextExtractor{}, nil
	case "markdown":
		return &MarkdownExtractor{}, nil
	case "csv":
		return &CSVExtractor{}, nil
	case "html":
		return &HTMLExtractor{}, nil
	case "docx":
		return &DOCXExtractor{}, nil
	}
	return &PDFExtractor{FallbackPdftotext: opts.PDFFallback}, nil
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

func fromLayout(title string, l *layout) *Extraction {
	return &Extraction{Title: title, Elements: l.elements()}
}
