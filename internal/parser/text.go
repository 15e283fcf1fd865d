package parser

import (
	"bufio"
	"io"
	"strings"
)

// TextExtractor handles plain text files. Blank lines separate paragraphs.
type TextExtractor struct{}

func (p *TextExtractor) Extract(r io.Reader, filename string) (*Extraction, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	l := newLayout()
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			l.block(current.String(), bodyStyle)
			current.Reset()
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return fromLayout("", l), nil
}
