package graph

import (
	"encoding/json"
	"fmt"
	"io"
)

// Format selects an output view.
type Format string

const (
	FormatGraph      Format = "graph"
	FormatSequential Format = "sequential"
	FormatFlat       Format = "flat"
)

// ParseFormat accepts a view name; empty means graph.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatGraph, nil
	case FormatGraph, FormatSequential, FormatFlat:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want graph, sequential or flat)", s)
}

// View returns the value to encode for a format.
func (d *Document) View(f Format) any {
	switch f {
	case FormatSequential:
		return d.Sequential()
	case FormatFlat:
		return d.Flat()
	}
	return d
}

// Write encodes the chosen view as indented JSON.
func Write(w io.Writer, d *Document, f Format) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(d.View(f))
}
