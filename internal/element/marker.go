package element

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MarkerStyle classifies the leading marker of a list item.
type MarkerStyle int

const (
	MarkerNone MarkerStyle = iota
	MarkerBullet
	MarkerNumeric
	MarkerAlpha
	MarkerRoman
)

func (m MarkerStyle) String() string {
	switch m {
	case MarkerBullet:
		return "bullet"
	case MarkerNumeric:
		return "numeric"
	case MarkerAlpha:
		return "alpha"
	case MarkerRoman:
		return "roman"
	}
	return "none"
}

const bullets = "•·●■▪▫◦‣⁃-*→➤✓"

var (
	numericMarker = regexp.MustCompile(`^(\d+[.)]|\(\d+\))\s+\S`)
	romanMarker   = regexp.MustCompile(`^(?:[ivx]+|[IVX]+)[.)]\s+\S`)
	alphaMarker   = regexp.MustCompile(`^(?:[a-z]|[A-Z])[.)]\s+\S`)
)

// Marker returns the list marker style that text starts with.
func Marker(text string) MarkerStyle {
	text = strings.TrimSpace(text)
	if text == "" {
		return MarkerNone
	}
	r, size := utf8.DecodeRuneInString(text)
	if strings.ContainsRune(bullets, r) {
		rest := text[size:]
		if rest != "" && (rest[0] == ' ' || rest[0] == '\t') && strings.TrimSpace(rest) != "" {
			return MarkerBullet
		}
		return MarkerNone
	}
	switch {
	case numericMarker.MatchString(text):
		return MarkerNumeric
	case romanMarker.MatchString(text):
		return MarkerRoman
	case alphaMarker.MatchString(text):
		return MarkerAlpha
	}
	return MarkerNone
}
