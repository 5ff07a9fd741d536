// Package textnorm holds the text normalization shared by the order parser
// and the product matcher: case folding, accent stripping and whitespace
// collapsing.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NFD decomposition with combining marks removed ("plátano" -> "platano").
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips accents and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	return Collapse(s)
}

// Collapse squeezes runs of whitespace into single spaces and trims.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Tokens splits the normalized form of s on whitespace.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}
