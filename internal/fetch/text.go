package fetch

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	stripPolicy = bluemonday.StrictPolicy()

	lineBreaks = regexp.MustCompile(`(?i)<br\s*/?>|</p\s*>`)
	paraOpens  = regexp.MustCompile(`(?i)<p(\s[^>]*)?>`)
	tagResidue = regexp.MustCompile(`<[/!]?[a-zA-Z][^<>]*>`)
)

// HTMLToText renders status markup as a single line of plain text.
//
// Breaks and paragraphs turn into separators, every other tag is dropped,
// entities are decoded and runs of whitespace collapse to one space.
func HTMLToText(s string) string {
	s = lineBreaks.ReplaceAllString(s, "\n")
	s = paraOpens.ReplaceAllString(s, "")
	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	// Decoded entities can spell out tags again.
	s = tagResidue.ReplaceAllString(s, " ")

	return strings.Join(strings.Fields(s), " ")
}
