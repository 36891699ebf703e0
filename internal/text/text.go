package text

import (
	"strings"
)

// MinIndexableLength is the shortest chunk worth storing. Anything below this
// is page furniture (numbers, running headers) rather than content.
const MinIndexableLength = 10

// Normalize collapses runs of whitespace into single spaces and trims the
// result. Extracted PDF blocks arrive with arbitrary line breaks inside them.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// IsIndexable reports whether a block of extracted text carries enough
// content to chunk and embed.
func IsIndexable(s string) bool {
	return len(Normalize(s)) >= MinIndexableLength
}
