package corpus

import (
	"regexp"
	"strings"
)

var nonLetters = regexp.MustCompile(`[^a-zA-Z']`)

// Normalize keeps only English letters and apostrophes, lowercases the result and
// collapses it to single-spaced tokens. Training patterns, tags and live input all
// go through it, so it must stay the same for both paths.
func Normalize(s string) string {
	s = nonLetters.ReplaceAllString(s, " ")
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}
