// Package slug derives URL-safe identifiers from titles and names.
package slug

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var nonAlphanumericRunRe = regexp.MustCompile(`[^a-z0-9]+`)

// Make converts a title to its slug.
//
// Rules:
//  1. Lowercase
//  2. Replace every run of characters outside [a-z0-9] with a single "-"
//  3. Trim leading/trailing "-"
//
// Examples:
//
//	"Harry Potter & the Philosopher's Stone" → "harry-potter-the-philosopher-s-stone"
//	"Thinking, Fast and Slow"                → "thinking-fast-and-slow"
//	"  1984  "                               → "1984"
//	"Café"                                   → "caf"
//
// Book rows are keyed by this value, so it must stay a pure function of the title.
func Make(title string) string {
	s := strings.ToLower(title)
	s = nonAlphanumericRunRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// WithTimeSuffix appends a base-36 millisecond timestamp so that two reading
// lists with the same name still get distinct slugs.
func WithTimeSuffix(name string, now time.Time) string {
	return Make(name) + "-" + strconv.FormatInt(now.UnixMilli(), 36)
}
