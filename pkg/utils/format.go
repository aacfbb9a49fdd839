// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"strings"
)

// FormatUSD formats an amount as a signed dollar figure with thousands
// grouping, e.g. "+$1,234.50" or "-$500.00".
func FormatUSD(amount float64) string {
	sign := "+"
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")
	return sign + "$" + groupThousands(parts[0]) + "." + parts[1]
}

// FormatUSDPlain formats an amount without a leading plus sign.
func FormatUSDPlain(amount float64) string {
	s := FormatUSD(amount)
	return strings.TrimPrefix(s, "+")
}

func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	result := s[n-3:]
	s = s[:n-3]
	for len(s) > 3 {
		result = s[len(s)-3:] + "," + result
		s = s[:len(s)-3]
	}
	return s + "," + result
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatCount formats a count with its singular or plural noun.
func FormatCount(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
