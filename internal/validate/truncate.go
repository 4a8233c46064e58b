package validate

import (
	"strings"
	"unicode/utf8"
)

// Truncate cuts s to at most width runes.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	n := 0
	for i := range s {
		if n == width {
			return s[:i]
		}
		n++
	}
	return s
}

// TruncateFloat cuts a numeric string to width characters while keeping its
// exponent suffix: the mantissa shrinks, the exponent does not. The exponent
// marker is normalized to 'e'. When the exponent alone is wider than width the
// value is cut like any other string.
func TruncateFloat(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	i := strings.IndexAny(s, "eE")
	if i < 0 {
		return Truncate(s, width)
	}
	rest := s[i+1:]
	if j := strings.IndexAny(rest, "eE"); j >= 0 {
		rest = rest[:j]
	}
	exp := "e" + rest
	keep := width - len(exp)
	if keep < 0 {
		return Truncate(s, width)
	}
	return Truncate(s[:i], keep) + exp
}

// Pad left-justifies s in exactly width runes, cutting when s is longer.
func Pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n == width {
		return s
	}
	if n > width {
		return Truncate(s, width)
	}
	return s + strings.Repeat(" ", width-n)
}
