package compare

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// nullTokens are cell values that mean "no value". Matching ignores case.
var nullTokens = map[string]bool{
	"":         true,
	"null":     true,
	"none":     true,
	"nan":      true,
	"-nan":     true,
	"na":       true,
	"n/a":      true,
	"#n/a":     true,
	"#n/a n/a": true,
	"#na":      true,
	"<na>":     true,
	"1.#ind":   true,
	"-1.#ind":  true,
	"1.#qnan":  true,
	"-1.#qnan": true,
}

func normalizeNull(v string) string {
	v = strings.TrimSpace(v)
	if nullTokens[strings.ToLower(v)] {
		return ""
	}
	return v
}

func collapseSpaces(v string) string {
	for strings.Contains(v, "  ") {
		v = strings.ReplaceAll(v, "  ", " ")
	}
	return v
}

// twoDecimals formats v at two decimals. Out-of-range numbers format as
// +Inf or -Inf.
func twoDecimals(v string) (string, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return "", false
	}
	return fmt.Sprintf("%.2f", f), true
}

// ValuesDiffer reports whether two cells of column col differ under the
// tolerant equality rule: null tokens equal the empty string, values that
// both parse as numbers are compared at two decimals, text compares case
// insensitively and finally by its canonical HTML-escaped form. PROGTITL
// ignores repeated spaces.
func ValuesDiffer(a, b, col string) bool {
	a, b = normalizeNull(a), normalizeNull(b)

	if col == "PROGTITL" {
		a, b = collapseSpaces(a), collapseSpaces(b)
	}

	if fa, ok := twoDecimals(a); ok {
		if fb, ok := twoDecimals(b); ok {
			a, b = fa, fb
		}
	}

	fold := cases.Fold()
	a = fold.String(norm.NFC.String(a))
	b = fold.String(norm.NFC.String(b))
	if a == b {
		return false
	}
	return canonicalEscape(a) != canonicalEscape(b)
}

// canonicalEscape maps both "&" and "&amp;" to "&amp;".
func canonicalEscape(v string) string {
	return html.EscapeString(html.UnescapeString(v))
}
