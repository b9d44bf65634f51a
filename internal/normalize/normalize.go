// Package normalize provides the text and number canonicalization used by
// every other part of the ingestion pipeline.
//
// Vendor export files vary in locale (Swedish and English headers), contain
// invisible Unicode characters from spreadsheet round-trips, and format
// numbers with thousands separators and decimal commas. The two functions
// here, Header and ToNumber, are pure and total: they never fail, so
// callers can compare headers and sum coerced values without guarding.
package normalize

import (
	"strconv"
	"strings"
	"unicode"
)

// Header canonicalizes an external column header string: trims, lowercases,
// collapses internal whitespace runs to a single space, and strips
// zero-width and other invisible format characters (BOM, ZWSP, joiners).
func Header(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			inSpace = true
		case unicode.In(r, unicode.Cf) || unicode.IsControl(r):
			// Invisible format/control characters are dropped entirely
		default:
			if inSpace && b.Len() > 0 {
				b.WriteRune(' ')
			}
			inSpace = false
			b.WriteRune(unicode.ToLower(r))
		}
	}

	return b.String()
}

// Headers canonicalizes a slice of header strings
func Headers(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = Header(h)
	}
	return out
}

// ToNumber converts a heterogeneous value to a finite float64 with a safe
// zero fallback. It never panics and never returns NaN or Inf, so
// sum + ToNumber(x) is always valid.
//
// Rules, in order: nil and empty strings coerce to 0; finite numbers pass
// through; strings are stripped of whitespace, dots acting as thousands
// separators are removed, the decimal comma is replaced with a dot, and the
// result is float-parsed. Anything else coerces to 0.
func ToNumber(value interface{}) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return finiteOrZero(v)
	case float32:
		return finiteOrZero(float64(v))
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		return parseNumericString(v)
	default:
		return 0
	}
}

func finiteOrZero(f float64) float64 {
	// NaN compares unequal to itself; the bounds catch the infinities
	if f != f || f > maxFinite || f < -maxFinite {
		return 0
	}
	return f
}

const maxFinite = 1.7976931348623157e308

func parseNumericString(s string) float64 {
	s = stripWhitespace(s)
	if s == "" {
		return 0
	}

	s = stripThousandsDots(s)
	s = strings.ReplaceAll(s, ",", ".")

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return finiteOrZero(f)
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.In(r, unicode.Cf) {
			return -1
		}
		return r
	}, s)
}

// stripThousandsDots removes dots that act as thousands separators: a dot
// immediately followed by exactly three digits. A dot with no digit before
// it is a decimal point, not a separator, and is kept ("." or ".5").
func stripThousandsDots(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	bytes := []byte(s)
	for i := 0; i < len(bytes); i++ {
		c := bytes[i]
		if c != '.' {
			b.WriteByte(c)
			continue
		}
		if i > 0 && isDigit(bytes[i-1]) && followedByThreeDigits(bytes, i) {
			continue
		}
		b.WriteByte(c)
	}

	return b.String()
}

func followedByThreeDigits(b []byte, dot int) bool {
	for j := dot + 1; j <= dot+3; j++ {
		if j >= len(b) || !isDigit(b[j]) {
			return false
		}
	}
	// Exactly three: a fourth digit would make this a decimal fraction
	if dot+4 < len(b) && isDigit(b[dot+4]) {
		return false
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// ParseIfNumber opportunistically converts a numeric-looking string to a
// float64, returning the original value unchanged for anything else. Dates
// and free text pass through untouched: only strings consisting of digits,
// separators, and an optional leading sign qualify.
func ParseIfNumber(value interface{}) interface{} {
	s, ok := value.(string)
	if !ok {
		return value
	}

	trimmed := strings.TrimSpace(s)
	if trimmed == "" || !looksNumeric(trimmed) {
		return value
	}

	return ToNumber(trimmed)
}

func looksNumeric(s string) bool {
	hasDigit := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '.' || r == ',' || r == ' ':
		case (r == '-' || r == '+') && i == 0:
		default:
			return false
		}
	}
	return hasDigit
}
