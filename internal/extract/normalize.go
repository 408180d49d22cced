package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var datePattern = regexp.MustCompile(`^(\d{2})-(\d{2})-(\d{4})$`)

// NormalizeName recovers word boundaries lost to styling-driven markup by
// inserting a space wherever an ASCII lowercase letter is directly followed by
// an ASCII uppercase letter, e.g. "DonghyunJUNG" becomes "Donghyun JUNG".
//
// This is approximate: "McDonald" is split as "Mc Donald" and all-caps or
// all-lowercase input is left as is.
func NormalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	var prev byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isLower(prev) && isUpper(c) {
			b.WriteByte(' ')
		}
		b.WriteByte(c)
		prev = c
	}
	return strings.TrimSpace(b.String())
}

// ReorderDate converts a DD-MM-YYYY string into YYYY-MM-DD. Anything else
// yields ok=false.
func ReorderDate(s string) (string, bool) {
	m := datePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	return m[3] + "-" + m[2] + "-" + m[1], true
}

// ParseRank interprets the rank column. All-digit text is a numeric rank;
// any other non-empty text is an upper-cased status code such as DNF or DSQ.
// Empty text yields neither.
func ParseRank(s string) (rank *int, status string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ""
	}
	if isDigits(s) {
		n, err := strconv.Atoi(s)
		if err != nil {
			// Out of int range; not a rank anyone can display.
			return nil, ""
		}
		return &n, ""
	}
	return nil, strings.ToUpper(s)
}

// ParsePoints parses a points column. Unparsable or non-finite values are
// absent.
func ParsePoints(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
