// Package normalize produces comparison keys for free-text matching.
// All resolvers compare normalized forms, never raw input.
package normalize

import (
	"strings"
	"unicode"
)

// Key folds s into a comparison key: full-width ASCII becomes half-width,
// letters are lowercased, whitespace and punctuation are dropped, and the
// two script forms of the administrative 台/臺 character collapse to 台.
// Idempotent: Key(Key(s)) == Key(s).
func Key(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		r = foldWidth(r)
		if r == '臺' {
			r = '台'
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Digits returns the maximal digit runs in s, in first-occurrence order
// with duplicates removed. Full-width digits count.
func Digits(s string) []string {
	var runs []string
	seen := make(map[string]bool)
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		run := cur.String()
		cur.Reset()
		if !seen[run] {
			seen[run] = true
			runs = append(runs, run)
		}
	}
	for _, r := range s {
		r = foldWidth(r)
		if r >= '0' && r <= '9' {
			cur.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return runs
}

// SharesDigitRun reports whether a and b contain at least one common
// maximal digit run.
func SharesDigitRun(a, b string) bool {
	bRuns := Digits(b)
	if len(bRuns) == 0 {
		return false
	}
	set := make(map[string]bool, len(bRuns))
	for _, run := range bRuns {
		set[run] = true
	}
	for _, run := range Digits(a) {
		if set[run] {
			return true
		}
	}
	return false
}

// foldWidth maps full-width ASCII forms (U+FF01..U+FF5E) and the
// ideographic space to their half-width equivalents.
func foldWidth(r rune) rune {
	switch {
	case r >= 0xFF01 && r <= 0xFF5E:
		return r - 0xFEE0
	case r == 0x3000:
		return ' '
	}
	return r
}
