// Package textnorm folds tag values and search needles into the form used for
// diacritic- and case-insensitive matching.
package textnorm

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s, strips combining marks and collapses whitespace runs to
// a single space. Punctuation is kept, so "c++" never widens to "c". The
// result is trimmed. "Ève  & Björk!" folds to "eve & bjork!".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(folded), " ")
}

// ContainsWord reports whether needle occurs in haystack with no letter or
// digit directly before or after it.
func ContainsWord(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	offset := 0
	for {
		i := strings.Index(haystack[offset:], needle)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(needle)
		if isBoundary(haystack, start, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(haystack[start:])
		offset = start + size
	}
}

func isBoundary(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

var romanRe = regexp.MustCompile(`^m{0,3}(cm|cd|d?c{0,3})(xc|xl|l?x{0,3})(ix|iv|v?i{0,3})$`)

var romanDigits = map[byte]int{'i': 1, 'v': 5, 'x': 10, 'l': 50, 'c': 100, 'd': 500, 'm': 1000}

// RomanValue returns the value of a well-formed roman numeral (case-insensitive).
func RomanValue(s string) (int, bool) {
	s = strings.ToLower(s)
	if s == "" || !romanRe.MatchString(s) {
		return 0, false
	}
	total := 0
	for i := 0; i < len(s); i++ {
		v := romanDigits[s[i]]
		if i+1 < len(s) && romanDigits[s[i+1]] > v {
			total -= v
		} else {
			total += v
		}
	}
	return total, true
}

// ArabicAlternative rewrites every word of a folded needle that is a roman
// numeral of at least two letters into arabic digits. Single letters are left
// alone since "i", "v" or "x" are far more often plain words. ok is false if
// nothing changed.
func ArabicAlternative(folded string) (alt string, ok bool) {
	words := strings.Split(folded, " ")
	for i, w := range words {
		if len(w) < 2 {
			continue
		}
		if v, isRoman := RomanValue(w); isRoman {
			words[i] = strconv.Itoa(v)
			ok = true
		}
	}
	if !ok {
		return "", false
	}
	return strings.Join(words, " "), true
}
