// Package redact masks personal data in free-text survey answers.
package redact

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Placeholder replaces every masked substring.
const Placeholder = "<redacted>"

var (
	emailRe = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)

	// Phone candidates: optional + and (, then digits separated by single
	// spaces, dashes or parentheses. Dots are not separators.
	phoneRe = regexp.MustCompile(`\+?\(?\d(?:[ \-]?[()]?[ \-]?\d)+`)
)

const (
	minPhoneDigits = 9
	maxPhoneDigits = 15
)

// PII masks e-mail addresses and phone numbers in s. A phone number must
// stand alone: digit runs that touch letters, dots, colons, slashes or
// further digits are left as they are, so decimals, dates, times and codes
// survive.
func PII(s string) string {
	if s == "" {
		return ""
	}
	out := emailRe.ReplaceAllString(s, Placeholder)
	return maskPhones(out)
}

// Contains reports whether PII would change s.
func Contains(s string) bool {
	return PII(s) != s
}

func maskPhones(s string) string {
	locs := phoneRe.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if !isPhone(s[start:end]) || !standsAlone(s, start, end) {
			continue
		}
		b.WriteString(s[last:start])
		b.WriteString(Placeholder)
		last = end
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

func isPhone(m string) bool {
	n := 0
	for _, r := range m {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n >= minPhoneDigits && n <= maxPhoneDigits
}

func standsAlone(s string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(s[:start]); !isBoundary(r) {
			return false
		}
	}
	if end < len(s) {
		if r, _ := utf8.DecodeRuneInString(s[end:]); !isBoundary(r) {
			return false
		}
	}
	return true
}

func isBoundary(r rune) bool {
	switch r {
	case '.', ':', '/', '_', '@', '-', '+':
		return false
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
