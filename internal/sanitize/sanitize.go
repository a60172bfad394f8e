// Package sanitize normalizes untrusted chat input and performs the
// structural validation every flow depends on. All functions are pure:
// unacceptable input yields an empty string or false, never an error.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxTextLength caps sanitized input length in runes.
const MaxTextLength = 1000

// AddressLength is the fixed length of an Algorand account address.
const AddressLength = 58

// MaxAmount is the upper bound for a single transfer, in ALGO.
const MaxAmount = 1_000_000

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f]`)

// dangerousPatterns match markup and script fragments that must never
// survive into logs, prompts, or outbound replies.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script.*?</script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)data:`),
	regexp.MustCompile(`(?i)vbscript:`),
	regexp.MustCompile(`(?i)onload=`),
	regexp.MustCompile(`(?i)onerror=`),
	regexp.MustCompile(`(?i)eval\(`),
	regexp.MustCompile(`(?i)exec\(`),
}

var addressPattern = regexp.MustCompile(`^[A-Z2-7]{58}$`)

// Text strips control characters, truncates to MaxTextLength runes,
// removes dangerous markup patterns, and trims surrounding whitespace.
func Text(s string) string {
	return TextN(s, MaxTextLength)
}

// TextN is Text with a caller-chosen rune cap; a non-positive cap
// falls back to MaxTextLength.
func TextN(s string, maxRunes int) string {
	if s == "" {
		return ""
	}
	if maxRunes <= 0 {
		maxRunes = MaxTextLength
	}

	out := controlChars.ReplaceAllString(s, "")

	if runes := []rune(out); len(runes) > maxRunes {
		out = string(runes[:maxRunes])
	}

	for _, p := range dangerousPatterns {
		out = p.ReplaceAllString(out, "")
	}

	return strings.TrimSpace(out)
}

// Address reports whether s is structurally a valid Algorand address:
// exactly 58 characters from the base32 alphabet (A-Z, 2-7).
// Checksum verification is a later hardening step; structural validation
// alone must not be treated as production-grade address correctness.
func Address(s string) bool {
	if len(s) != AddressLength {
		return false
	}
	return addressPattern.MatchString(s)
}

// Amount reports whether a is a spendable ALGO amount: positive and at
// most MaxAmount.
func Amount(a float64) bool {
	return a > 0 && a <= MaxAmount
}
