// Package phone canonicalizes free-form phone input into the digit-only,
// country-code-prefixed form the chat surface addresses conversations by.
package phone

import (
	"strconv"
	"strings"
)

const (
	minDigits = 10
	maxDigits = 15
)

type InvalidLengthErr struct {
	digits int
}

func (e *InvalidLengthErr) Error() string {
	return "invalid phone length: " + strconv.Itoa(e.digits) + " digits"
}

func NewInvalidLengthError(digits int) *InvalidLengthErr {
	return &InvalidLengthErr{digits: digits}
}

type Normalizer struct {
	defaultCountryCode string
}

func NewNormalizer(defaultCountryCode string) *Normalizer {
	return &Normalizer{defaultCountryCode: defaultCountryCode}
}

// Normalize strips formatting from raw and returns the canonical digit
// string. A leading "00" trunk prefix is dropped, a bare 10-digit national
// number gets the default country code. Idempotent over its own output.
func (n *Normalizer) Normalize(raw string) (string, error) {
	digits := stripNonDigits(raw)

	if strings.HasPrefix(digits, "00") {
		digits = digits[2:]
	}

	if len(digits) == minDigits {
		digits = n.defaultCountryCode + digits
	}

	if len(digits) < minDigits || len(digits) > maxDigits {
		return "", NewInvalidLengthError(len(digits))
	}

	return digits, nil
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
