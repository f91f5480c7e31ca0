// Package format converts between user-typed strings and canonical values.
// Every function is pure; invalid input never panics or returns an error.
package format

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// MaxFractionDigits is the number of minor-unit digits an amount may carry
const MaxFractionDigits = 2

var amountPattern = regexp.MustCompile(`^(\d*)(?:\.(\d*))?$`)

// ParseAmount parses free text into an amount.
// Currency symbols, thousands separators and whitespace are stripped.
// Anything else that is not a plain non-negative number with at most two
// fractional digits yields zero, which then fails the "amount > 0" check.
func ParseAmount(raw string) decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || r == '_' || unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, raw)

	m := amountPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return decimal.Zero
	}
	whole, frac := m[1], m[2]
	if whole == "" && frac == "" {
		return decimal.Zero
	}
	if len(frac) > MaxFractionDigits {
		return decimal.Zero
	}
	if whole == "" {
		whole = "0"
	}

	value := whole
	if frac != "" {
		value += "." + frac
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatAmount renders an amount with thousands separators, two decimals and
// an optional currency symbol prefix, e.g. "₦5,000.00".
func FormatAmount(amount decimal.Decimal, symbol string) string {
	fixed := amount.Abs().StringFixed(MaxFractionDigits)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if amount.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteString(symbol)
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
