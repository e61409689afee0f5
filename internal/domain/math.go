package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	cryptoPrecision = 8
	fiatPrecision   = 2
)

// SafeParse parses a string into a decimal, returning zero for invalid or empty input.
func SafeParse(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// PrecisionFor returns the display precision for an asset quantity.
func PrecisionFor(symbol string) int32 {
	if symbol == USDSymbol {
		return fiatPrecision
	}
	return cryptoPrecision
}

// FormatAmount rounds to the asset's display precision and strips trailing zeros.
// A non-zero dust balance may render as "0".
func FormatAmount(symbol string, d decimal.Decimal) string {
	return trimZeros(d.Round(PrecisionFor(symbol)).StringFixed(PrecisionFor(symbol)))
}

// FormatUSD renders a dollar amount with two decimals and thousands separators, e.g. "$12,345.60".
func FormatUSD(d decimal.Decimal) string {
	s := d.Abs().StringFixed(fiatPrecision)
	intPart, frac, _ := strings.Cut(s, ".")
	sign := ""
	if d.Round(fiatPrecision).IsNegative() {
		sign = "-"
	}
	return sign + "$" + groupThousands(intPart) + "." + frac
}

// FormatPercent renders a signed percentage with two decimals, e.g. "+2.50%".
func FormatPercent(d decimal.Decimal) string {
	s := d.StringFixed(fiatPrecision)
	if !d.Round(fiatPrecision).IsNegative() {
		s = "+" + s
	}
	return s + "%"
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}
