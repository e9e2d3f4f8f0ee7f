// Package currency converts between Rupiah display strings and numbers.
//
// The notation is fixed: "." groups thousands and "," separates decimals,
// so 15000.75 is shown as "15.000,75". Parsing is lenient and never fails;
// formatting rounds only the string, never the stored value.
package currency

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	thousandsSeparator = "."
	decimalSeparator   = ","
	rupiahPrefix       = "Rp"
)

// Parse converts a display string such as "Rp 15.000,75" to 15000.75.
// Thousands separators are dropped, the decimal comma becomes a point and any
// other residue is ignored. Only the first decimal comma counts, so "1,5,0"
// reads as 1.50. Unparseable input yields 0.
func Parse(display string) float64 {
	s := strings.ReplaceAll(display, thousandsSeparator, "")
	s = strings.ReplaceAll(s, decimalSeparator, ".")

	var b strings.Builder
	seenPoint := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !seenPoint:
			seenPoint = true
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}

	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

// Format renders value with grouped thousands and fractionDigits decimals,
// e.g. Format(15000.75, 2) == "15.000,75" and Format(15000.75, 0) == "15.001".
func Format(value float64, fractionDigits int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = 0
	}
	if fractionDigits < 0 {
		fractionDigits = 0
	}

	fixed := decimal.NewFromFloat(value).StringFixed(int32(fractionDigits))
	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, fracPart, _ := strings.Cut(fixed, ".")
	out := groupThousands(intPart)
	if fracPart != "" {
		out += decimalSeparator + fracPart
	}
	if negative && strings.Trim(intPart+fracPart, "0") != "" {
		out = "-" + out
	}
	return out
}

// FormatRupiah renders a whole-Rupiah amount, e.g. "Rp14.000".
func FormatRupiah(value float64) string {
	if value < 0 {
		return "-" + rupiahPrefix + Format(-value, 0)
	}
	return rupiahPrefix + Format(value, 0)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(thousandsSeparator)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
