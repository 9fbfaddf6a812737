// Package money holds prices as integer minor units. Strings only appear at
// the edges: Parse for legacy catalog data, Format for display.
package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// DefaultCurrency is the storefront's settlement currency
const DefaultCurrency = "USD"

// ErrInvalidAmount is returned by Parse for strings that are not a price
var ErrInvalidAmount = errors.New("invalid money amount")

// Cents is an amount in minor units.
type Cents int64

// Mul returns c multiplied by a quantity.
func (c Cents) Mul(quantity int) Cents {
	return c * Cents(quantity)
}

// String renders the amount without a currency symbol, e.g. "12.99".
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// FromFloat converts a decimal major-unit amount, rounding half away from zero.
func FromFloat(f float64) Cents {
	return Cents(math.Round(f * 100))
}

// Parse reads a price written by hand or exported from a spreadsheet:
// "49", "49.5", "$1,299.00", "USD 12.99". At most two fraction digits.
func Parse(s string) (Cents, error) {
	raw := strings.TrimSpace(s)
	cleaned := strings.TrimFunc(raw, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '-' && r != '.'
	})
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	negative := strings.HasPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "-")

	whole, frac, hasFrac := strings.Cut(cleaned, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	minor, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	total := units*100 + minor
	if negative {
		total = -total
	}
	return Cents(total), nil
}

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"INR": "₹",
}

// Format renders an amount for display, e.g. Format(129900, "USD") == "$1,299.00".
func Format(c Cents, currency string) string {
	s := c.String()
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	whole = groupThousands(whole)

	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = DefaultCurrency
	}
	if sym, ok := symbols[code]; ok {
		return sign + sym + whole + "." + frac
	}
	return sign + whole + "." + frac + " " + code
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
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
