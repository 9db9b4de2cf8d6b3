// Package core provides money parsing and handling utilities.
//
// Amounts are decimal values in major units. Display goes through go-money so
// that each currency gets its own symbol, separators and fraction digits.
package core

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when settings carry no currency or an unknown one.
const DefaultCurrency = "USD"

var hundred = decimal.NewFromInt(100)

// Amounts carry at most maxIntegerDigits digits before the separator and
// maxFractionDigits after it. Eight decimals cover crypto quantities.
const (
	maxIntegerDigits  = 12
	maxFractionDigits = 8
)

// ParseAmount converts a user supplied string into a non-negative decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Only
// digits around a single separator are allowed: no sign, no exponent.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
//	ParseAmount("1e5")   -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, part := range []string{intPart, fracPart} {
		for _, r := range part {
			if r < '0' || r > '9' {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(strings.TrimLeft(intPart, "0")) > maxIntegerDigits || len(fracPart) > maxFractionDigits {
		return decimal.Zero, fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}
	if fracPart != "" {
		intPart += "." + fracPart
	}
	d, err := decimal.NewFromString(intPart)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return d, nil
}

// CheckAmount rejects negative amounts and amounts beyond the supported
// digits. It looks at the coefficient and exponent only, so a decimal decoded
// with a huge exponent is refused without being expanded.
func CheckAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrInvalidAmount
	}
	if d.IsZero() {
		return nil
	}
	exp := int64(d.Exponent())
	if exp < -maxFractionDigits || int64(d.NumDigits())+exp > maxIntegerDigits {
		return fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}
	return nil
}

// FormatMoney renders amount in the given ISO currency, e.g. "$1,234.50".
func FormatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(strings.ToUpper(currency))
	if cur == nil {
		cur = money.GetCurrency(DefaultCurrency)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}

// IsKnownCurrency reports whether code is an ISO currency go-money can format.
func IsKnownCurrency(code string) bool {
	return money.GetCurrency(strings.ToUpper(code)) != nil
}

// Percent is a percentage value, 12.5 meaning 12.5%.
type Percent float64

// Equal compares with a tolerance suited to values derived from decimals.
func (p Percent) Equal(q Percent) bool {
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", float64(p))
}

// PercentOf returns part/whole*100, or 0 when whole is zero.
func PercentOf(part, whole decimal.Decimal) Percent {
	if whole.IsZero() {
		return 0
	}
	return Percent(part.Mul(hundred).Div(whole).InexactFloat64())
}
