package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"0", "0", true},
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"+1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
		{".", "", false},
		{".5", "0.5", true},
		{"12.", "12", true},
		{"0.12345678", "0.12345678", true},
		{"999999999999.99", "999999999999.99", true},
		{"1e5", "", false},
		{"1E5", "", false},
		{"1e2000000000", "", false},
		{"0x10", "", false},
		{"1 000", "", false},
		{"1000000000000", "", false},
		{"0.123456789", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestCheckAmount(t *testing.T) {
	cases := []struct {
		name string
		in   decimal.Decimal
		ok   bool
	}{
		{"zero", decimal.Zero, true},
		{"cents", decimal.RequireFromString("12.34"), true},
		{"largest integer part", decimal.RequireFromString("999999999999"), true},
		{"eight decimals", decimal.RequireFromString("0.00000001"), true},
		{"negative", decimal.RequireFromString("-1"), false},
		{"too many integer digits", decimal.RequireFromString("1000000000000"), false},
		{"too many decimals", decimal.RequireFromString("0.000000001"), false},
		{"small exponent", decimal.New(1, 5), true},
		{"huge exponent", decimal.New(1, 2000000000), false},
		{"huge negative exponent", decimal.New(1, -2000000000), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckAmount(tc.in)
			if tc.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("expected ErrInvalidAmount, got %v", err)
			}
		})
	}
}

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		want     string
	}{
		{"1234.5", "USD", "$1,234.50"},
		{"0", "usd", "$0.00"},
		{"10.005", "USD", "$10.01"},
		{"99", "not-a-currency", "$99.00"},
	}
	for _, tc := range cases {
		got := FormatMoney(decimal.RequireFromString(tc.amount), tc.currency)
		if got != tc.want {
			t.Errorf("FormatMoney(%s, %s) = %q, want %q", tc.amount, tc.currency, got, tc.want)
		}
	}
}

func TestPercentOf(t *testing.T) {
	if got := PercentOf(decimal.NewFromInt(5), decimal.Zero); got != 0 {
		t.Fatalf("zero denominator should yield 0, got %v", got)
	}
	got := PercentOf(decimal.NewFromInt(800), decimal.NewFromInt(950))
	if !got.Equal(Percent(84.2105263)) {
		t.Fatalf("expected ~84.21, got %v", got)
	}
	if s := Percent(12.5).String(); s != "12.50%" {
		t.Fatalf("unexpected string %q", s)
	}
}
