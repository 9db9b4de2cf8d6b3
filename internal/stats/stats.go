// Package stats derives summary statistics from flat record collections.
//
// Every function is pure and total: inputs are never modified, and empty
// collections or zero denominators produce zero values instead of errors.
package stats

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Summary is the income/expense rollup of a set of transactions.
type Summary struct {
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	Balance      decimal.Decimal `json:"balance"`
	Count        int             `json:"count"`
}

// CategoryShare is one expense category's slice of total spending.
type CategoryShare struct {
	Category   string          `json:"category"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	Percentage core.Percent    `json:"percentage"`
}

// MonthSummary pairs a calendar month with its totals.
type MonthSummary struct {
	Year   int        `json:"year"`
	Month  time.Month `json:"month"`
	Totals Summary    `json:"totals"`
}

func Totals(txs []core.Transaction) Summary {
	s := Summary{TotalIncome: decimal.Zero, TotalExpense: decimal.Zero}
	for _, t := range txs {
		switch t.Type {
		case core.Income:
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		case core.Expense:
			s.TotalExpense = s.TotalExpense.Add(t.Amount)
		}
		s.Count++
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)
	return s
}

// MonthlyTotals restricts txs to the calendar month of ref before summing.
func MonthlyTotals(txs []core.Transaction, ref time.Time) Summary {
	return Totals(inMonth(txs, ref.Year(), ref.Month()))
}

// InMonth keeps the transactions dated in the calendar month of ref. A
// transaction's month is read in the offset it was recorded with, so every
// month-scoped view agrees on where it belongs.
func InMonth(txs []core.Transaction, ref time.Time) []core.Transaction {
	return inMonth(txs, ref.Year(), ref.Month())
}

// IsInMonth reports whether t is dated in the calendar month of ref.
func IsInMonth(t core.Transaction, ref time.Time) bool {
	return t.Date.Year() == ref.Year() && t.Date.Month() == ref.Month()
}

func inMonth(txs []core.Transaction, year int, month time.Month) []core.Transaction {
	var out []core.Transaction
	for _, t := range txs {
		if t.Date.Year() == year && t.Date.Month() == month {
			out = append(out, t)
		}
	}
	return out
}

// CategoryBreakdown groups expenses by category, largest first.
func CategoryBreakdown(txs []core.Transaction) []CategoryShare {
	index := map[string]int{}
	shares := []CategoryShare{}
	total := decimal.Zero
	for _, t := range txs {
		if t.Type != core.Expense {
			continue
		}
		i, ok := index[t.Category]
		if !ok {
			i = len(shares)
			index[t.Category] = i
			shares = append(shares, CategoryShare{Category: t.Category, Total: decimal.Zero})
		}
		shares[i].Total = shares[i].Total.Add(t.Amount)
		shares[i].Count++
		total = total.Add(t.Amount)
	}

	for i := range shares {
		shares[i].Percentage = core.PercentOf(shares[i].Total, total)
	}
	slices.SortStableFunc(shares, func(a, b CategoryShare) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return shares
}

// MonthlyTrend returns the totals of the n calendar months ending with ref's
// month, oldest first.
func MonthlyTrend(txs []core.Transaction, ref time.Time, n int) []MonthSummary {
	if n <= 0 {
		return []MonthSummary{}
	}
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location()).AddDate(0, -(n - 1), 0)
	out := make([]MonthSummary, 0, n)
	for i := 0; i < n; i++ {
		m := first.AddDate(0, i, 0)
		out = append(out, MonthSummary{
			Year:   m.Year(),
			Month:  m.Month(),
			Totals: Totals(inMonth(txs, m.Year(), m.Month())),
		})
	}
	return out
}

// SavingsRate is the share of income left after expenses, 0 without income.
func SavingsRate(s Summary) core.Percent {
	return core.PercentOf(s.Balance, s.TotalIncome)
}
