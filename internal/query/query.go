// Package query implements the filter and sort pipeline that feeds
// transaction list views.
package query

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"fintrack/internal/core"
)

// All disables the type or category filter.
const All = "all"

type SortField string

const (
	SortByDate     SortField = "date"
	SortByAmount   SortField = "amount"
	SortByCategory SortField = "category"
)

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Filter selects transactions. Zero values disable each criterion.
type Filter struct {
	Type      string
	Category  string
	StartDate *time.Time
	EndDate   *time.Time
	Search    string
}

type Sort struct {
	Field SortField
	Order SortOrder
}

// Page limits the output window. A zero Limit means no limit.
type Page struct {
	Offset int
	Limit  int
}

// DefaultSort lists the newest transactions first.
func DefaultSort() Sort {
	return Sort{Field: SortByDate, Order: Desc}
}

// Apply filters txs and returns a new stably sorted slice. txs is not modified.
func Apply(txs []core.Transaction, f Filter, s Sort) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	search := strings.ToLower(strings.TrimSpace(f.Search))
	for _, t := range txs {
		if !f.matches(t, search) {
			continue
		}
		out = append(out, t)
	}

	cmpFn := comparator(s.normalized())
	slices.SortStableFunc(out, cmpFn)
	return out
}

func (f Filter) matches(t core.Transaction, search string) bool {
	if f.Type != "" && f.Type != All && string(t.Type) != f.Type {
		return false
	}
	if f.Category != "" && f.Category != All && t.Category != f.Category {
		return false
	}
	if f.StartDate != nil && t.Date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && t.Date.After(*f.EndDate) {
		return false
	}
	if search != "" &&
		!strings.Contains(strings.ToLower(t.Description), search) &&
		!strings.Contains(strings.ToLower(t.Category), search) {
		return false
	}
	return true
}

func (s Sort) normalized() Sort {
	switch s.Field {
	case SortByDate, SortByAmount, SortByCategory:
	default:
		s.Field = SortByDate
	}
	if s.Order != Asc {
		s.Order = Desc
	}
	return s
}

// comparator returns 0 for equal keys so the stable sort keeps input order
// in both directions.
func comparator(s Sort) func(a, b core.Transaction) int {
	var keyCmp func(a, b core.Transaction) int
	switch s.Field {
	case SortByAmount:
		keyCmp = func(a, b core.Transaction) int { return a.Amount.Cmp(b.Amount) }
	case SortByCategory:
		keyCmp = func(a, b core.Transaction) int { return cmp.Compare(a.Category, b.Category) }
	default:
		keyCmp = func(a, b core.Transaction) int { return a.Date.Compare(b.Date) }
	}
	if s.Order == Desc {
		return func(a, b core.Transaction) int { return keyCmp(b, a) }
	}
	return keyCmp
}

// Paginate returns the window of txs selected by p.
func Paginate(txs []core.Transaction, p Page) []core.Transaction {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Offset >= len(txs) {
		return []core.Transaction{}
	}
	end := len(txs)
	if p.Limit > 0 && p.Offset+p.Limit < end {
		end = p.Offset + p.Limit
	}
	return txs[p.Offset:end]
}
