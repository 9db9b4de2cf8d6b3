package google

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const dateLayout = "2006-01-02"

// Sheets may render dates in the spreadsheet locale.
var readLayouts = []string{dateLayout, "1/2/2006", "02/01/2006"}

// parseRow converts one exported row back into a transaction. Header rows,
// short rows and rows with unparseable cells are skipped.
func parseRow(row []any) (core.Transaction, bool) {
	cols := toStrings(row)
	if len(cols) < 6 {
		return core.Transaction{}, false
	}
	date, ok := parseDate(cols[0])
	if !ok {
		return core.Transaction{}, false
	}
	typ := core.TransactionType(strings.ToLower(cols[1]))
	if !typ.Valid() {
		return core.Transaction{}, false
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(cols[4], ",", "."))
	if err != nil {
		return core.Transaction{}, false
	}
	return core.Transaction{
		ID:          cols[5],
		Type:        typ,
		Category:    cols[2],
		Description: cols[3],
		Amount:      amount,
		Date:        date,
	}, true
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range readLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
