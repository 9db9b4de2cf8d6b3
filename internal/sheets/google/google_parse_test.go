package google

import "testing"

func TestParseRow(t *testing.T) {
	tests := []struct {
		name   string
		row    []any
		wantOK bool
		want   string
	}{
		{"iso date", []any{"2024-03-01", "expense", "food", "lunch", "12.50", "t1"}, true, "12.5"},
		{"us date and number", []any{"3/1/2024", "Income", "salary", "pay", 3000.0, "t2"}, true, "3000"},
		{"decimal comma", []any{"2024-03-01", "expense", "food", "x", "4,20", "t3"}, true, "4.2"},
		{"header", []any{"Date", "Type", "Category", "Description", "Amount", "ID"}, false, ""},
		{"bad type", []any{"2024-03-01", "transfer", "food", "x", "1", "t4"}, false, ""},
		{"bad amount", []any{"2024-03-01", "expense", "food", "x", "abc", "t5"}, false, ""},
		{"short", []any{"2024-03-01", "expense"}, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseRow(tt.row)
			if ok != tt.wantOK {
				t.Fatalf("parseRow() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.Amount.String() != tt.want {
				t.Errorf("amount = %s, want %s", got.Amount, tt.want)
			}
		})
	}
}
